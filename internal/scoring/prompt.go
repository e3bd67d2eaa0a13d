package scoring

import (
	"fmt"
	"strings"
	"time"
)

// NoteContext is everything the classifier sees about a note.
type NoteContext struct {
	Content   string
	Upvotes   int
	Objective string
}

const defaultObjective = "Reduce customer churn by improving onboarding conversion and decreasing time-to-value for new customers."

// BuildPrompt renders the deterministic classifier prompt. The title is the
// first line of the content clipped to 100 characters; the rest of the
// prompt is fixed so identical notes always score identically.
func BuildPrompt(note NoteContext, now time.Time) string {
	title := strings.SplitN(note.Content, "\n", 2)[0]
	if len(title) > 100 {
		title = title[:100]
	}
	if title == "" {
		title = "Untitled"
	}
	objective := note.Objective
	if strings.TrimSpace(objective) == "" {
		objective = defaultObjective
	}
	date := now.UTC().Format("2006-01-02")

	return fmt.Sprintf(`SYSTEM:

You are a product-prioritization assistant. Rate a single idea/note on a scale from 0.00 (lowest) to 1.00 (highest). Use the following rubric with weights: Business impact 40%%, User urgency 25%%, Feasibility 20%%, Strategic alignment 15%%. The board objective is: %q

HUMAN EXAMPLES (few-shot):

Example HIGH:

Title: "Checkout failing for many users"

Content: "Payment API returns 502 on checkout for many customers. Revenue-impacting."

Meta: upvotes=32, tags=[bug]

Label: 0.98

Example LOW:

Title: "Change footer color"

Content: "Footer color appears slightly light; change to a darker shade."

Meta: upvotes=0, tags=[ui]

Label: 0.12

NEW_NOTE:

Title: %q

Content: %q

Meta: upvotes=%d, tags=[], creatorRole=user, createdAt=%s

INSTRUCTIONS:

Return EXACTLY a JSON object and nothing else with fields:

{
"score": 0.00,        // float between 0.00 and 1.00
"rationale": "..."    // 1-2 sentence explanation referencing signals used
}`, objective, title, note.Content, note.Upvotes, date)
}
