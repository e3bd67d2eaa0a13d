package scoring

import "strings"

// ContentScore is the outcome of scoring a note's text, whether produced by
// the classifier or by the deterministic fallback rules.
type ContentScore struct {
	Score     float64
	Rationale string
}

var highImpactKeywords = []string{"payment", "checkout", "outage", "error", "fail", "crash"}

// RuleScore is the deterministic fallback scorer. It must produce the same
// result for the same content on every node, since clients compare scores
// arriving from different mutations.
func RuleScore(content string) ContentScore {
	base := 0.4
	lowered := strings.ToLower(content)
	var reasons []string

	for _, keyword := range highImpactKeywords {
		if strings.Contains(lowered, keyword) {
			base += 0.3
			reasons = append(reasons, "contains high-impact keywords")
			break
		}
	}
	if len(lowered) > 180 {
		base += 0.2
		reasons = append(reasons, "long content")
	}

	rationale := "fallback: base score"
	if len(reasons) > 0 {
		rationale = "fallback: " + strings.Join(reasons, ", ")
	}
	return ContentScore{Score: Clamp(base), Rationale: rationale}
}

// VoteScore normalizes a note's upvotes against the board's current maximum.
// A board where nothing has been voted on yet contributes zero.
func VoteScore(upvotes, maxBoardUpvotes int) float64 {
	if maxBoardUpvotes <= 0 {
		return 0
	}
	score := float64(upvotes) / float64(maxBoardUpvotes)
	if score > 1 {
		return 1
	}
	return score
}

// CombinedScore blends the content score and the vote score using the
// board's AI weight.
func CombinedScore(contentScore, voteScore, aiWeight float64) float64 {
	return aiWeight*contentScore + (1-aiWeight)*voteScore
}

// Clamp confines a score to [0, 1].
func Clamp(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
