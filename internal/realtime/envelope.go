package realtime

import "strings"

// Event kinds carried over a board stream.
const (
	KindNote     = "note"
	KindPresence = "presence"
)

// Typename discriminators for note payloads.
const (
	TypenameNote         = "Note"
	TypenameNoteDeletion = "NoteDeletionPayload"
)

// Presence statuses.
const (
	StatusFocus = "FOCUS"
	StatusBlur  = "BLUR"
)

// Creator is the embedded author reference on a note snapshot.
type Creator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// NoteSnapshot is the full note shape broadcast after every mutation. The
// score fields are pointers so an unscored note serializes as null rather
// than zero.
type NoteSnapshot struct {
	Typename        string   `json:"__typename"`
	ID              string   `json:"id"`
	Content         string   `json:"content"`
	Color           string   `json:"color"`
	PositionX       float64  `json:"positionX"`
	PositionY       float64  `json:"positionY"`
	Upvotes         int      `json:"upvotes"`
	AIPriorityScore *float64 `json:"aiPriorityScore"`
	AIContentScore  *float64 `json:"aiContentScore"`
	AIRationale     *string  `json:"aiRationale"`
	Width           float64  `json:"width"`
	Height          float64  `json:"height"`
	Creator         Creator  `json:"creator"`
}

// NoteDeletion marks a removal. It is deliberately a distinct shape from
// NoteSnapshot so subscribers can tell removal apart from update.
type NoteDeletion struct {
	Typename string `json:"__typename"`
	ID       string `json:"id"`
	Deleted  bool   `json:"deleted"`
}

// NewNoteDeletion builds a deletion marker for the given note id.
func NewNoteDeletion(noteID string) NoteDeletion {
	return NoteDeletion{Typename: TypenameNoteDeletion, ID: noteID, Deleted: true}
}

// PresenceEvent announces a focus or blur on a note's edit surface.
type PresenceEvent struct {
	NoteID      string `json:"noteId"`
	UserID      string `json:"userId"`
	Username    string `json:"username"`
	Status      string `json:"status"`
	Initials    string `json:"initials"`
	ColorHex    string `json:"colorHex"`
	DisplayName string `json:"displayName"`
}

// Envelope wraps one broadcast payload with the board id used for subscriber
// filtering. The board id never reaches the payload consumers.
type Envelope struct {
	BoardID  string
	Kind     string
	Note     *NoteSnapshot
	Deletion *NoteDeletion
	Presence *PresenceEvent
}

// NormalizeBoardID coerces a board id to its canonical comparison form.
// Identifiers can reach the bus from route params, payloads, or persisted
// rows; comparing anything but the canonical form produces false negatives.
func NormalizeBoardID(boardID string) string {
	return strings.TrimSpace(boardID)
}
