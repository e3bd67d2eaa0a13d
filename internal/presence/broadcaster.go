package presence

import (
	"github.com/priorityhuddle/huddle/internal/avatar"
	"github.com/priorityhuddle/huddle/internal/realtime"
)

// Editor identifies one participant for presence broadcasts.
type Editor struct {
	UserID   string
	Username string
	Email    string
}

// Broadcaster publishes focus and blur events onto a board stream, stamped
// with the editor's avatar badge so clients render without a user lookup.
type Broadcaster struct {
	dispatcher *realtime.Dispatcher
}

func NewBroadcaster(dispatcher *realtime.Dispatcher) *Broadcaster {
	return &Broadcaster{dispatcher: dispatcher}
}

// Announce publishes a presence transition for the note. Status must be one
// of realtime.StatusFocus or realtime.StatusBlur; anything else is dropped.
func (b *Broadcaster) Announce(boardID, noteID string, editor Editor, status string) {
	if status != realtime.StatusFocus && status != realtime.StatusBlur {
		return
	}
	badge := avatar.ForUser(editor.Username, editor.Email)
	b.dispatcher.Publish(realtime.Envelope{
		BoardID: boardID,
		Kind:    realtime.KindPresence,
		Presence: &realtime.PresenceEvent{
			NoteID:      noteID,
			UserID:      editor.UserID,
			Username:    editor.Username,
			Status:      status,
			Initials:    badge.Initials,
			ColorHex:    badge.ColorHex,
			DisplayName: badge.DisplayName,
		},
	})
}
