package presence

import (
	"sync"

	"github.com/priorityhuddle/huddle/internal/realtime"
)

// Registry remembers which notes each connected user is editing so that a
// dropped stream can be translated into blur events. Focus state lives only
// for as long as the user's board stream: it is never persisted.
type Registry struct {
	mu      sync.Mutex
	focused map[registryKey]map[string]struct{}
}

type registryKey struct {
	boardID string
	userID  string
}

func NewRegistry() *Registry {
	return &Registry{focused: make(map[registryKey]map[string]struct{})}
}

// Focus records that the user started editing the note. Repeated focus on
// the same note is a no-op and reports false.
func (r *Registry) Focus(boardID, userID, noteID string) bool {
	key := registryKey{boardID: realtime.NormalizeBoardID(boardID), userID: userID}
	if key.boardID == "" || key.userID == "" || noteID == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	notes, ok := r.focused[key]
	if !ok {
		notes = make(map[string]struct{})
		r.focused[key] = notes
	}
	if _, already := notes[noteID]; already {
		return false
	}
	notes[noteID] = struct{}{}
	return true
}

// Blur clears the focus mark and reports whether the note was focused.
func (r *Registry) Blur(boardID, userID, noteID string) bool {
	key := registryKey{boardID: realtime.NormalizeBoardID(boardID), userID: userID}
	r.mu.Lock()
	defer r.mu.Unlock()
	notes, ok := r.focused[key]
	if !ok {
		return false
	}
	if _, focused := notes[noteID]; !focused {
		return false
	}
	delete(notes, noteID)
	if len(notes) == 0 {
		delete(r.focused, key)
	}
	return true
}

// Disconnect removes every focus mark held by the user on the board and
// returns the note ids that still need a blur broadcast.
func (r *Registry) Disconnect(boardID, userID string) []string {
	key := registryKey{boardID: realtime.NormalizeBoardID(boardID), userID: userID}
	r.mu.Lock()
	defer r.mu.Unlock()
	notes, ok := r.focused[key]
	if !ok {
		return nil
	}
	delete(r.focused, key)
	noteIDs := make([]string, 0, len(notes))
	for noteID := range notes {
		noteIDs = append(noteIDs, noteID)
	}
	return noteIDs
}
