package presence

import (
	"sort"
	"sync"

	"github.com/priorityhuddle/huddle/internal/realtime"
)

// Entry is one editor as seen by a board client, badge included.
type Entry struct {
	UserID      string
	Username    string
	Initials    string
	ColorHex    string
	DisplayName string
}

// Roster is the client-side projection of presence events: who is editing
// which note right now. Events are idempotent, so replays and duplicate
// focus broadcasts never double-count an editor.
type Roster struct {
	mu     sync.Mutex
	byNote map[string]map[string]Entry
}

func NewRoster() *Roster {
	return &Roster{byNote: make(map[string]map[string]Entry)}
}

// Apply folds one presence event into the roster. Unknown statuses and
// events missing a note or user id are ignored.
func (r *Roster) Apply(event realtime.PresenceEvent) {
	if event.NoteID == "" || event.UserID == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	switch event.Status {
	case realtime.StatusFocus:
		editors, ok := r.byNote[event.NoteID]
		if !ok {
			editors = make(map[string]Entry)
			r.byNote[event.NoteID] = editors
		}
		editors[event.UserID] = Entry{
			UserID:      event.UserID,
			Username:    event.Username,
			Initials:    event.Initials,
			ColorHex:    event.ColorHex,
			DisplayName: event.DisplayName,
		}
	case realtime.StatusBlur:
		editors, ok := r.byNote[event.NoteID]
		if !ok {
			return
		}
		delete(editors, event.UserID)
		if len(editors) == 0 {
			delete(r.byNote, event.NoteID)
		}
	}
}

// Editors returns everyone currently editing the note, ordered by user id
// for stable rendering.
func (r *Roster) Editors(noteID string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedEntries(r.byNote[noteID])
}

// OtherEditors returns the note's editors excluding the viewer, which is
// what the note chrome actually renders.
func (r *Roster) OtherEditors(noteID, viewerID string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	editors := r.byNote[noteID]
	if len(editors) == 0 {
		return nil
	}
	filtered := make(map[string]Entry, len(editors))
	for userID, entry := range editors {
		if userID == viewerID {
			continue
		}
		filtered[userID] = entry
	}
	return sortedEntries(filtered)
}

// ActiveEditors flattens the roster into the distinct set of editors with at
// least one focused note, for the board header strip.
func (r *Roster) ActiveEditors() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	distinct := make(map[string]Entry)
	for _, editors := range r.byNote {
		for userID, entry := range editors {
			distinct[userID] = entry
		}
	}
	return sortedEntries(distinct)
}

func sortedEntries(editors map[string]Entry) []Entry {
	if len(editors) == 0 {
		return nil
	}
	entries := make([]Entry, 0, len(editors))
	for _, entry := range editors {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].UserID < entries[b].UserID })
	return entries
}
