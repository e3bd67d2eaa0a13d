// Package session is the client-side board state: it folds stream events
// into an ordered working set of notes, shields in-progress local gestures
// from remote overwrites, and recovers from failed optimistic mutations by
// refetching the server snapshot.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/priorityhuddle/huddle/internal/realtime"
)

var errMissingFetcher = errors.New("session: fetcher is required to refetch")

// Fetcher retrieves the authoritative note snapshot for a board.
type Fetcher interface {
	FetchNotes(ctx context.Context, boardID string) ([]realtime.NoteSnapshot, error)
}

type Config struct {
	BoardID  string
	ViewerID string
	Fetcher  Fetcher
}

// Session holds one client's view of a board. Remote events and local
// gestures race freely; the session decides which side wins per field.
type Session struct {
	mu       sync.Mutex
	boardID  string
	viewerID string
	fetcher  Fetcher

	order    []string
	notes    map[string]realtime.NoteSnapshot
	dragging map[string]struct{}
	resizing map[string]struct{}
}

func New(cfg Config) *Session {
	return &Session{
		boardID:  cfg.BoardID,
		viewerID: cfg.ViewerID,
		fetcher:  cfg.Fetcher,
		notes:    make(map[string]realtime.NoteSnapshot),
		dragging: make(map[string]struct{}),
		resizing: make(map[string]struct{}),
	}
}

// Bootstrap replaces the working set with a fresh server snapshot,
// preserving the snapshot's order.
func (s *Session) Bootstrap(snapshots []realtime.NoteSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.order = s.order[:0]
	s.notes = make(map[string]realtime.NoteSnapshot, len(snapshots))
	for _, snapshot := range snapshots {
		s.order = append(s.order, snapshot.ID)
		s.notes[snapshot.ID] = snapshot
	}
}

// Apply folds one stream envelope into the working set. Deletion always
// wins; updates respect in-progress local gestures.
func (s *Session) Apply(envelope realtime.Envelope) {
	switch {
	case envelope.Deletion != nil:
		s.applyDeletion(envelope.Deletion.ID)
	case envelope.Note != nil:
		s.applyNote(*envelope.Note)
	}
}

// applyNote inserts unknown notes at the front and merges known ones. While
// the viewer drags or resizes a note, the remote geometry for that note is
// discarded so the gesture never fights the stream.
func (s *Session) applyNote(snapshot realtime.NoteSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, known := s.notes[snapshot.ID]
	if !known {
		s.order = append([]string{snapshot.ID}, s.order...)
		s.notes[snapshot.ID] = snapshot
		return
	}
	if _, held := s.dragging[snapshot.ID]; held {
		snapshot.PositionX = existing.PositionX
		snapshot.PositionY = existing.PositionY
	}
	if _, held := s.resizing[snapshot.ID]; held {
		snapshot.Width = existing.Width
		snapshot.Height = existing.Height
	}
	s.notes[snapshot.ID] = snapshot
}

// applyDeletion removes the note even mid-gesture: a note that no longer
// exists must not stay draggable.
func (s *Session) applyDeletion(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.notes[noteID]; !known {
		return
	}
	delete(s.notes, noteID)
	delete(s.dragging, noteID)
	delete(s.resizing, noteID)
	for index, id := range s.order {
		if id == noteID {
			s.order = append(s.order[:index], s.order[index+1:]...)
			break
		}
	}
}

// BeginDrag suppresses remote position updates for the note.
func (s *Session) BeginDrag(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.notes[noteID]; known {
		s.dragging[noteID] = struct{}{}
	}
}

// EndDrag lifts the suppression; later remote positions apply again.
func (s *Session) EndDrag(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dragging, noteID)
}

// BeginResize suppresses remote size updates for the note.
func (s *Session) BeginResize(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, known := s.notes[noteID]; known {
		s.resizing[noteID] = struct{}{}
	}
}

// EndResize lifts the suppression.
func (s *Session) EndResize(noteID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resizing, noteID)
}

// SetLocalPosition moves the note in the working set without waiting for
// the server, for immediate gesture feedback.
func (s *Session) SetLocalPosition(noteID string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, known := s.notes[noteID]
	if !known {
		return
	}
	note.PositionX = x
	note.PositionY = y
	s.notes[noteID] = note
}

// SetLocalSize resizes the note locally.
func (s *Session) SetLocalSize(noteID string, width, height float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, known := s.notes[noteID]
	if !known {
		return
	}
	note.Width = width
	note.Height = height
	s.notes[noteID] = note
}

// Mutate applies an optimistic local edit and then commits it. When the
// commit fails the local guess is thrown away wholesale: the session
// refetches the server snapshot instead of trying to unpick the edit.
func (s *Session) Mutate(ctx context.Context, noteID string, optimistic func(*realtime.NoteSnapshot), commit func(context.Context) error) error {
	s.mu.Lock()
	if note, known := s.notes[noteID]; known && optimistic != nil {
		optimistic(&note)
		s.notes[noteID] = note
	}
	s.mu.Unlock()

	if err := commit(ctx); err != nil {
		if refetchErr := s.Refetch(ctx); refetchErr != nil {
			return errors.Join(err, refetchErr)
		}
		return err
	}
	return nil
}

// Refetch replaces the working set with the server's current snapshot.
func (s *Session) Refetch(ctx context.Context) error {
	if s.fetcher == nil {
		return errMissingFetcher
	}
	snapshots, err := s.fetcher.FetchNotes(ctx, s.boardID)
	if err != nil {
		return err
	}
	s.Bootstrap(snapshots)
	return nil
}

// Notes returns the working set in display order.
func (s *Session) Notes() []realtime.NoteSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshots := make([]realtime.NoteSnapshot, 0, len(s.order))
	for _, id := range s.order {
		if note, known := s.notes[id]; known {
			snapshots = append(snapshots, note)
		}
	}
	return snapshots
}

// Note returns one note by id.
func (s *Session) Note(noteID string) (realtime.NoteSnapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, known := s.notes[noteID]
	return note, known
}
