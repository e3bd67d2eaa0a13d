package presence

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/priorityhuddle/huddle/internal/realtime"
)

func TestRegistryFocusIsIdempotent(t *testing.T) {
	registry := NewRegistry()
	if !registry.Focus("board-1", "user-a", "note-1") {
		t.Fatal("first focus should register")
	}
	if registry.Focus("board-1", "user-a", "note-1") {
		t.Fatal("repeated focus should be a no-op")
	}
}

func TestRegistryBlurClearsFocus(t *testing.T) {
	registry := NewRegistry()
	registry.Focus("board-1", "user-a", "note-1")
	if !registry.Blur("board-1", "user-a", "note-1") {
		t.Fatal("blur of a focused note should report true")
	}
	if registry.Blur("board-1", "user-a", "note-1") {
		t.Fatal("blur of an unfocused note should report false")
	}
}

func TestRegistryDisconnectReturnsRemainingFocus(t *testing.T) {
	registry := NewRegistry()
	registry.Focus("board-1", "user-a", "note-1")
	registry.Focus("board-1", "user-a", "note-2")
	registry.Focus("board-1", "user-a", "note-3")
	registry.Blur("board-1", "user-a", "note-2")

	remaining := registry.Disconnect("board-1", "user-a")
	sort.Strings(remaining)
	if len(remaining) != 2 || remaining[0] != "note-1" || remaining[1] != "note-3" {
		t.Fatalf("unexpected remaining focus: %v", remaining)
	}
	if registry.Disconnect("board-1", "user-a") != nil {
		t.Fatal("second disconnect should find nothing")
	}
}

func TestRegistryScopesByBoardAndUser(t *testing.T) {
	registry := NewRegistry()
	registry.Focus("board-1", "user-a", "note-1")
	registry.Focus("board-2", "user-a", "note-9")
	registry.Focus("board-1", "user-b", "note-1")

	remaining := registry.Disconnect("board-1", "user-a")
	if len(remaining) != 1 || remaining[0] != "note-1" {
		t.Fatalf("unexpected remaining focus: %v", remaining)
	}
	if got := registry.Disconnect("board-2", "user-a"); len(got) != 1 || got[0] != "note-9" {
		t.Fatalf("board-2 focus lost: %v", got)
	}
	if got := registry.Disconnect("board-1", "user-b"); len(got) != 1 {
		t.Fatalf("user-b focus lost: %v", got)
	}
}

func TestBroadcasterStampsAvatarBadge(t *testing.T) {
	dispatcher := realtime.NewDispatcher()
	stream, cancel := dispatcher.Subscribe(context.Background(), realtime.Subscription{UserID: "viewer", BoardID: "board-1"})
	defer cancel()

	broadcaster := NewBroadcaster(dispatcher)
	broadcaster.Announce("board-1", "note-1", Editor{UserID: "user-a", Username: "ada.lovelace", Email: "ada@example.com"}, realtime.StatusFocus)

	select {
	case envelope := <-stream:
		event := envelope.Presence
		if event == nil {
			t.Fatalf("expected presence envelope, got %+v", envelope)
		}
		if event.Status != realtime.StatusFocus || event.NoteID != "note-1" || event.UserID != "user-a" {
			t.Fatalf("unexpected event: %+v", event)
		}
		if event.Initials == "" || event.ColorHex == "" || event.DisplayName == "" {
			t.Fatalf("badge not stamped: %+v", event)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for presence event")
	}
}

func TestBroadcasterDropsUnknownStatus(t *testing.T) {
	dispatcher := realtime.NewDispatcher()
	stream, cancel := dispatcher.Subscribe(context.Background(), realtime.Subscription{UserID: "viewer", BoardID: "board-1"})
	defer cancel()

	NewBroadcaster(dispatcher).Announce("board-1", "note-1", Editor{UserID: "user-a"}, "IDLE")

	select {
	case envelope := <-stream:
		t.Fatalf("unexpected envelope: %+v", envelope)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRosterFocusAndBlur(t *testing.T) {
	roster := NewRoster()
	focus := realtime.PresenceEvent{NoteID: "note-1", UserID: "user-a", Username: "ada", Status: realtime.StatusFocus, Initials: "A"}
	roster.Apply(focus)
	roster.Apply(focus)

	editors := roster.Editors("note-1")
	if len(editors) != 1 || editors[0].UserID != "user-a" {
		t.Fatalf("unexpected editors: %+v", editors)
	}

	roster.Apply(realtime.PresenceEvent{NoteID: "note-1", UserID: "user-a", Status: realtime.StatusBlur})
	if got := roster.Editors("note-1"); got != nil {
		t.Fatalf("expected empty roster, got %+v", got)
	}
}

func TestRosterBlurWithoutFocusIsNoOp(t *testing.T) {
	roster := NewRoster()
	roster.Apply(realtime.PresenceEvent{NoteID: "note-1", UserID: "user-a", Status: realtime.StatusBlur})
	if got := roster.ActiveEditors(); got != nil {
		t.Fatalf("expected empty roster, got %+v", got)
	}
}

func TestRosterOtherEditorsExcludesViewer(t *testing.T) {
	roster := NewRoster()
	roster.Apply(realtime.PresenceEvent{NoteID: "note-1", UserID: "user-a", Status: realtime.StatusFocus})
	roster.Apply(realtime.PresenceEvent{NoteID: "note-1", UserID: "user-b", Status: realtime.StatusFocus})

	others := roster.OtherEditors("note-1", "user-a")
	if len(others) != 1 || others[0].UserID != "user-b" {
		t.Fatalf("unexpected others: %+v", others)
	}
}

func TestRosterActiveEditorsDeduplicatesAcrossNotes(t *testing.T) {
	roster := NewRoster()
	roster.Apply(realtime.PresenceEvent{NoteID: "note-1", UserID: "user-a", Status: realtime.StatusFocus})
	roster.Apply(realtime.PresenceEvent{NoteID: "note-2", UserID: "user-a", Status: realtime.StatusFocus})
	roster.Apply(realtime.PresenceEvent{NoteID: "note-2", UserID: "user-b", Status: realtime.StatusFocus})

	active := roster.ActiveEditors()
	if len(active) != 2 {
		t.Fatalf("expected 2 active editors, got %+v", active)
	}
	if active[0].UserID != "user-a" || active[1].UserID != "user-b" {
		t.Fatalf("unexpected order: %+v", active)
	}
}
