package boards

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/priorityhuddle/huddle/internal/ident"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:boards_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Board{}, &Collaborator{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	service, err := NewService(ServiceConfig{
		Database:        db,
		IDProvider:      ident.NewUUIDProvider(),
		DefaultAIWeight: 0.7,
	})
	if err != nil {
		t.Fatalf("failed to construct board service: %v", err)
	}
	return service
}

func TestCreateAppliesDefaults(t *testing.T) {
	service := newTestService(t)
	board, err := service.Create(context.Background(), "owner-1", CreateInput{Title: "Launch blockers"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if board.AIWeight != 0.7 {
		t.Fatalf("expected default ai weight 0.7, got %f", board.AIWeight)
	}
	if !board.EnableAIScoring || !board.EnableVoting || !board.AllowDownvotes {
		t.Fatal("expected scoring and voting enabled by default")
	}
	if board.DefaultNoteColor != "#ffffff" {
		t.Fatalf("expected default note color #ffffff, got %s", board.DefaultNoteColor)
	}
}

func TestCreateClampsAIWeight(t *testing.T) {
	service := newTestService(t)
	weight := 1.4
	board, err := service.Create(context.Background(), "owner-1", CreateInput{Title: "Board", AIWeight: &weight})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if board.AIWeight != 1.0 {
		t.Fatalf("expected ai weight clamped to 1.0, got %f", board.AIWeight)
	}
}

func TestGetEnforcesMembership(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	board, err := service.Create(ctx, "owner-1", CreateInput{Title: "Private board"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if _, err := service.Get(ctx, "owner-1", board.ID); err != nil {
		t.Fatalf("expected owner access, got %v", err)
	}
	if _, err := service.Get(ctx, "stranger", board.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	if err := service.AddCollaborator(ctx, "owner-1", board.ID, "friend"); err != nil {
		t.Fatalf("unexpected collaborator error: %v", err)
	}
	if _, err := service.Get(ctx, "friend", board.ID); err != nil {
		t.Fatalf("expected collaborator access, got %v", err)
	}
}

func TestGetUnknownBoard(t *testing.T) {
	service := newTestService(t)
	if _, err := service.Get(context.Background(), "owner-1", "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddCollaboratorRules(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	board, err := service.Create(ctx, "owner-1", CreateInput{Title: "Board"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	if err := service.AddCollaborator(ctx, "intruder", board.ID, "friend"); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized for non-owner, got %v", err)
	}
	if err := service.AddCollaborator(ctx, "owner-1", board.ID, "owner-1"); !errors.Is(err, ErrCollaboratorIsOwner) {
		t.Fatalf("expected ErrCollaboratorIsOwner, got %v", err)
	}
	if err := service.AddCollaborator(ctx, "owner-1", board.ID, "friend"); err != nil {
		t.Fatalf("unexpected collaborator error: %v", err)
	}
	if err := service.AddCollaborator(ctx, "owner-1", board.ID, "friend"); !errors.Is(err, ErrAlreadyCollaborator) {
		t.Fatalf("expected ErrAlreadyCollaborator, got %v", err)
	}

	ids, err := service.CollaboratorIDs(ctx, board.ID)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "friend" {
		t.Fatalf("expected single collaborator friend, got %#v", ids)
	}
}

func TestListMineIncludesCollaborations(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	owned, err := service.Create(ctx, "alice", CreateInput{Title: "Alice board"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	shared, err := service.Create(ctx, "bob", CreateInput{Title: "Bob board"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if _, err := service.Create(ctx, "carol", CreateInput{Title: "Carol board"}); err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}
	if err := service.AddCollaborator(ctx, "bob", shared.ID, "alice"); err != nil {
		t.Fatalf("unexpected collaborator error: %v", err)
	}

	mine, err := service.ListMine(ctx, "alice")
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 boards for alice, got %d", len(mine))
	}
	seen := map[string]bool{}
	for _, board := range mine {
		seen[board.ID] = true
	}
	if !seen[owned.ID] || !seen[shared.ID] {
		t.Fatalf("expected owned and shared boards, got %#v", seen)
	}
}

func TestUpdateSettingsOwnerOnly(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	board, err := service.Create(ctx, "owner-1", CreateInput{Title: "Board"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	weight := 0.5
	votes := false
	if _, err := service.UpdateSettings(ctx, "stranger", board.ID, SettingsInput{AIWeight: &weight}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}

	updated, err := service.UpdateSettings(ctx, "owner-1", board.ID, SettingsInput{AIWeight: &weight, EnableVoting: &votes})
	if err != nil {
		t.Fatalf("unexpected settings error: %v", err)
	}
	if updated.AIWeight != 0.5 {
		t.Fatalf("expected ai weight 0.5, got %f", updated.AIWeight)
	}
	if updated.EnableVoting {
		t.Fatal("expected voting disabled")
	}
}

func TestArchiveAndRemove(t *testing.T) {
	service := newTestService(t)
	ctx := context.Background()

	board, err := service.Create(ctx, "owner-1", CreateInput{Title: "Board"})
	if err != nil {
		t.Fatalf("unexpected create error: %v", err)
	}

	archived, err := service.Archive(ctx, "owner-1", board.ID)
	if err != nil {
		t.Fatalf("unexpected archive error: %v", err)
	}
	if !archived.IsArchived {
		t.Fatal("expected board to be archived")
	}

	if _, err := service.RequireOwner(ctx, "stranger", board.ID); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
	if _, err := service.RequireOwner(ctx, "owner-1", board.ID); err != nil {
		t.Fatalf("unexpected owner check error: %v", err)
	}

	if err := service.Remove(ctx, board.ID); err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if _, err := service.Get(ctx, "owner-1", board.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after removal, got %v", err)
	}
}
