package notes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/priorityhuddle/huddle/internal/boards"
	"github.com/priorityhuddle/huddle/internal/realtime"
	"github.com/priorityhuddle/huddle/internal/scoring"
	"github.com/priorityhuddle/huddle/internal/users"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	errMissingBoards     = errors.New("board directory is required")
	errMissingUsers      = errors.New("user directory is required")
	errMissingEngine     = errors.New("scoring engine is required")
	noOpLogger           = zap.NewNop()

	ErrNotFound          = errors.New("note not found")
	ErrNotAuthorized     = errors.New("actor may not touch this note")
	ErrBoardArchived     = errors.New("board is archived")
	ErrVotingDisabled    = errors.New("voting is disabled on this board")
	ErrDownvotesDisabled = errors.New("downvotes are disabled on this board")
	ErrInvalidVote       = errors.New("vote direction must be UP or DOWN")
)

// ServiceError carries an operation.reason code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

const (
	opServiceNew    = "notes.service.new"
	opCreate        = "notes.create"
	opUpdateContent = "notes.update_content"
	opMove          = "notes.move"
	opResize        = "notes.resize"
	opVote          = "notes.vote"
	opDelete        = "notes.delete"
	opList          = "notes.list"
	opPurgeBoard    = "notes.purge_board"
)

// Vote directions accepted by Vote.
const (
	VoteUp   = "UP"
	VoteDown = "DOWN"
)

// BoardDirectory supplies board lookups with membership authorization.
type BoardDirectory interface {
	RequireMembership(ctx context.Context, actorID, boardID string) (boards.Board, error)
}

// UserDirectory resolves user identities for event snapshots.
type UserDirectory interface {
	GetByID(ctx context.Context, userID string) (users.User, error)
}

// Publisher fans a board event out to its subscribers.
type Publisher interface {
	Publish(envelope realtime.Envelope)
}

type IDProvider interface {
	NewID() (string, error)
}

type ServiceConfig struct {
	Database   *gorm.DB
	IDProvider IDProvider
	Boards     BoardDirectory
	Users      UserDirectory
	Engine     *scoring.Engine
	Publisher  Publisher
	Clock      func() time.Time
	Logger     *zap.Logger
}

// Service owns note persistence, scoring, and event publication. Every
// mutation persists first and publishes exactly one envelope afterwards, so
// subscribers never observe state the database does not have.
type Service struct {
	db        *gorm.DB
	ids       IDProvider
	boards    BoardDirectory
	users     UserDirectory
	engine    *scoring.Engine
	publisher Publisher
	clock     func() time.Time
	logger    *zap.Logger
}

func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	if cfg.Boards == nil {
		return nil, newServiceError(opServiceNew, "missing_boards", errMissingBoards)
	}
	if cfg.Users == nil {
		return nil, newServiceError(opServiceNew, "missing_users", errMissingUsers)
	}
	if cfg.Engine == nil {
		return nil, newServiceError(opServiceNew, "missing_engine", errMissingEngine)
	}

	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}

	return &Service{
		db:        cfg.Database,
		ids:       cfg.IDProvider,
		boards:    cfg.Boards,
		users:     cfg.Users,
		engine:    cfg.Engine,
		publisher: cfg.Publisher,
		clock:     clock,
		logger:    logger,
	}, nil
}

type CreateInput struct {
	BoardID   string
	Content   string
	Color     string
	PositionX *float64
	PositionY *float64
	Width     *float64
	Height    *float64
}

type ContentInput struct {
	Content *string
	Color   *string
}

// Create persists a new note with board defaults, scores it, and publishes
// the snapshot. The score is computed before the event leaves, so every
// subscriber sees the note with its priority already settled.
func (s *Service) Create(ctx context.Context, actorID string, input CreateInput) (Note, error) {
	board, err := s.boards.RequireMembership(ctx, actorID, input.BoardID)
	if err != nil {
		return Note{}, err
	}
	if board.IsArchived {
		return Note{}, newServiceError(opCreate, "board_archived", ErrBoardArchived)
	}

	noteID, err := s.ids.NewID()
	if err != nil {
		s.logError(opCreate, "id_generation_failed", err)
		return Note{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	note := Note{
		ID:        noteID,
		BoardID:   board.ID,
		CreatorID: actorID,
		Content:   input.Content,
		Color:     strings.TrimSpace(input.Color),
		PositionX: DefaultPositionX,
		PositionY: DefaultPositionY,
		Width:     DefaultWidth,
		Height:    DefaultHeight,
	}
	if note.Color == "" {
		note.Color = board.DefaultNoteColor
	}
	if note.Color == "" {
		note.Color = defaultColor
	}
	if input.PositionX != nil {
		note.PositionX = *input.PositionX
	}
	if input.PositionY != nil {
		note.PositionY = *input.PositionY
	}
	if input.Width != nil {
		note.Width = clampDimension(*input.Width, MinWidth)
	}
	if input.Height != nil {
		note.Height = clampDimension(*input.Height, MinHeight)
	}

	if err := s.rescore(ctx, &note, board); err != nil {
		return Note{}, newServiceError(opCreate, "score_failed", err)
	}

	if err := s.db.WithContext(ctx).Create(&note).Error; err != nil {
		s.logError(opCreate, "insert_failed", err, zap.String("board_id", board.ID))
		return Note{}, newServiceError(opCreate, "insert_failed", err)
	}

	s.publishSnapshot(ctx, note)
	return note, nil
}

// UpdateContent applies content and color edits. Content changes trigger a
// re-score; color alone never does.
func (s *Service) UpdateContent(ctx context.Context, actorID, noteID string, input ContentInput) (Note, error) {
	note, board, err := s.loadForMutation(ctx, opUpdateContent, actorID, noteID)
	if err != nil {
		return Note{}, err
	}

	contentChanged := false
	if input.Content != nil && *input.Content != note.Content {
		note.Content = *input.Content
		contentChanged = true
	}
	if input.Color != nil && strings.TrimSpace(*input.Color) != "" {
		note.Color = strings.TrimSpace(*input.Color)
	}

	if contentChanged {
		if err := s.rescore(ctx, &note, board); err != nil {
			return Note{}, newServiceError(opUpdateContent, "score_failed", err)
		}
	}

	if err := s.db.WithContext(ctx).Save(&note).Error; err != nil {
		s.logError(opUpdateContent, "save_failed", err, zap.String("note_id", note.ID))
		return Note{}, newServiceError(opUpdateContent, "save_failed", err)
	}

	s.publishSnapshot(ctx, note)
	return note, nil
}

// UpdatePosition moves the note. Layout changes never re-score.
func (s *Service) UpdatePosition(ctx context.Context, actorID, noteID string, x, y float64) (Note, error) {
	note, _, err := s.loadForMutation(ctx, opMove, actorID, noteID)
	if err != nil {
		return Note{}, err
	}

	note.PositionX = x
	note.PositionY = y
	if err := s.db.WithContext(ctx).Save(&note).Error; err != nil {
		s.logError(opMove, "save_failed", err, zap.String("note_id", note.ID))
		return Note{}, newServiceError(opMove, "save_failed", err)
	}

	s.publishSnapshot(ctx, note)
	return note, nil
}

// UpdateSize resizes the note, holding both dimensions above their floors.
func (s *Service) UpdateSize(ctx context.Context, actorID, noteID string, width, height float64) (Note, error) {
	note, _, err := s.loadForMutation(ctx, opResize, actorID, noteID)
	if err != nil {
		return Note{}, err
	}

	note.Width = clampDimension(width, MinWidth)
	note.Height = clampDimension(height, MinHeight)
	if err := s.db.WithContext(ctx).Save(&note).Error; err != nil {
		s.logError(opResize, "save_failed", err, zap.String("note_id", note.ID))
		return Note{}, newServiceError(opResize, "save_failed", err)
	}

	s.publishSnapshot(ctx, note)
	return note, nil
}

// Vote adjusts the counter with a single relative UPDATE so concurrent votes
// on the same note never lose increments, then recomputes the priority from
// the stored content score and the board's fresh vote maximum.
func (s *Service) Vote(ctx context.Context, actorID, noteID, direction string) (Note, error) {
	note, board, err := s.loadForMutation(ctx, opVote, actorID, noteID)
	if err != nil {
		return Note{}, err
	}
	if !board.EnableVoting {
		return Note{}, newServiceError(opVote, "voting_disabled", ErrVotingDisabled)
	}

	var expr interface{}
	switch direction {
	case VoteUp:
		expr = gorm.Expr("upvotes + 1")
	case VoteDown:
		if !board.AllowDownvotes {
			return Note{}, newServiceError(opVote, "downvotes_disabled", ErrDownvotesDisabled)
		}
		expr = gorm.Expr("CASE WHEN upvotes > 0 THEN upvotes - 1 ELSE 0 END")
	default:
		return Note{}, newServiceError(opVote, "invalid_direction", ErrInvalidVote)
	}

	if err := s.db.WithContext(ctx).Model(&Note{}).
		Where("id = ?", note.ID).
		UpdateColumn("upvotes", expr).Error; err != nil {
		s.logError(opVote, "counter_update_failed", err, zap.String("note_id", note.ID))
		return Note{}, newServiceError(opVote, "counter_update_failed", err)
	}

	if err := s.db.WithContext(ctx).Take(&note, "id = ?", note.ID).Error; err != nil {
		s.logError(opVote, "reload_failed", err, zap.String("note_id", note.ID))
		return Note{}, newServiceError(opVote, "reload_failed", err)
	}

	maxUpvotes, err := s.maxBoardUpvotes(ctx, board.ID)
	if err != nil {
		s.logError(opVote, "max_upvotes_failed", err, zap.String("board_id", board.ID))
		return Note{}, newServiceError(opVote, "max_upvotes_failed", err)
	}
	note.AIPriorityScore = s.priority(note, board, maxUpvotes)

	if err := s.db.WithContext(ctx).Model(&Note{}).
		Where("id = ?", note.ID).
		UpdateColumn("ai_priority_score", note.AIPriorityScore).Error; err != nil {
		s.logError(opVote, "priority_update_failed", err, zap.String("note_id", note.ID))
		return Note{}, newServiceError(opVote, "priority_update_failed", err)
	}

	s.publishSnapshot(ctx, note)
	return note, nil
}

// Delete removes the note and broadcasts a deletion marker. Any board member
// may delete; membership was already proven by loadForMutation.
func (s *Service) Delete(ctx context.Context, actorID, noteID string) error {
	note, _, err := s.loadForMutation(ctx, opDelete, actorID, noteID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&Note{}, "id = ?", note.ID).Error; err != nil {
		s.logError(opDelete, "delete_failed", err, zap.String("note_id", note.ID))
		return newServiceError(opDelete, "delete_failed", err)
	}

	if s.publisher != nil {
		deletion := realtime.NewNoteDeletion(note.ID)
		s.publisher.Publish(realtime.Envelope{
			BoardID:  note.BoardID,
			Kind:     realtime.KindNote,
			Deletion: &deletion,
		})
	}
	return nil
}

// List returns the board's notes, newest first, for session bootstrap.
func (s *Service) List(ctx context.Context, actorID, boardID string) ([]Note, error) {
	if _, err := s.boards.RequireMembership(ctx, actorID, boardID); err != nil {
		return nil, err
	}

	var all []Note
	if err := s.db.WithContext(ctx).
		Where("board_id = ?", boardID).
		Order("created_at DESC").
		Find(&all).Error; err != nil {
		s.logError(opList, "query_failed", err, zap.String("board_id", boardID))
		return nil, newServiceError(opList, "query_failed", err)
	}
	return all, nil
}

// PurgeBoard removes every note on the board. Callers own the authorization
// decision; board deletion runs this before removing the board row.
func (s *Service) PurgeBoard(ctx context.Context, boardID string) error {
	if err := s.db.WithContext(ctx).Delete(&Note{}, "board_id = ?", boardID).Error; err != nil {
		s.logError(opPurgeBoard, "delete_failed", err, zap.String("board_id", boardID))
		return newServiceError(opPurgeBoard, "delete_failed", err)
	}
	return nil
}

// Snapshot renders the wire representation of a note, with the creator's
// identity resolved for display.
func (s *Service) Snapshot(ctx context.Context, note Note) realtime.NoteSnapshot {
	creator := realtime.Creator{ID: note.CreatorID}
	if user, err := s.users.GetByID(ctx, note.CreatorID); err == nil {
		creator.Username = user.Username
	}
	priority := note.AIPriorityScore
	return realtime.NoteSnapshot{
		Typename:        realtime.TypenameNote,
		ID:              note.ID,
		Content:         note.Content,
		Color:           note.Color,
		PositionX:       note.PositionX,
		PositionY:       note.PositionY,
		Upvotes:         note.Upvotes,
		AIPriorityScore: &priority,
		AIContentScore:  note.AIContentScore,
		AIRationale:     note.AIRationale,
		Width:           note.Width,
		Height:          note.Height,
		Creator:         creator,
	}
}

func (s *Service) loadForMutation(ctx context.Context, operation, actorID, noteID string) (Note, boards.Board, error) {
	var note Note
	err := s.db.WithContext(ctx).Take(&note, "id = ?", noteID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Note{}, boards.Board{}, newServiceError(operation, "not_found", ErrNotFound)
	}
	if err != nil {
		s.logError(operation, "lookup_failed", err, zap.String("note_id", noteID))
		return Note{}, boards.Board{}, newServiceError(operation, "lookup_failed", err)
	}

	board, err := s.boards.RequireMembership(ctx, actorID, note.BoardID)
	if err != nil {
		return Note{}, boards.Board{}, err
	}
	if board.IsArchived {
		return Note{}, boards.Board{}, newServiceError(operation, "board_archived", ErrBoardArchived)
	}
	return note, board, nil
}

// rescore refreshes the content score and the combined priority. Boards with
// AI scoring disabled carry no content score and rank purely by votes.
func (s *Service) rescore(ctx context.Context, note *Note, board boards.Board) error {
	if !board.EnableAIScoring {
		note.AIContentScore = nil
		note.AIRationale = nil
	} else {
		verdict := s.engine.ScoreContent(ctx, scoring.NoteContext{
			Content:   note.Content,
			Upvotes:   note.Upvotes,
			Objective: board.Objective,
		})
		note.AIContentScore = &verdict.Score
		note.AIRationale = &verdict.Rationale
	}

	maxUpvotes, err := s.maxBoardUpvotes(ctx, board.ID)
	if err != nil {
		return err
	}
	note.AIPriorityScore = s.priority(*note, board, maxUpvotes)
	return nil
}

func (s *Service) priority(note Note, board boards.Board, maxUpvotes int) float64 {
	if note.AIContentScore == nil {
		return scoring.Clamp(scoring.VoteScore(note.Upvotes, maxUpvotes))
	}
	return s.engine.Priority(*note.AIContentScore, note.Upvotes, maxUpvotes, board.AIWeight)
}

func (s *Service) maxBoardUpvotes(ctx context.Context, boardID string) (int, error) {
	var maxUpvotes int
	err := s.db.WithContext(ctx).Model(&Note{}).
		Where("board_id = ?", boardID).
		Select("COALESCE(MAX(upvotes), 0)").
		Scan(&maxUpvotes).Error
	if err != nil {
		return 0, err
	}
	return maxUpvotes, nil
}

func (s *Service) publishSnapshot(ctx context.Context, note Note) {
	if s.publisher == nil {
		return
	}
	snapshot := s.Snapshot(ctx, note)
	s.publisher.Publish(realtime.Envelope{
		BoardID: note.BoardID,
		Kind:    realtime.KindNote,
		Note:    &snapshot,
	})
}

func clampDimension(value, floor float64) float64 {
	if value < floor {
		return floor
	}
	return value
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("notes service error", attrs...)
}
