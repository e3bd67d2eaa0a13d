package boards

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/priorityhuddle/huddle/internal/ident"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()

	// ErrNotFound indicates the referenced board does not exist.
	ErrNotFound = errors.New("boards: board not found")
	// ErrNotAuthorized indicates the acting user is not permitted to perform
	// the operation on this board.
	ErrNotAuthorized = errors.New("boards: not authorized")
	// ErrAlreadyCollaborator indicates the invited user is already on the board.
	ErrAlreadyCollaborator = errors.New("boards: user is already a collaborator")
	// ErrCollaboratorIsOwner indicates an attempt to invite the board owner.
	ErrCollaboratorIsOwner = errors.New("boards: user is already the creator")
)

const (
	opServiceNew        = "boards.service.new"
	opCreate            = "boards.create"
	opGet               = "boards.get"
	opListMine          = "boards.list_mine"
	opAddCollaborator   = "boards.add_collaborator"
	opUpdateSettings    = "boards.update_settings"
	opArchive           = "boards.archive"
	opRemove            = "boards.remove"
	opRequireOwner      = "boards.require_owner"
	opRequireMembership = "boards.require_membership"
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

// Code returns the machine-readable error code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// CreateInput captures the board creation wizard payload.
type CreateInput struct {
	Title                         string
	Objective                     string
	TimeHorizon                   string
	Category                      string
	AIWeight                      *float64
	EnableAIScoring               *bool
	EnableVoting                  *bool
	AllowDownvotes                *bool
	RequireOwnerApprovalForDelete *bool
}

// SettingsInput carries a partial board settings update. Nil fields are left
// unchanged.
type SettingsInput struct {
	Title                         *string
	Objective                     *string
	TimeHorizon                   *string
	Category                      *string
	AIWeight                      *float64
	EnableAIScoring               *bool
	EnableVoting                  *bool
	AllowDownvotes                *bool
	RequireOwnerApprovalForDelete *bool
	DefaultNoteColor              *string
	SnapToGrid                    *bool
	BackgroundTheme               *string
	ShowLeaderboardByDefault      *bool
}

// ServiceConfig describes the dependencies for board management.
type ServiceConfig struct {
	Database        *gorm.DB
	IDProvider      ident.Provider
	DefaultAIWeight float64
	Logger          *zap.Logger
}

// Service manages boards, their membership, and their scoring configuration.
type Service struct {
	db              *gorm.DB
	idProvider      ident.Provider
	defaultAIWeight float64
	logger          *zap.Logger
}

// NewService constructs the board service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError(opServiceNew, "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError(opServiceNew, "missing_id_provider", errMissingIDProvider)
	}
	weight := cfg.DefaultAIWeight
	if weight <= 0 || weight > 1 {
		weight = 0.7
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:              cfg.Database,
		idProvider:      cfg.IDProvider,
		defaultAIWeight: weight,
		logger:          logger,
	}, nil
}

// Create persists a new board owned by creatorID.
func (s *Service) Create(ctx context.Context, creatorID string, input CreateInput) (Board, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return Board{}, newServiceError(opCreate, "missing_title", errors.New("board title is required"))
	}
	id, err := s.idProvider.NewID()
	if err != nil {
		return Board{}, newServiceError(opCreate, "id_generation_failed", err)
	}

	board := Board{
		ID:               id,
		Title:            title,
		Objective:        strings.TrimSpace(input.Objective),
		TimeHorizon:      strings.TrimSpace(input.TimeHorizon),
		Category:         strings.TrimSpace(input.Category),
		CreatorID:        creatorID,
		AIWeight:         s.defaultAIWeight,
		EnableAIScoring:  true,
		EnableVoting:     true,
		AllowDownvotes:   true,
		DefaultNoteColor: "#ffffff",
	}
	if input.AIWeight != nil {
		board.AIWeight = clampWeight(*input.AIWeight)
	}
	if input.EnableAIScoring != nil {
		board.EnableAIScoring = *input.EnableAIScoring
	}
	if input.EnableVoting != nil {
		board.EnableVoting = *input.EnableVoting
	}
	if input.AllowDownvotes != nil {
		board.AllowDownvotes = *input.AllowDownvotes
	}
	if input.RequireOwnerApprovalForDelete != nil {
		board.RequireOwnerApprovalForDelete = *input.RequireOwnerApprovalForDelete
	}

	if err := s.db.WithContext(ctx).Create(&board).Error; err != nil {
		s.logger.Error("board insert failed", zap.String("operation", opCreate), zap.Error(err))
		return Board{}, newServiceError(opCreate, "insert_failed", err)
	}
	return board, nil
}

// Get loads a board the acting user is allowed to view.
func (s *Service) Get(ctx context.Context, actorID, boardID string) (Board, error) {
	board, err := s.load(ctx, opGet, boardID)
	if err != nil {
		return Board{}, err
	}
	member, err := s.isMember(ctx, board, actorID)
	if err != nil {
		return Board{}, newServiceError(opGet, "membership_lookup_failed", err)
	}
	if !member {
		return Board{}, newServiceError(opGet, "not_authorized", ErrNotAuthorized)
	}
	return board, nil
}

// ListMine returns every board the user owns or collaborates on, newest first.
func (s *Service) ListMine(ctx context.Context, actorID string) ([]Board, error) {
	var found []Board
	err := s.db.WithContext(ctx).
		Where("creator_id = ? OR id IN (?)",
			actorID,
			s.db.Model(&Collaborator{}).Select("board_id").Where("user_id = ?", actorID),
		).
		Order("created_at DESC").
		Find(&found).Error
	if err != nil {
		return nil, newServiceError(opListMine, "query_failed", err)
	}
	return found, nil
}

// AddCollaborator invites a user onto the board. Owner only.
func (s *Service) AddCollaborator(ctx context.Context, actorID, boardID, collaboratorID string) error {
	board, err := s.load(ctx, opAddCollaborator, boardID)
	if err != nil {
		return err
	}
	if board.CreatorID != actorID {
		return newServiceError(opAddCollaborator, "not_authorized", ErrNotAuthorized)
	}
	if collaboratorID == board.CreatorID {
		return newServiceError(opAddCollaborator, "collaborator_is_owner", ErrCollaboratorIsOwner)
	}

	var count int64
	err = s.db.WithContext(ctx).Model(&Collaborator{}).
		Where("board_id = ? AND user_id = ?", boardID, collaboratorID).
		Count(&count).Error
	if err != nil {
		return newServiceError(opAddCollaborator, "membership_lookup_failed", err)
	}
	if count > 0 {
		return newServiceError(opAddCollaborator, "already_collaborator", ErrAlreadyCollaborator)
	}

	record := Collaborator{BoardID: boardID, UserID: collaboratorID}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return newServiceError(opAddCollaborator, "insert_failed", err)
	}
	return nil
}

// CollaboratorIDs lists the invited user ids for a board.
func (s *Service) CollaboratorIDs(ctx context.Context, boardID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&Collaborator{}).
		Where("board_id = ?", boardID).
		Order("created_at ASC").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, newServiceError(opGet, "membership_lookup_failed", err)
	}
	return ids, nil
}

// UpdateSettings applies a partial settings update. Owner only.
func (s *Service) UpdateSettings(ctx context.Context, actorID, boardID string, input SettingsInput) (Board, error) {
	board, err := s.load(ctx, opUpdateSettings, boardID)
	if err != nil {
		return Board{}, err
	}
	if board.CreatorID != actorID {
		return Board{}, newServiceError(opUpdateSettings, "not_authorized", ErrNotAuthorized)
	}

	updates := map[string]interface{}{}
	if input.Title != nil && strings.TrimSpace(*input.Title) != "" {
		updates["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Objective != nil {
		updates["objective"] = strings.TrimSpace(*input.Objective)
	}
	if input.TimeHorizon != nil {
		updates["time_horizon"] = strings.TrimSpace(*input.TimeHorizon)
	}
	if input.Category != nil {
		updates["category"] = strings.TrimSpace(*input.Category)
	}
	if input.AIWeight != nil {
		updates["ai_weight"] = clampWeight(*input.AIWeight)
	}
	if input.EnableAIScoring != nil {
		updates["enable_ai_scoring"] = *input.EnableAIScoring
	}
	if input.EnableVoting != nil {
		updates["enable_voting"] = *input.EnableVoting
	}
	if input.AllowDownvotes != nil {
		updates["allow_downvotes"] = *input.AllowDownvotes
	}
	if input.RequireOwnerApprovalForDelete != nil {
		updates["require_owner_approval_for_delete"] = *input.RequireOwnerApprovalForDelete
	}
	if input.DefaultNoteColor != nil {
		updates["default_note_color"] = *input.DefaultNoteColor
	}
	if input.SnapToGrid != nil {
		updates["snap_to_grid"] = *input.SnapToGrid
	}
	if input.BackgroundTheme != nil {
		updates["background_theme"] = *input.BackgroundTheme
	}
	if input.ShowLeaderboardByDefault != nil {
		updates["show_leaderboard_by_default"] = *input.ShowLeaderboardByDefault
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(&Board{}).Where("id = ?", boardID).Updates(updates).Error; err != nil {
			return Board{}, newServiceError(opUpdateSettings, "update_failed", err)
		}
	}
	return s.load(ctx, opUpdateSettings, boardID)
}

// Archive marks a board archived. Owner only.
func (s *Service) Archive(ctx context.Context, actorID, boardID string) (Board, error) {
	board, err := s.load(ctx, opArchive, boardID)
	if err != nil {
		return Board{}, err
	}
	if board.CreatorID != actorID {
		return Board{}, newServiceError(opArchive, "not_authorized", ErrNotAuthorized)
	}
	if err := s.db.WithContext(ctx).Model(&Board{}).Where("id = ?", boardID).Update("is_archived", true).Error; err != nil {
		return Board{}, newServiceError(opArchive, "update_failed", err)
	}
	board.IsArchived = true
	return board, nil
}

// RequireOwner verifies the acting user owns the board.
func (s *Service) RequireOwner(ctx context.Context, actorID, boardID string) (Board, error) {
	board, err := s.load(ctx, opRequireOwner, boardID)
	if err != nil {
		return Board{}, err
	}
	if board.CreatorID != actorID {
		return Board{}, newServiceError(opRequireOwner, "not_authorized", ErrNotAuthorized)
	}
	return board, nil
}

// RequireMembership verifies the acting user owns or collaborates on the board.
func (s *Service) RequireMembership(ctx context.Context, actorID, boardID string) (Board, error) {
	board, err := s.load(ctx, opRequireMembership, boardID)
	if err != nil {
		return Board{}, err
	}
	member, err := s.isMember(ctx, board, actorID)
	if err != nil {
		return Board{}, newServiceError(opRequireMembership, "membership_lookup_failed", err)
	}
	if !member {
		return Board{}, newServiceError(opRequireMembership, "not_authorized", ErrNotAuthorized)
	}
	return board, nil
}

// Remove deletes a board and its collaborator rows. Ownership must be checked
// by the caller beforehand; note rows are purged separately by the note layer.
func (s *Service) Remove(ctx context.Context, boardID string) error {
	if err := s.db.WithContext(ctx).Where("board_id = ?", boardID).Delete(&Collaborator{}).Error; err != nil {
		return newServiceError(opRemove, "collaborators_delete_failed", err)
	}
	if err := s.db.WithContext(ctx).Where("id = ?", boardID).Delete(&Board{}).Error; err != nil {
		return newServiceError(opRemove, "board_delete_failed", err)
	}
	return nil
}

func (s *Service) load(ctx context.Context, operation, boardID string) (Board, error) {
	var board Board
	err := s.db.WithContext(ctx).Where("id = ?", boardID).Take(&board).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Board{}, newServiceError(operation, "not_found", ErrNotFound)
	}
	if err != nil {
		return Board{}, newServiceError(operation, "lookup_failed", err)
	}
	return board, nil
}

func (s *Service) isMember(ctx context.Context, board Board, actorID string) (bool, error) {
	if actorID == "" {
		return false, nil
	}
	if board.CreatorID == actorID {
		return true, nil
	}
	var count int64
	err := s.db.WithContext(ctx).Model(&Collaborator{}).
		Where("board_id = ? AND user_id = ?", board.ID, actorID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func clampWeight(weight float64) float64 {
	if weight < 0 {
		return 0
	}
	if weight > 1 {
		return 1
	}
	return weight
}
