package boards

import "time"

// Board groups notes under one prioritization objective. There is no
// denormalized note-reference list: the visible note set is always derived by
// querying notes on board_id, which removes the dual-write hazard between a
// note document and a parent array.
type Board struct {
	ID          string `gorm:"column:id;primaryKey;size:190;not null"`
	Title       string `gorm:"column:title;size:320;not null"`
	Objective   string `gorm:"column:objective;type:text"`
	TimeHorizon string `gorm:"column:time_horizon;size:64"`
	Category    string `gorm:"column:category;size:64"`
	CreatorID   string `gorm:"column:creator_id;size:190;not null;index"`

	// Scoring configuration.
	AIWeight        float64 `gorm:"column:ai_weight;not null;default:0.7"`
	EnableAIScoring bool    `gorm:"column:enable_ai_scoring;not null;default:true"`
	EnableVoting    bool    `gorm:"column:enable_voting;not null;default:true"`
	AllowDownvotes  bool    `gorm:"column:allow_downvotes;not null;default:true"`

	// Appearance configuration, cosmetic only.
	RequireOwnerApprovalForDelete bool   `gorm:"column:require_owner_approval_for_delete;not null;default:false"`
	DefaultNoteColor              string `gorm:"column:default_note_color;size:16;not null;default:'#ffffff'"`
	SnapToGrid                    bool   `gorm:"column:snap_to_grid;not null;default:false"`
	BackgroundTheme               string `gorm:"column:background_theme;size:64"`
	ShowLeaderboardByDefault      bool   `gorm:"column:show_leaderboard_by_default;not null;default:false"`

	IsArchived bool      `gorm:"column:is_archived;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Board) TableName() string {
	return "boards"
}

// Collaborator links an invited user to a board.
type Collaborator struct {
	BoardID   string    `gorm:"column:board_id;primaryKey;size:190;not null"`
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Collaborator) TableName() string {
	return "board_collaborators"
}
