package notes

import "time"

// Layout defaults applied when a create request omits geometry, and the
// floors enforced on resize.
const (
	DefaultPositionX = 100.0
	DefaultPositionY = 100.0
	DefaultWidth     = 256.0
	DefaultHeight    = 150.0
	MinWidth         = 150.0
	MinHeight        = 100.0

	defaultColor         = "#ffffff"
	defaultPriorityScore = 0.5
)

// Note is one sticky note on a board. Content and vote mutations refresh the
// scoring columns; pure layout mutations never touch them.
type Note struct {
	ID        string `gorm:"column:id;primaryKey;size:190;not null"`
	BoardID   string `gorm:"column:board_id;size:190;not null;index"`
	CreatorID string `gorm:"column:creator_id;size:190;not null;index"`

	Content   string  `gorm:"column:content;type:text;not null"`
	Color     string  `gorm:"column:color;size:16;not null;default:'#ffffff'"`
	PositionX float64 `gorm:"column:position_x;not null;default:100"`
	PositionY float64 `gorm:"column:position_y;not null;default:100"`
	Width     float64 `gorm:"column:width;not null;default:256"`
	Height    float64 `gorm:"column:height;not null;default:150"`

	Upvotes         int      `gorm:"column:upvotes;not null;default:0"`
	AIPriorityScore float64  `gorm:"column:ai_priority_score;not null;default:0.5"`
	AIContentScore  *float64 `gorm:"column:ai_content_score"`
	AIRationale     *string  `gorm:"column:ai_rationale;type:text"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Note) TableName() string {
	return "notes"
}
