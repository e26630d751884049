package models

import "time"

// Moderated content types
const (
	ContentQuestion = "question"
	ContentAnswer   = "answer"
)

// ContentModeration records flagged content awaiting or carrying an admin decision
type ContentModeration struct {
	ID            int64      `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	ContentType   string     `gorm:"type:varchar(20);not null;index:content_moderation_content_idx;column:content_type" json:"content_type"`
	ContentID     int64      `gorm:"not null;index:content_moderation_content_idx;column:content_id" json:"content_id"`
	FlaggedWords  string     `gorm:"type:text;not null;default:'';column:flagged_words" json:"flagged_words"`
	AdminID       *int64     `gorm:"column:admin_id" json:"admin_id,omitempty"`
	AdminDecision *string    `gorm:"type:varchar(20);column:admin_decision" json:"admin_decision,omitempty"`
	AdminNotes    string     `gorm:"type:text;not null;default:'';column:admin_notes" json:"admin_notes"`
	CreatedAt     time.Time  `gorm:"not null;column:created_at" json:"created_at"`
	ReviewedAt    *time.Time `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
}

// TableName specifies the table name for ContentModeration
func (ContentModeration) TableName() string {
	return "content_moderation"
}
