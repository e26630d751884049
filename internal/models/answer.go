package models

import "time"

// Answer represents an answer to a question
type Answer struct {
	ID               int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	QuestionID       int64     `gorm:"not null;index:answers_question_idx;column:question_id" json:"question_id"`
	UserID           int64     `gorm:"not null;column:user_id" json:"user_id"`
	Content          string    `gorm:"type:text;not null;column:content" json:"content"`
	VoteCount        int       `gorm:"not null;default:0;column:vote_count" json:"vote_count"`
	IsAccepted       bool      `gorm:"not null;default:false;column:is_accepted" json:"is_accepted"`
	IsFlagged        bool      `gorm:"not null;default:false;column:is_flagged" json:"is_flagged"`
	ModerationStatus string    `gorm:"type:varchar(20);not null;default:'approved';column:moderation_status" json:"moderation_status"`
	CreatedAt        time.Time `gorm:"not null;column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;column:updated_at" json:"updated_at"`

	// Relationships
	Author *User `gorm:"foreignKey:UserID;references:ID" json:"author,omitempty"`
}

// TableName specifies the table name for Answer
func (Answer) TableName() string {
	return "answers"
}
