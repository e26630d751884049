package models

import "time"

// Question status values. A question only ever moves from unanswered to answered.
const (
	StatusUnanswered = "unanswered"
	StatusAnswered   = "answered"
)

// Moderation status values shared by questions and answers
const (
	ModerationPending  = "pending"
	ModerationApproved = "approved"
	ModerationRejected = "rejected"
)

// Question represents a question and its denormalized counters
type Question struct {
	ID               int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID           int64     `gorm:"not null;index:questions_user_idx;column:user_id" json:"user_id"`
	Title            string    `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Description      string    `gorm:"type:text;not null;column:description" json:"description"`
	Status           string    `gorm:"type:varchar(20);not null;default:'unanswered';index:questions_status_idx;column:status" json:"status"`
	AcceptedAnswerID *int64    `gorm:"column:accepted_answer_id" json:"accepted_answer_id"`
	VoteCount        int       `gorm:"not null;default:0;column:vote_count" json:"vote_count"`
	AnswerCount      int       `gorm:"not null;default:0;column:answer_count" json:"answer_count"`
	ViewCount        int       `gorm:"not null;default:0;column:view_count" json:"view_count"`
	IsFlagged        bool      `gorm:"not null;default:false;column:is_flagged" json:"is_flagged"`
	ModerationStatus string    `gorm:"type:varchar(20);not null;default:'approved';column:moderation_status" json:"moderation_status"`
	CreatedAt        time.Time `gorm:"not null;index:questions_created_idx;column:created_at" json:"created_at"`
	UpdatedAt        time.Time `gorm:"not null;column:updated_at" json:"updated_at"`

	// Relationships
	Author *User `gorm:"foreignKey:UserID;references:ID" json:"author,omitempty"`
	Tags   []Tag `gorm:"many2many:question_tags;joinForeignKey:QuestionID;joinReferences:TagID" json:"tags,omitempty"`
}

// TableName specifies the table name for Question
func (Question) TableName() string {
	return "questions"
}
