package models

import "time"

// Vote types
const (
	VoteUp   = "upvote"
	VoteDown = "downvote"
)

// Vote is a user's standing vote on exactly one question or one answer.
// At most one row exists per (user, target).
type Vote struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID     int64     `gorm:"not null;column:user_id" json:"user_id"`
	QuestionID *int64    `gorm:"index:votes_question_idx;column:question_id" json:"question_id,omitempty"`
	AnswerID   *int64    `gorm:"index:votes_answer_idx;column:answer_id" json:"answer_id,omitempty"`
	VoteType   string    `gorm:"type:varchar(10);not null;column:vote_type" json:"vote_type"`
	CreatedAt  time.Time `gorm:"not null;column:created_at" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;column:updated_at" json:"updated_at"`
}

// TableName specifies the table name for Vote
func (Vote) TableName() string {
	return "votes"
}
