package models

import "time"

// Notification types
const (
	NotifyTypeAnswer   = "answer"
	NotifyTypeAccept   = "accept"
	NotifyTypeUpvote   = "upvote"
	NotifyTypeDownvote = "downvote"
)

// IsNotifyType reports whether t belongs to the closed set of notification types
func IsNotifyType(t string) bool {
	switch t {
	case NotifyTypeAnswer, NotifyTypeAccept, NotifyTypeUpvote, NotifyTypeDownvote:
		return true
	}
	return false
}

// Notification represents an inbox entry. Rows are append-only except for IsRead.
type Notification struct {
	ID                int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	UserID            int64     `gorm:"not null;index:notifications_user_idx;column:user_id" json:"user_id"`
	Type              string    `gorm:"type:varchar(20);not null;column:type" json:"type"`
	Title             string    `gorm:"type:varchar(255);not null;column:title" json:"title"`
	Message           string    `gorm:"type:text;not null;column:message" json:"message"`
	RelatedQuestionID *int64    `gorm:"column:related_question_id" json:"related_question_id,omitempty"`
	RelatedAnswerID   *int64    `gorm:"column:related_answer_id" json:"related_answer_id,omitempty"`
	IsRead            bool      `gorm:"not null;default:false;column:is_read" json:"is_read"`
	CreatedAt         time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}
