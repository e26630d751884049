package models

import "time"

// Tag represents a question tag
type Tag struct {
	ID         int64     `gorm:"primaryKey;autoIncrement;column:id" json:"id"`
	Name       string    `gorm:"type:varchar(50);not null;uniqueIndex:tags_name_ux;column:name" json:"name"`
	UsageCount int       `gorm:"not null;default:0;column:usage_count" json:"usage_count"`
	CreatedAt  time.Time `gorm:"not null;column:created_at" json:"created_at"`
}

// TableName specifies the table name for Tag
func (Tag) TableName() string {
	return "tags"
}

// QuestionTag links a question to a tag
type QuestionTag struct {
	QuestionID int64 `gorm:"primaryKey;column:question_id"`
	TagID      int64 `gorm:"primaryKey;column:tag_id"`
}

// TableName specifies the table name for QuestionTag
func (QuestionTag) TableName() string {
	return "question_tags"
}
