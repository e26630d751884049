package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

// ModerationStats summarizes review decisions
type ModerationStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
}

// DashboardStats is the admin overview
type DashboardStats struct {
	Users            int64         `json:"total_users"`
	Questions        int64         `json:"total_questions"`
	Answers          int64         `json:"total_answers"`
	FlaggedQuestions int64         `json:"flagged_questions"`
	FlaggedAnswers   int64         `json:"flagged_answers"`
	FlaggedContent   []FlaggedItem `json:"flagged_content"`
}

// FlaggedItem is a flagged question or answer awaiting attention
type FlaggedItem struct {
	Type       string    `json:"type"`
	ID         int64     `json:"id"`
	QuestionID int64     `json:"question_id"`
	Text       string    `json:"text"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username"`
	CreatedAt  time.Time `json:"created_at"`
}

const flaggedContentLimit = 50

// ModerationRepository provides review-queue and admin operations
type ModerationRepository struct {
	*Repository
}

// NewModerationRepository creates a new moderation repository
func NewModerationRepository(repo *Repository) *ModerationRepository {
	return &ModerationRepository{Repository: repo}
}

// Pending returns records still awaiting a decision, oldest first
func (r *ModerationRepository) Pending(ctx context.Context) ([]models.ContentModeration, error) {
	var records []models.ContentModeration
	err := r.db.WithContext(ctx).
		Where("admin_decision IS NULL").
		Order("created_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Review records an admin decision and applies it to the moderated content.
// Approval clears the content's flag; rejection keeps it flagged. A record
// takes one decision; reviewing it again is a conflict.
func (r *ModerationRepository) Review(ctx context.Context, id, adminID int64, decision, notes string) (*models.ContentModeration, error) {
	if decision != models.ModerationApproved && decision != models.ModerationRejected {
		return nil, fmt.Errorf("%w: decision must be %q or %q", engine.ErrInvalidInput, models.ModerationApproved, models.ModerationRejected)
	}

	var record models.ContentModeration
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&record, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: moderation record %d", engine.ErrNotFound, id)
			}
			return err
		}
		if record.AdminDecision != nil {
			return fmt.Errorf("%w: moderation record %d already reviewed", engine.ErrConflict, id)
		}

		now := time.Now().UTC()
		record.AdminID = &adminID
		record.AdminDecision = &decision
		record.AdminNotes = notes
		record.ReviewedAt = &now
		if err := tx.Save(&record).Error; err != nil {
			return err
		}

		var content interface{} = &models.Question{}
		if record.ContentType == models.ContentAnswer {
			content = &models.Answer{}
		}
		return tx.Model(content).
			Where("id = ?", record.ContentID).
			Updates(map[string]interface{}{
				"is_flagged":        decision == models.ModerationRejected,
				"moderation_status": decision,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// Stats counts moderation records by decision
func (r *ModerationRepository) Stats(ctx context.Context) (*ModerationStats, error) {
	var rows []struct {
		Decision *string
		Count    int64
	}
	err := r.db.WithContext(ctx).Model(&models.ContentModeration{}).
		Select("admin_decision AS decision, COUNT(*) AS count").
		Group("admin_decision").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := &ModerationStats{}
	for _, row := range rows {
		stats.Total += row.Count
		switch {
		case row.Decision == nil:
			stats.Pending += row.Count
		case *row.Decision == models.ModerationApproved:
			stats.Approved += row.Count
		case *row.Decision == models.ModerationRejected:
			stats.Rejected += row.Count
		}
	}
	return stats, nil
}

// Dashboard returns site totals and the newest flagged content
func (r *ModerationRepository) Dashboard(ctx context.Context) (*DashboardStats, error) {
	db := r.db.WithContext(ctx)
	stats := &DashboardStats{}

	counts := []struct {
		model interface{}
		where string
		dest  *int64
	}{
		{&models.User{}, "", &stats.Users},
		{&models.Question{}, "", &stats.Questions},
		{&models.Answer{}, "", &stats.Answers},
		{&models.Question{}, "is_flagged", &stats.FlaggedQuestions},
		{&models.Answer{}, "is_flagged", &stats.FlaggedAnswers},
	}
	for _, c := range counts {
		query := db.Model(c.model)
		if c.where != "" {
			query = query.Where(c.where)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, err
		}
	}

	err := db.Raw(`
		SELECT * FROM (
			SELECT 'question' AS type, q.id, q.id AS question_id, q.title AS text,
				q.user_id, u.username, q.created_at
			FROM questions q JOIN users u ON u.id = q.user_id
			WHERE q.is_flagged
			UNION ALL
			SELECT 'answer' AS type, a.id, a.question_id, a.content AS text,
				a.user_id, u.username, a.created_at
			FROM answers a JOIN users u ON u.id = a.user_id
			WHERE a.is_flagged
		) flagged
		ORDER BY created_at DESC
		LIMIT ?`, flaggedContentLimit).
		Scan(&stats.FlaggedContent).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
