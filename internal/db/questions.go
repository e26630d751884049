package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

// Question list filters
const (
	FilterNewest     = "newest"
	FilterUnanswered = "unanswered"
	FilterAnswered   = "answered"
	FilterMostVoted  = "most-voted"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// ListParams selects a page of questions
type ListParams struct {
	Filter string
	Search string
	Page   int
	Limit  int
	// IncludeUnapproved lists pending and rejected questions too (admins).
	IncludeUnapproved bool
}

// QuestionPage is one page of a question listing
type QuestionPage struct {
	Questions  []models.Question
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// QuestionRepository provides question-related database operations
type QuestionRepository struct {
	*Repository
}

// NewQuestionRepository creates a new question repository
func NewQuestionRepository(repo *Repository) *QuestionRepository {
	return &QuestionRepository{Repository: repo}
}

// List returns a filtered, searched page of questions with authors and tags
func (r *QuestionRepository) List(ctx context.Context, p ListParams) (*QuestionPage, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}

	query := r.db.WithContext(ctx).Model(&models.Question{})
	if !p.IncludeUnapproved {
		query = query.Where("moderation_status = ?", models.ModerationApproved)
	}
	switch p.Filter {
	case FilterUnanswered:
		query = query.Where("status = ?", models.StatusUnanswered)
	case FilterAnswered:
		query = query.Where("status = ?", models.StatusAnswered)
	}
	if search := strings.TrimSpace(p.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where("title ILIKE ? OR description ILIKE ?", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	order := "created_at DESC"
	if p.Filter == FilterMostVoted {
		order = "vote_count DESC, created_at DESC"
	}

	var questions []models.Question
	err := query.
		Preload("Author").
		Preload("Tags").
		Order(order).
		Limit(p.Limit).
		Offset((p.Page - 1) * p.Limit).
		Find(&questions).Error
	if err != nil {
		return nil, err
	}

	return &QuestionPage{
		Questions:  questions,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: int((total + int64(p.Limit) - 1) / int64(p.Limit)),
	}, nil
}

// GetByID retrieves a question with its author and tags
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*models.Question, error) {
	var q models.Question
	err := r.db.WithContext(ctx).Preload("Author").Preload("Tags").First(&q, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// IncrementViews bumps view_count and returns the new value. A question that
// moderation has not approved counts as missing unless includeUnapproved is set.
func (r *QuestionRepository) IncrementViews(ctx context.Context, id int64, includeUnapproved bool) (int, error) {
	query := "UPDATE questions SET view_count = view_count + 1 WHERE id = ?"
	args := []interface{}{id}
	if !includeUnapproved {
		query += " AND moderation_status = ?"
		args = append(args, models.ModerationApproved)
	}

	var viewed struct{ ViewCount int }
	res := r.db.WithContext(ctx).Raw(query+" RETURNING view_count", args...).Scan(&viewed)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: question %d", engine.ErrNotFound, id)
	}
	return viewed.ViewCount, nil
}

// Create stores a question, upserts its tags and queues flagged content for
// review, all in one transaction.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question, tagNames []string, flagged []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		q.Status = models.StatusUnanswered
		q.ModerationStatus = models.ModerationApproved
		if len(flagged) > 0 {
			q.IsFlagged = true
			q.ModerationStatus = models.ModerationPending
		}
		if err := tx.Omit(clause.Associations).Create(q).Error; err != nil {
			return err
		}

		for _, name := range tagNames {
			tag := models.Tag{Name: name, UsageCount: 1}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				DoUpdates: clause.Assignments(map[string]interface{}{"usage_count": gorm.Expr("tags.usage_count + 1")}),
			}).Create(&tag).Error
			if err != nil {
				return fmt.Errorf("upsert tag %q: %w", name, err)
			}
			if err := tx.Create(&models.QuestionTag{QuestionID: q.ID, TagID: tag.ID}).Error; err != nil {
				return err
			}
			q.Tags = append(q.Tags, tag)
		}

		if len(flagged) > 0 {
			return tx.Create(&models.ContentModeration{
				ContentType:  models.ContentQuestion,
				ContentID:    q.ID,
				FlaggedWords: strings.Join(flagged, ","),
			}).Error
		}
		return nil
	})
}

// Delete removes a question together with its answers, votes, tag links,
// notifications and moderation records.
func (r *QuestionRepository) Delete(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q models.Question
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: question %d", engine.ErrNotFound, id)
			}
			return err
		}

		answerIDs := tx.Model(&models.Answer{}).Select("id").Where("question_id = ?", id)
		steps := []func() *gorm.DB{
			func() *gorm.DB {
				return tx.Where("related_question_id = ? OR related_answer_id IN (?)", id, answerIDs).Delete(&models.Notification{})
			},
			func() *gorm.DB {
				return tx.Where("question_id = ? OR answer_id IN (?)", id, answerIDs).Delete(&models.Vote{})
			},
			func() *gorm.DB {
				return tx.Where("(content_type = ? AND content_id = ?) OR (content_type = ? AND content_id IN (?))",
					models.ContentQuestion, id, models.ContentAnswer, answerIDs).Delete(&models.ContentModeration{})
			},
			func() *gorm.DB { return tx.Where("question_id = ?", id).Delete(&models.QuestionTag{}) },
			func() *gorm.DB { return tx.Where("question_id = ?", id).Delete(&models.Answer{}) },
			func() *gorm.DB { return tx.Delete(&models.Question{}, id) },
		}
		for _, step := range steps {
			if err := step().Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SetModeration updates a question's flag and moderation status
func (r *QuestionRepository) SetModeration(ctx context.Context, id int64, flagged bool, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_flagged": flagged, "moderation_status": status})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: question %d", engine.ErrNotFound, id)
	}
	return nil
}

// NormalizeTags lowercases, trims and de-duplicates tag names, preserving order
func NormalizeTags(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}
