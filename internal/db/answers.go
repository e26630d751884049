package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

// AnswerRepository provides answer-related database operations
type AnswerRepository struct {
	*Repository
}

// NewAnswerRepository creates a new answer repository
func NewAnswerRepository(repo *Repository) *AnswerRepository {
	return &AnswerRepository{Repository: repo}
}

// ListByQuestion returns a question's answers, accepted first, then by votes.
// Answers awaiting or failing moderation are left out unless includeUnapproved
// is set.
func (r *AnswerRepository) ListByQuestion(ctx context.Context, questionID int64, includeUnapproved bool) ([]models.Answer, error) {
	query := r.db.WithContext(ctx).Where("question_id = ?", questionID)
	if !includeUnapproved {
		query = query.Where("moderation_status = ?", models.ModerationApproved)
	}

	var answers []models.Answer
	err := query.
		Preload("Author").
		Order("is_accepted DESC, vote_count DESC, created_at ASC").
		Find(&answers).Error
	if err != nil {
		return nil, err
	}
	return answers, nil
}

// QuestionID returns the question an answer belongs to
func (r *AnswerRepository) QuestionID(ctx context.Context, answerID int64) (int64, error) {
	var answer models.Answer
	err := r.db.WithContext(ctx).Select("id", "question_id").First(&answer, answerID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("%w: answer %d", engine.ErrNotFound, answerID)
		}
		return 0, err
	}
	return answer.QuestionID, nil
}

// SetModeration updates an answer's flag and moderation status
func (r *AnswerRepository) SetModeration(ctx context.Context, id int64, flagged bool, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Answer{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"is_flagged": flagged, "moderation_status": status})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: answer %d", engine.ErrNotFound, id)
	}
	return nil
}

// UserVotes returns the caller's standing votes on a question and its answers,
// keyed by target.
func (r *AnswerRepository) UserVotes(ctx context.Context, userID, questionID int64) (map[engine.Target]string, error) {
	var votes []models.Vote
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("question_id = ? OR answer_id IN (?)", questionID,
			r.db.Model(&models.Answer{}).Select("id").Where("question_id = ?", questionID)).
		Find(&votes).Error
	if err != nil {
		return nil, err
	}

	out := make(map[engine.Target]string, len(votes))
	for _, v := range votes {
		if v.QuestionID != nil {
			out[engine.QuestionTarget(*v.QuestionID)] = v.VoteType
		} else if v.AnswerID != nil {
			out[engine.AnswerTarget(*v.AnswerID)] = v.VoteType
		}
	}
	return out, nil
}
