package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

// Drift kinds
const (
	DriftQuestionVotes = "question_votes"
	DriftAnswerVotes   = "answer_votes"
	DriftAnswerCount   = "answer_count"
)

// Drift is a denormalized counter that disagrees with the rows it summarizes
type Drift struct {
	Kind       string `json:"kind"`
	ID         int64  `json:"id"`
	QuestionID int64  `json:"question_id"`
	Stored     int    `json:"stored"`
	Actual     int    `json:"actual"`
}

const voteSum = `COALESCE(SUM(CASE v.vote_type WHEN 'upvote' THEN 1 WHEN 'downvote' THEN -1 ELSE 0 END), 0)`

// ReconcileRepository compares counters with their ledgers and repairs them
type ReconcileRepository struct {
	*Repository
}

// NewReconcileRepository creates a new reconcile repository
func NewReconcileRepository(repo *Repository) *ReconcileRepository {
	return &ReconcileRepository{Repository: repo}
}

// FindDrift returns up to limit counters that no longer match their ledger
func (r *ReconcileRepository) FindDrift(ctx context.Context, limit int) ([]Drift, error) {
	var drift []Drift
	err := r.db.WithContext(ctx).Raw(`
		SELECT * FROM (
			SELECT '`+DriftQuestionVotes+`' AS kind, q.id, q.id AS question_id,
				q.vote_count AS stored, `+voteSum+` AS actual
			FROM questions q LEFT JOIN votes v ON v.question_id = q.id
			GROUP BY q.id
			HAVING q.vote_count <> `+voteSum+`
			UNION ALL
			SELECT '`+DriftAnswerVotes+`' AS kind, a.id, a.question_id,
				a.vote_count AS stored, `+voteSum+` AS actual
			FROM answers a LEFT JOIN votes v ON v.answer_id = a.id
			GROUP BY a.id
			HAVING a.vote_count <> `+voteSum+`
			UNION ALL
			SELECT '`+DriftAnswerCount+`' AS kind, q.id, q.id AS question_id,
				q.answer_count AS stored, COUNT(a.id) AS actual
			FROM questions q LEFT JOIN answers a ON a.question_id = q.id
			GROUP BY q.id
			HAVING q.answer_count <> COUNT(a.id)
		) drift
		ORDER BY question_id, kind, id
		LIMIT ?`, limit).
		Scan(&drift).Error
	if err != nil {
		return nil, err
	}
	return drift, nil
}

// Repair recomputes one drifted counter from its ledger. The row is locked
// first so the recount sees every vote committed before the lock was granted.
func (r *ReconcileRepository) Repair(ctx context.Context, d Drift) error {
	var (
		model  interface{}
		update string
	)
	switch d.Kind {
	case DriftQuestionVotes:
		model = &models.Question{}
		update = `UPDATE questions SET vote_count = (
			SELECT ` + voteSum + ` FROM votes v WHERE v.question_id = ?) WHERE id = ?`
	case DriftAnswerVotes:
		model = &models.Answer{}
		update = `UPDATE answers SET vote_count = (
			SELECT ` + voteSum + ` FROM votes v WHERE v.answer_id = ?) WHERE id = ?`
	case DriftAnswerCount:
		model = &models.Question{}
		update = `UPDATE questions SET answer_count = (
			SELECT COUNT(*) FROM answers a WHERE a.question_id = ?) WHERE id = ?`
	default:
		return fmt.Errorf("%w: unknown drift kind %q", engine.ErrInvalidInput, d.Kind)
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(model, d.ID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s %d", engine.ErrNotFound, d.Kind, d.ID)
			}
			return err
		}
		return tx.Exec(update, d.ID, d.ID).Error
	})
}
