package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/internal/models"
)

// Store runs engine units of work as READ COMMITTED transactions. Targets
// are serialized with row locks taken by LockQuestion and LockAnswer.
type Store struct {
	db *gorm.DB
}

// NewStore creates an engine store on top of db
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Transaction implements engine.Store
func (s *Store) Transaction(ctx context.Context, fn func(tx engine.Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(gtx *gorm.DB) error {
		return fn(&gormTx{db: gtx})
	}, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	return classify(err)
}

type gormTx struct {
	db *gorm.DB
}

var forUpdate = clause.Locking{Strength: "UPDATE"}

func (t *gormTx) LockQuestion(id int64) (*models.Question, error) {
	var q models.Question
	if err := t.db.Clauses(forUpdate).First(&q, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

func (t *gormTx) LockAnswer(id int64) (*models.Answer, error) {
	var a models.Answer
	if err := t.db.Clauses(forUpdate).First(&a, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

func (t *gormTx) FindVote(userID int64, target engine.Target) (*models.Vote, error) {
	var v models.Vote
	query := t.db.Where("user_id = ?", userID)
	if target.Kind == engine.TargetQuestion {
		query = query.Where("question_id = ?", target.ID)
	} else {
		query = query.Where("answer_id = ?", target.ID)
	}
	if err := query.Take(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (t *gormTx) CreateVote(vote *models.Vote) error {
	return t.db.Create(vote).Error
}

func (t *gormTx) UpdateVoteType(voteID int64, voteType string) error {
	return t.db.Model(&models.Vote{}).
		Where("id = ?", voteID).
		Updates(map[string]interface{}{"vote_type": voteType, "updated_at": time.Now().UTC()}).Error
}

func (t *gormTx) DeleteVote(voteID int64) error {
	return t.db.Delete(&models.Vote{}, voteID).Error
}

func (t *gormTx) AddVoteCount(target engine.Target, delta int) (int, error) {
	var (
		counted = struct{ VoteCount int }{}
		table   = models.Question{}.TableName()
	)
	if target.Kind == engine.TargetAnswer {
		table = models.Answer{}.TableName()
	}
	res := t.db.Raw(
		fmt.Sprintf("UPDATE %s SET vote_count = vote_count + ? WHERE id = ? RETURNING vote_count", table),
		delta, target.ID,
	).Scan(&counted)
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, fmt.Errorf("%w: %s", engine.ErrNotFound, target)
	}
	return counted.VoteCount, nil
}

func (t *gormTx) ClearAcceptedAnswers(questionID int64) error {
	return t.db.Model(&models.Answer{}).
		Where("question_id = ? AND is_accepted", questionID).
		UpdateColumn("is_accepted", false).Error
}

func (t *gormTx) MarkAnswerAccepted(answerID int64) error {
	return t.db.Model(&models.Answer{}).
		Where("id = ?", answerID).
		Updates(map[string]interface{}{"is_accepted": true, "updated_at": time.Now().UTC()}).Error
}

func (t *gormTx) MarkQuestionAnswered(questionID, answerID int64) error {
	return t.db.Model(&models.Question{}).
		Where("id = ?", questionID).
		Updates(map[string]interface{}{
			"status":             models.StatusAnswered,
			"accepted_answer_id": answerID,
			"updated_at":         time.Now().UTC(),
		}).Error
}

func (t *gormTx) CreateAnswer(answer *models.Answer) error {
	return t.db.Create(answer).Error
}

func (t *gormTx) IncrementAnswerCount(questionID int64) error {
	return t.db.Model(&models.Question{}).
		Where("id = ?", questionID).
		UpdateColumn("answer_count", gorm.Expr("answer_count + 1")).Error
}

func (t *gormTx) CreateNotification(n *models.Notification) error {
	return t.db.Create(n).Error
}

func (t *gormTx) CreateModeration(m *models.ContentModeration) error {
	return t.db.Create(m).Error
}
