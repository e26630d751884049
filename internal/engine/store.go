package engine

import (
	"context"

	"github.com/stackit/stackit/internal/models"
)

// Store runs units of work atomically. If fn returns an error every write made
// through tx is discarded. Implementations wrap retryable failures with
// ErrTransient.
type Store interface {
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside a unit of work. It is
// bound to the context passed to Store.Transaction. Lookups return nil, nil
// when the row does not exist.
type Tx interface {
	// LockQuestion reads a question and holds it against concurrent writers
	// until the unit of work ends.
	LockQuestion(id int64) (*models.Question, error)
	LockAnswer(id int64) (*models.Answer, error)

	FindVote(userID int64, target Target) (*models.Vote, error)
	CreateVote(vote *models.Vote) error
	UpdateVoteType(voteID int64, voteType string) error
	DeleteVote(voteID int64) error
	// AddVoteCount adds delta to the target's vote_count and returns the new value.
	AddVoteCount(target Target, delta int) (int, error)

	ClearAcceptedAnswers(questionID int64) error
	MarkAnswerAccepted(answerID int64) error
	MarkQuestionAnswered(questionID, answerID int64) error

	CreateAnswer(answer *models.Answer) error
	IncrementAnswerCount(questionID int64) error

	CreateNotification(n *models.Notification) error
	CreateModeration(m *models.ContentModeration) error
}

// Invalidator drops cached read models after a committed write
type Invalidator interface {
	InvalidateQuestion(ctx context.Context, questionID int64) error
}

// Screener returns the offending words found in user supplied text
type Screener interface {
	Screen(text string) []string
}
