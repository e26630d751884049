package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/pkg/telemetry"
)

// VoteOutcome describes which branch of the ledger a vote took
type VoteOutcome string

const (
	VoteCreated VoteOutcome = "created"
	VoteRemoved VoteOutcome = "removed"
	VoteChanged VoteOutcome = "changed"
)

// CastVoteRequest is a request to vote on a question or answer
type CastVoteRequest struct {
	UserID   int64
	Target   Target
	VoteType string
}

// VoteResult reports the state after a vote
type VoteResult struct {
	Target    Target
	VoteCount int
	Outcome   VoteOutcome
	// UserVote is the caller's standing vote, empty after a toggle-off.
	UserVote string
	Notified bool
}

func voteSign(voteType string) (int, bool) {
	switch voteType {
	case models.VoteUp:
		return 1, true
	case models.VoteDown:
		return -1, true
	}
	return 0, false
}

// CastVote applies a vote. No prior vote inserts one; the same type again
// removes it; the opposite type swings it. The target's vote_count moves by
// the matching delta in the same unit of work.
func (e *Engine) CastVote(ctx context.Context, req CastVoteRequest) (*VoteResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.CastVote",
		trace.WithAttributes(attribute.String("target", req.Target.String())))
	defer span.End()

	if req.UserID <= 0 {
		return nil, e.fail(span, ErrUnauthenticated)
	}
	if err := req.Target.Validate(); err != nil {
		return nil, e.fail(span, err)
	}
	sign, ok := voteSign(req.VoteType)
	if !ok {
		return nil, e.fail(span, fmt.Errorf("%w: vote_type must be %q or %q", ErrInvalidInput, models.VoteUp, models.VoteDown))
	}

	var (
		result     *VoteResult
		questionID int64
	)
	err := e.runTx(ctx, "cast_vote", func(tx Tx) error {
		authorID, qid, err := lockTarget(tx, req.Target)
		if err != nil {
			return err
		}
		questionID = qid

		existing, err := tx.FindVote(req.UserID, req.Target)
		if err != nil {
			return err
		}

		res := &VoteResult{Target: req.Target}
		var delta int
		switch {
		case existing == nil:
			vote := &models.Vote{UserID: req.UserID, VoteType: req.VoteType}
			if req.Target.Kind == TargetQuestion {
				vote.QuestionID = &req.Target.ID
			} else {
				vote.AnswerID = &req.Target.ID
			}
			if err := tx.CreateVote(vote); err != nil {
				return err
			}
			delta, res.Outcome, res.UserVote = sign, VoteCreated, req.VoteType
		case existing.VoteType == req.VoteType:
			if err := tx.DeleteVote(existing.ID); err != nil {
				return err
			}
			delta, res.Outcome = -sign, VoteRemoved
		default:
			if err := tx.UpdateVoteType(existing.ID, req.VoteType); err != nil {
				return err
			}
			delta, res.Outcome, res.UserVote = 2*sign, VoteChanged, req.VoteType
		}

		res.VoteCount, err = tx.AddVoteCount(req.Target, delta)
		if err != nil {
			return err
		}

		if req.Target.Kind == TargetAnswer {
			answerID := req.Target.ID
			res.Notified, err = e.emitter.Emit(tx, req.UserID, &models.Notification{
				UserID:          authorID,
				Type:            req.VoteType,
				Title:           "Answer Voted",
				Message:         voteMessage(req.VoteType),
				RelatedAnswerID: &answerID,
			})
			if err != nil {
				return err
			}
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, e.fail(span, err)
	}

	e.metrics.votes.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("outcome", string(result.Outcome))))
	if result.Notified {
		e.metrics.notified(ctx, req.VoteType)
	}
	e.invalidate(ctx, questionID)

	e.logger.Debug("Vote applied",
		zap.Int64("user_id", req.UserID),
		zap.Stringer("target", req.Target),
		zap.String("outcome", string(result.Outcome)),
		zap.Int("vote_count", result.VoteCount),
	)
	return result, nil
}

// lockTarget locks the voted entity and returns its author and owning question.
func lockTarget(tx Tx, t Target) (authorID, questionID int64, err error) {
	if t.Kind == TargetQuestion {
		q, err := tx.LockQuestion(t.ID)
		if err != nil {
			return 0, 0, err
		}
		if q == nil {
			return 0, 0, fmt.Errorf("%w: question %d", ErrNotFound, t.ID)
		}
		return q.UserID, q.ID, nil
	}

	a, err := tx.LockAnswer(t.ID)
	if err != nil {
		return 0, 0, err
	}
	if a == nil {
		return 0, 0, fmt.Errorf("%w: answer %d", ErrNotFound, t.ID)
	}
	return a.UserID, a.QuestionID, nil
}

func voteMessage(voteType string) string {
	if voteType == models.VoteUp {
		return "Your answer received an upvote!"
	}
	return "Your answer received a downvote"
}
