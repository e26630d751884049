package engine

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/pkg/telemetry"
)

// AcceptAnswerRequest is a request by a question owner to accept an answer
type AcceptAnswerRequest struct {
	RequesterID int64
	QuestionID  int64
	AnswerID    int64
}

// AcceptResult reports the outcome of an acceptance
type AcceptResult struct {
	QuestionID int64
	AnswerID   int64
	// Displaced is the previously accepted answer, if another one was replaced.
	Displaced *int64
	// Unchanged is set when the answer was already the accepted one.
	Unchanged bool
	Notified  bool
}

// AcceptAnswer marks an answer as the accepted one for its question. Only the
// question's author may accept. The previous accepted answer, if any, loses
// its flag in the same unit of work and the question becomes answered.
func (e *Engine) AcceptAnswer(ctx context.Context, req AcceptAnswerRequest) (*AcceptResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.AcceptAnswer",
		trace.WithAttributes(
			attribute.Int64("question_id", req.QuestionID),
			attribute.Int64("answer_id", req.AnswerID),
		))
	defer span.End()

	if req.RequesterID <= 0 {
		return nil, e.fail(span, ErrUnauthenticated)
	}
	if req.QuestionID <= 0 || req.AnswerID <= 0 {
		return nil, e.fail(span, fmt.Errorf("%w: question_id and answer_id are required", ErrInvalidInput))
	}

	var result *AcceptResult
	err := e.runTx(ctx, "accept_answer", func(tx Tx) error {
		q, err := tx.LockQuestion(req.QuestionID)
		if err != nil {
			return err
		}
		if q == nil {
			return fmt.Errorf("%w: question %d", ErrNotFound, req.QuestionID)
		}
		if q.UserID != req.RequesterID {
			return fmt.Errorf("%w: only the question author can accept an answer", ErrForbidden)
		}

		a, err := tx.LockAnswer(req.AnswerID)
		if err != nil {
			return err
		}
		if a == nil {
			return fmt.Errorf("%w: answer %d", ErrNotFound, req.AnswerID)
		}
		if a.QuestionID != q.ID {
			return fmt.Errorf("%w: answer %d does not belong to question %d", ErrInvalidInput, a.ID, q.ID)
		}

		res := &AcceptResult{QuestionID: q.ID, AnswerID: a.ID}
		if a.IsAccepted && q.AcceptedAnswerID != nil && *q.AcceptedAnswerID == a.ID {
			res.Unchanged = true
			result = res
			return nil
		}
		if q.AcceptedAnswerID != nil && *q.AcceptedAnswerID != a.ID {
			prev := *q.AcceptedAnswerID
			res.Displaced = &prev
		}

		if err := tx.ClearAcceptedAnswers(q.ID); err != nil {
			return err
		}
		if err := tx.MarkAnswerAccepted(a.ID); err != nil {
			return err
		}
		if err := tx.MarkQuestionAnswered(q.ID, a.ID); err != nil {
			return err
		}

		questionID, answerID := q.ID, a.ID
		res.Notified, err = e.emitter.Emit(tx, req.RequesterID, &models.Notification{
			UserID:            a.UserID,
			Type:              models.NotifyTypeAccept,
			Title:             "Answer Accepted",
			Message:           "Your answer was accepted!",
			RelatedQuestionID: &questionID,
			RelatedAnswerID:   &answerID,
		})
		if err != nil {
			return err
		}

		result = res
		return nil
	})
	if err != nil {
		return nil, e.fail(span, err)
	}

	if !result.Unchanged {
		e.metrics.accepts.Add(ctx, 1)
		if result.Notified {
			e.metrics.notified(ctx, models.NotifyTypeAccept)
		}
		e.invalidate(ctx, result.QuestionID)
	}

	e.logger.Info("Answer accepted",
		zap.Int64("question_id", result.QuestionID),
		zap.Int64("answer_id", result.AnswerID),
		zap.Bool("unchanged", result.Unchanged),
	)
	return result, nil
}
