package engine

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/models"
	"github.com/stackit/stackit/pkg/telemetry"
)

// PostAnswerRequest is a request to answer a question
type PostAnswerRequest struct {
	AuthorID   int64
	QuestionID int64
	Content    string
}

// PostAnswerResult reports the created answer
type PostAnswerResult struct {
	AnswerID     int64
	Flagged      bool
	FlaggedWords []string
	Notified     bool
}

// PostAnswer stores a new answer, bumps the question's answer_count, queues
// flagged content for review and notifies the question author.
func (e *Engine) PostAnswer(ctx context.Context, req PostAnswerRequest) (*PostAnswerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.PostAnswer",
		trace.WithAttributes(attribute.Int64("question_id", req.QuestionID)))
	defer span.End()

	if req.AuthorID <= 0 {
		return nil, e.fail(span, ErrUnauthenticated)
	}
	if req.QuestionID <= 0 {
		return nil, e.fail(span, fmt.Errorf("%w: invalid question id %d", ErrInvalidInput, req.QuestionID))
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		return nil, e.fail(span, fmt.Errorf("%w: content is required", ErrInvalidInput))
	}

	var flagged []string
	if e.screener != nil {
		flagged = e.screener.Screen(content)
	}

	var result *PostAnswerResult
	err := e.runTx(ctx, "post_answer", func(tx Tx) error {
		q, err := tx.LockQuestion(req.QuestionID)
		if err != nil {
			return err
		}
		if q == nil {
			return fmt.Errorf("%w: question %d", ErrNotFound, req.QuestionID)
		}

		answer := &models.Answer{
			QuestionID:       q.ID,
			UserID:           req.AuthorID,
			Content:          content,
			ModerationStatus: models.ModerationApproved,
		}
		if len(flagged) > 0 {
			answer.IsFlagged = true
			answer.ModerationStatus = models.ModerationPending
		}
		if err := tx.CreateAnswer(answer); err != nil {
			return err
		}
		if err := tx.IncrementAnswerCount(q.ID); err != nil {
			return err
		}
		if len(flagged) > 0 {
			if err := tx.CreateModeration(&models.ContentModeration{
				ContentType:  models.ContentAnswer,
				ContentID:    answer.ID,
				FlaggedWords: strings.Join(flagged, ","),
			}); err != nil {
				return err
			}
		}

		res := &PostAnswerResult{AnswerID: answer.ID, Flagged: len(flagged) > 0, FlaggedWords: flagged}
		questionID, answerID := q.ID, answer.ID
		res.Notified, err = e.emitter.Emit(tx, req.AuthorID, &models.Notification{
			UserID:            q.UserID,
			Type:              models.NotifyTypeAnswer,
			Title:             "New Answer",
			Message:           "Someone answered your question: " + q.Title,
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

	e.metrics.answers.Add(ctx, 1)
	if result.Notified {
		e.metrics.notified(ctx, models.NotifyTypeAnswer)
	}
	e.invalidate(ctx, req.QuestionID)

	if result.Flagged {
		e.logger.Info("Answer flagged for moderation",
			zap.Int64("answer_id", result.AnswerID),
			zap.Strings("words", result.FlaggedWords),
		)
	}
	return result, nil
}
