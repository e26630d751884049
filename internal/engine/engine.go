package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/stackit/stackit/pkg/config"
	"github.com/stackit/stackit/pkg/logging"
	"github.com/stackit/stackit/pkg/telemetry"
)

// Engine serializes votes, acceptances and answer posts so that counters,
// acceptance flags, question status and notifications never diverge.
type Engine struct {
	store        Store
	invalidator  Invalidator
	screener     Screener
	emitter      Emitter
	maxRetries   int
	retryBackoff time.Duration
	metrics      *metrics
	logger       *zap.Logger
}

// New creates an engine. invalidator and screener may be nil.
func New(store Store, invalidator Invalidator, screener Screener, cfg *config.EngineConfig) *Engine {
	return &Engine{
		store:        store,
		invalidator:  invalidator,
		screener:     screener,
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		metrics:      newMetrics(),
		logger:       logging.WithComponent("engine"),
	}
}

// runTx runs fn in a unit of work, retrying transient failures.
func (e *Engine) runTx(ctx context.Context, op string, fn func(tx Tx) error) error {
	var err error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			e.metrics.retries.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("op", op)))
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrTransient, ctx.Err())
			case <-time.After(time.Duration(attempt) * e.retryBackoff):
			}
		}

		err = e.store.Transaction(ctx, fn)
		if err == nil || !errors.Is(err, ErrTransient) {
			return err
		}
		logging.WithSpan(ctx, e.logger).Warn("Transaction failed, retrying",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return err
}

func (e *Engine) invalidate(ctx context.Context, questionID int64) {
	if e.invalidator == nil {
		return
	}
	if err := e.invalidator.InvalidateQuestion(ctx, questionID); err != nil {
		e.logger.Warn("Failed to invalidate question cache",
			zap.Int64("question_id", questionID),
			zap.Error(err),
		)
	}
}

func (e *Engine) fail(span trace.Span, err error) error {
	if !Classified(err) {
		err = fmt.Errorf("%w: %v", ErrInternal, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, Kind(err).Error())
	return err
}

type metrics struct {
	votes         otelmetric.Int64Counter
	accepts       otelmetric.Int64Counter
	answers       otelmetric.Int64Counter
	notifications otelmetric.Int64Counter
	retries       otelmetric.Int64Counter
}

func newMetrics() *metrics {
	meter := telemetry.Meter()
	counter := func(name, desc string) otelmetric.Int64Counter {
		c, err := meter.Int64Counter(name, otelmetric.WithDescription(desc))
		if err != nil {
			logging.GetLogger().Warn("Failed to create counter", zap.String("name", name), zap.Error(err))
			return noop.Int64Counter{}
		}
		return c
	}
	return &metrics{
		votes:         counter("stackit_votes_total", "Votes cast, by outcome"),
		accepts:       counter("stackit_accepts_total", "Answers accepted"),
		answers:       counter("stackit_answers_total", "Answers posted"),
		notifications: counter("stackit_notifications_total", "Notifications emitted, by type"),
		retries:       counter("stackit_tx_retries_total", "Transaction retries after transient failures"),
	}
}

func (m *metrics) notified(ctx context.Context, notifyType string) {
	m.notifications.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("type", notifyType)))
}
