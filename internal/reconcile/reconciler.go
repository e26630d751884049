// Package reconcile periodically audits denormalized counters against the
// vote and answer ledgers and optionally repairs them.
package reconcile

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"

	"github.com/stackit/stackit/internal/db"
	"github.com/stackit/stackit/internal/engine"
	"github.com/stackit/stackit/pkg/config"
	"github.com/stackit/stackit/pkg/logging"
	"github.com/stackit/stackit/pkg/telemetry"
)

// Auditor finds and repairs drifted counters
type Auditor interface {
	FindDrift(ctx context.Context, limit int) ([]db.Drift, error)
	Repair(ctx context.Context, d db.Drift) error
}

// Report summarizes one audit pass
type Report struct {
	Drift    []db.Drift
	Repaired int
	Failed   int
}

// Reconciler runs audit passes on an interval
type Reconciler struct {
	auditor     Auditor
	invalidator engine.Invalidator
	interval    time.Duration
	repair      bool
	batchSize   int
	drifted     otelmetric.Int64Counter
	logger      *zap.Logger
}

// New creates a reconciler. invalidator may be nil.
func New(auditor Auditor, invalidator engine.Invalidator, cfg *config.ReconcileConfig) *Reconciler {
	drifted, err := telemetry.Meter().Int64Counter("stackit_counter_drift_total",
		otelmetric.WithDescription("Counters found out of step with their ledger"))
	if err != nil {
		drifted = noop.Int64Counter{}
	}

	return &Reconciler{
		auditor:     auditor,
		invalidator: invalidator,
		interval:    cfg.Interval,
		repair:      cfg.Repair,
		batchSize:   cfg.BatchSize,
		drifted:     drifted,
		logger:      logging.WithComponent("reconcile"),
	}
}

// Run audits every interval until ctx is cancelled
func (r *Reconciler) Run(ctx context.Context) error {
	r.logger.Info("Starting counter reconciler",
		zap.Duration("interval", r.interval),
		zap.Bool("repair", r.repair))

	for {
		if _, err := r.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			r.logger.Error("Audit pass failed", zap.Error(err))
		}

		if !r.wait(ctx) {
			return ctx.Err()
		}
	}
}

// RunOnce performs a single audit pass. Repair failures are counted and
// logged; only a failed scan returns an error.
func (r *Reconciler) RunOnce(ctx context.Context) (*Report, error) {
	ctx, span := telemetry.StartSpan(ctx, "reconcile.RunOnce")
	defer span.End()

	drift, err := r.auditor.FindDrift(ctx, r.batchSize)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	report := &Report{Drift: drift}
	if len(drift) == 0 {
		r.logger.Debug("Counters consistent")
		return report, nil
	}

	touched := make(map[int64]bool)
	for _, d := range drift {
		r.drifted.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("kind", d.Kind)))
		r.logger.Warn("Counter drift",
			zap.String("kind", d.Kind),
			zap.Int64("id", d.ID),
			zap.Int("stored", d.Stored),
			zap.Int("actual", d.Actual))

		if !r.repair {
			continue
		}
		if err := r.auditor.Repair(ctx, d); err != nil {
			report.Failed++
			r.logger.Error("Counter repair failed",
				zap.String("kind", d.Kind),
				zap.Int64("id", d.ID),
				zap.Error(err))
			continue
		}
		report.Repaired++
		touched[d.QuestionID] = true
	}

	if r.invalidator != nil {
		for questionID := range touched {
			if err := r.invalidator.InvalidateQuestion(ctx, questionID); err != nil {
				r.logger.Warn("Failed to invalidate question cache",
					zap.Int64("question_id", questionID),
					zap.Error(err))
			}
		}
	}

	r.logger.Info("Audit pass finished",
		zap.Int("drifted", len(drift)),
		zap.Int("repaired", report.Repaired),
		zap.Int("failed", report.Failed))
	return report, nil
}

// wait waits for the interval or until ctx is cancelled
func (r *Reconciler) wait(ctx context.Context) bool {
	timer := time.NewTimer(r.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
