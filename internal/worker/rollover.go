// Package worker runs periodic background jobs.
package worker

import (
	"context"
	"time"

	"spendwise/internal/logger"
	"spendwise/internal/services"
)

// RolloverProcessor renews budgets whose period has ended.
type RolloverProcessor interface {
	ProcessRollovers(ctx context.Context) (*services.RolloverResult, error)
}

// RolloverWorker runs a rollover pass on start and then every interval.
type RolloverWorker struct {
	processor RolloverProcessor
	interval  time.Duration
}

// NewRolloverWorker creates a RolloverWorker.
func NewRolloverWorker(processor RolloverProcessor, interval time.Duration) *RolloverWorker {
	return &RolloverWorker{processor: processor, interval: interval}
}

// Run blocks until ctx is cancelled. A failed pass is logged and retried on
// the next tick.
func (w *RolloverWorker) Run(ctx context.Context) error {
	log := logger.Named("rollover")
	log.Infow("rollover worker started", "interval", w.interval)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info("rollover worker stopped")
			return nil
		case <-ticker.C:
			w.runOnce(ctx)
		}
	}
}

func (w *RolloverWorker) runOnce(ctx context.Context) {
	log := logger.Named("rollover")
	start := time.Now()

	result, err := w.processor.ProcessRollovers(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Errorw("rollover pass failed", "error", err)
		return
	}
	log.Infow("rollover pass complete",
		"rolled", result.Rolled,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", time.Since(start),
		"next_run", start.Add(w.interval).Format(time.RFC3339),
	)
}
