// Package worker runs the background score-pending loop.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/jobops/jobops-api/internal/llm"
	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/service"
)

// Scorer runs one score-pending batch. Satisfied by service.RecoveryService.
type Scorer interface {
	ScorePending(ctx context.Context, statuses []models.JobStatus, limit int) (*service.ScorePendingResult, error)
}

// Worker polls for unscored jobs and scores them in batches, oldest first.
type Worker struct {
	recovery     Scorer
	pollInterval time.Duration
	batchSize    int
	stop         chan struct{}
	wg           sync.WaitGroup
	logger       *slog.Logger
}

// Config holds worker configuration.
type Config struct {
	PollInterval time.Duration
	BatchSize    int
}

// New creates a new worker.
func New(recovery Scorer, cfg Config, logger *slog.Logger) *Worker {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		recovery:     recovery,
		pollInterval: cfg.PollInterval,
		batchSize:    cfg.BatchSize,
		stop:         make(chan struct{}),
		logger:       logger.With("component", "worker"),
	}
}

// Start begins the polling loop.
func (w *Worker) Start(ctx context.Context) {
	w.logger.Info("starting", "poll_interval", w.pollInterval, "batch_size", w.batchSize)
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop gracefully stops the worker.
func (w *Worker) Stop() {
	w.logger.Info("stopping")
	close(w.stop)
	w.wg.Wait()
	w.logger.Info("stopped")
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch scores one batch of pending jobs. A missing model binding or
// an empty target list idles the loop instead of raising errors every tick.
func (w *Worker) processBatch(ctx context.Context) {
	res, err := w.recovery.ScorePending(ctx, nil, w.batchSize)
	if err != nil {
		if errors.Is(err, llm.ErrUnavailable) || errors.Is(err, service.ErrInvalidInput) {
			w.logger.Debug("score-pending idle", "reason", err.Error())
			return
		}
		w.logger.Error("score-pending batch failed", "error", err)
		return
	}
	if res.Failed > 0 {
		w.logger.Warn("score-pending batch had failures",
			"total", res.Total,
			"scored", res.Scored,
			"failed", res.Failed,
		)
	}
}
