package jobs

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/stocklane/stocklane/internal/jobs"
)

// KeyCleaner prunes idempotency keys older than the retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) error
}

// IdempotencyCleanupJob removes processed idempotency keys past their TTL.
type IdempotencyCleanupJob struct {
	Cleaner KeyCleaner
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	TTL     time.Duration
}

// NewIdempotencyCleanupJob initialises the cleanup handler.
func NewIdempotencyCleanupJob(cleaner KeyCleaner, logger *slog.Logger, metrics *jobmetrics.Metrics, ttl time.Duration) *IdempotencyCleanupJob {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &IdempotencyCleanupJob{Cleaner: cleaner, Logger: logger, Metrics: metrics, TTL: ttl}
}

// Handle executes one cleanup run.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Cleaner == nil {
		return errors.New("idempotency cleanup: handler not configured")
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Cleaner.Cleanup(ctx, j.TTL); err != nil {
		resultErr = err
		return resultErr
	}
	if j.Logger != nil {
		j.Logger.Info("idempotency keys pruned", slog.Duration("older_than", j.TTL))
	}
	return nil
}
