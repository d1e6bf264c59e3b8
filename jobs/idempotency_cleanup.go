package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/feedmill/feedmill/internal/jobs"
)

// KeyCleaner removes idempotency keys older than a retention window.
type KeyCleaner interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
}

// IdempotencyCleanupJob keeps the idempotency_keys table bounded.
type IdempotencyCleanupJob struct {
	Keys      KeyCleaner
	Retention time.Duration
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskIdempotencyCleanup tasks.
func (j *IdempotencyCleanupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskIdempotencyCleanup)
	defer func() { err = tracker.End(err) }()

	retention := j.Retention
	if retention <= 0 {
		retention = 7 * 24 * time.Hour
	}
	removed, err := j.Keys.Cleanup(ctx, retention)
	if err != nil {
		if j.Logger != nil {
			j.Logger.Error("idempotency cleanup", slog.Any("error", err))
		}
		return err
	}
	j.Metrics.AddPruned(removed)
	if j.Logger != nil {
		j.Logger.Info("idempotency keys pruned", slog.Int64("removed", removed), slog.Duration("retention", retention))
	}
	return nil
}
