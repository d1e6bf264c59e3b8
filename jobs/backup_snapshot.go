package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/feedmill/feedmill/internal/jobs"
)

// SnapshotWriter persists a backup file into a directory.
type SnapshotWriter interface {
	SaveToDir(ctx context.Context, dir string) (string, error)
}

// BackupJob writes scheduled and on-demand snapshots into Dir.
type BackupJob struct {
	Backups SnapshotWriter
	Dir     string
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle processes TaskBackupSnapshot tasks.
func (j *BackupJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Backups == nil {
		return errors.New("backup snapshot: handler not configured")
	}
	payload, err := decodeScheduled(t)
	if err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskBackupSnapshot)
	defer func() { err = tracker.End(err) }()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	path, err := j.Backups.SaveToDir(ctx, j.Dir)
	if err != nil {
		logger.Error("backup snapshot", slog.String("source", payload.Source), slog.Any("error", err))
		return err
	}
	logger.Info("backup snapshot written", slog.String("path", path), slog.String("source", payload.Source))
	return nil
}
