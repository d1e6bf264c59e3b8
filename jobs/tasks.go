package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLowStockScan reports feeds under the low-stock threshold.
	TaskLowStockScan = "stock:low_scan"
	// TaskBackupSnapshot writes a JSON backup into the backup directory.
	TaskBackupSnapshot = "backup:snapshot"
)

// ScheduledPayload carries scheduling metadata shared by the periodic tasks.
type ScheduledPayload struct {
	RequestedAt time.Time `json:"requested_at"`
	Source      string    `json:"source,omitempty"`
}

func newScheduledTask(taskType, source string, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(ScheduledPayload{RequestedAt: at.UTC(), Source: source})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body, asynq.Queue(QueueDefault)), nil
}

// NewLowStockScanTask constructs the low-stock scan task.
func NewLowStockScanTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskLowStockScan, "cron", at)
}

// NewBackupSnapshotTask constructs a backup task; source is "cron" or "api".
func NewBackupSnapshotTask(source string, at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskBackupSnapshot, source, at)
}

func decodeScheduled(t *asynq.Task) (ScheduledPayload, error) {
	var payload ScheduledPayload
	if len(t.Payload()) == 0 {
		return payload, nil
	}
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return payload, asynq.SkipRetry
	}
	return payload, nil
}

// TaskIdempotencyCleanup drops idempotency keys past their retention.
const TaskIdempotencyCleanup = "idempotency:cleanup"

// NewIdempotencyCleanupTask constructs the cleanup task.
func NewIdempotencyCleanupTask(at time.Time) (*asynq.Task, error) {
	return newScheduledTask(TaskIdempotencyCleanup, "cron", at)
}
