package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/shopspring/decimal"

	"github.com/feedmill/feedmill/internal/feeds"
	jobmetrics "github.com/feedmill/feedmill/internal/jobs"
)

// StockScanner lists active feeds under a threshold.
type StockScanner interface {
	LowStock(ctx context.Context, threshold decimal.Decimal) ([]feeds.Feed, error)
}

// LowStockJob logs every active feed whose stock fell below Threshold.
type LowStockJob struct {
	Feeds     StockScanner
	Threshold decimal.Decimal
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// Handle processes TaskLowStockScan tasks.
func (j *LowStockJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Feeds == nil {
		return errors.New("low stock scan: handler not configured")
	}
	if _, err := decodeScheduled(t); err != nil {
		return err
	}
	tracker := j.Metrics.Track(TaskLowStockScan)
	defer func() { err = tracker.End(err) }()

	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	low, err := j.Feeds.LowStock(ctx, j.Threshold)
	if err != nil {
		logger.Error("low stock scan", slog.Any("error", err))
		return err
	}
	j.Metrics.SetLowStock(len(low))
	for _, f := range low {
		logger.Warn("feed below threshold",
			slog.Int64("feed_id", f.ID),
			slog.String("feed", f.Name),
			slog.String("quantity_kg", f.QuantityKg.String()),
			slog.String("threshold_kg", j.Threshold.String()))
	}
	logger.Info("low stock scan finished", slog.Int("low", len(low)))
	return nil
}
