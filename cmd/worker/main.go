package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"

	"github.com/feedmill/feedmill/internal/app"
	"github.com/feedmill/feedmill/internal/backup"
	"github.com/feedmill/feedmill/internal/feeds"
	jobmetrics "github.com/feedmill/feedmill/internal/jobs"
	"github.com/feedmill/feedmill/internal/platform/db"
	"github.com/feedmill/feedmill/internal/shared"
	"github.com/feedmill/feedmill/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.Pool("worker"))
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(nil)
	feedService := feeds.NewService(feeds.NewRepository(pool), nil)
	backupService := backup.NewService(backup.NewRepository(pool), nil)

	lowStockJob := &jobs.LowStockJob{Feeds: feedService, Threshold: cfg.LowStockThreshold, Logger: logger, Metrics: metrics}
	backupJob := &jobs.BackupJob{Backups: backupService, Dir: cfg.BackupDir, Logger: logger, Metrics: metrics}
	cleanupJob := &jobs.IdempotencyCleanupJob{Keys: shared.NewIdempotencyStore(pool), Logger: logger, Metrics: metrics}

	now := time.Now()
	lowStockTask, err := jobs.NewLowStockScanTask(now)
	if err != nil {
		logger.Error("build low stock task", slog.Any("error", err))
		os.Exit(1)
	}
	backupTask, err := jobs.NewBackupSnapshotTask("cron", now)
	if err != nil {
		logger.Error("build backup task", slog.Any("error", err))
		os.Exit(1)
	}
	cleanupTask, err := jobs.NewIdempotencyCleanupTask(now)
	if err != nil {
		logger.Error("build cleanup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: cfg.Redis().AsynqOpt(),
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskLowStockScan, Handler: lowStockJob.Handle},
			{Type: jobs.TaskBackupSnapshot, Handler: backupJob.Handle},
			{Type: jobs.TaskIdempotencyCleanup, Handler: cleanupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.LowStockCron, Task: lowStockTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
			{Spec: cfg.BackupCron, Task: backupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "30 3 * * *", Task: cleanupTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("worker started", slog.String("backup_dir", cfg.BackupDir))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
