package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/feedmill/feedmill/internal/app"
	"github.com/feedmill/feedmill/internal/auth"
	"github.com/feedmill/feedmill/internal/backup"
	"github.com/feedmill/feedmill/internal/customers"
	"github.com/feedmill/feedmill/internal/expenses"
	"github.com/feedmill/feedmill/internal/feeds"
	"github.com/feedmill/feedmill/internal/invoices"
	"github.com/feedmill/feedmill/internal/observability"
	"github.com/feedmill/feedmill/internal/platform/cache"
	"github.com/feedmill/feedmill/internal/platform/db"
	"github.com/feedmill/feedmill/internal/purchases"
	"github.com/feedmill/feedmill/internal/reports"
	"github.com/feedmill/feedmill/internal/shared"
	"github.com/feedmill/feedmill/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	createUser := flag.String("create-user", "", "create an operator account with this username and exit")
	password := flag.String("password", "", "password for -create-user")
	flag.Parse()

	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.Pool("api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Error("apply schema", slog.Any("error", err))
		os.Exit(1)
	}

	authService := auth.NewService(auth.NewRepository(pool), cfg.JWTSecret, cfg.JWTTTL)
	if *createUser != "" {
		user, err := authService.CreateUser(ctx, *createUser, *password)
		if err != nil {
			fmt.Fprintf(os.Stderr, "create user: %v\n", err)
			os.Exit(1)
		}
		logger.Info("user created", slog.Int64("id", user.ID), slog.String("username", user.Username))
		return
	}

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cfg.Redis()); err != nil {
		logger.Warn("redis unavailable, report cache and job scheduling disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	idempotency := shared.NewIdempotencyStore(pool)

	feedService := feeds.NewService(feeds.NewRepository(pool), reportCache)
	customerService := customers.NewService(customers.NewRepository(pool), reportCache)
	purchaseService := purchases.NewService(purchases.NewRepository(pool), reportCache)
	invoiceService := invoices.NewService(invoices.NewRepository(pool), idempotency, reportCache, metrics)
	expenseService := expenses.NewService(expenses.NewRepository(pool), reportCache)
	reportService := reports.NewService(reports.NewRepository(pool), reportCache, cfg.LowStockThreshold)
	backupService := backup.NewService(backup.NewRepository(pool), reportCache)

	var (
		enqueuer   backup.Enqueuer
		jobHandler *jobs.Handler
	)
	if redisClient != nil {
		redisOpts := cfg.Redis().AsynqOpt()
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		enqueuer = jobClient

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthHandler:     auth.NewHandler(logger, authService),
		FeedHandler:     feeds.NewHandler(logger, feedService),
		CustomerHandler: customers.NewHandler(logger, customerService),
		PurchaseHandler: purchases.NewHandler(logger, purchaseService),
		InvoiceHandler:  invoices.NewHandler(logger, invoiceService),
		ExpenseHandler:  expenses.NewHandler(logger, expenseService),
		ReportHandler:   reports.NewHandler(logger, reportService),
		BackupHandler:   backup.NewHandler(logger, backupService, enqueuer),
		JobHandler:      jobHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr), slog.String("env", cfg.AppEnv))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
