package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/libris/libris/cmd/libris/cli"
	"github.com/libris/libris/internal/app"
	"github.com/libris/libris/internal/borrowers"
	"github.com/libris/libris/internal/catalog"
	"github.com/libris/libris/internal/loans"
	"github.com/libris/libris/internal/notifications"
	"github.com/libris/libris/internal/observability"
	"github.com/libris/libris/internal/penalties"
	"github.com/libris/libris/internal/platform/cache"
	"github.com/libris/libris/internal/platform/db"
	"github.com/libris/libris/internal/reports"
	"github.com/libris/libris/internal/shared"
	"github.com/libris/libris/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)

	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	switch command {
	case "serve":
		if err := serve(ctx, cfg, logger); err != nil {
			logger.Error("serve", slog.Any("error", err))
			os.Exit(1)
		}
	case "migrate":
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			logger.Error("migrate", slog.Any("error", err))
			os.Exit(1)
		}
	case "jobs":
		jobsCLI, err := cli.NewJobsCLI(cfg.RedisAddr)
		if err != nil {
			logger.Error("jobs cli", slog.Any("error", err))
			os.Exit(1)
		}
		code := jobsCLI.Command(ctx, cli.JobsOptions{Args: os.Args[2:]})
		if err := jobsCLI.Close(); err != nil {
			logger.Warn("jobs cli close", slog.Any("error", err))
		}
		os.Exit(code)
	default:
		logger.Error("unknown command", slog.String("command", command))
		os.Exit(2)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	if cfg.PGMigrate {
		if err := db.Migrate(cfg.PGDSN, logger); err != nil {
			return err
		}
	}

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	loanCfg, err := cfg.LoanServiceConfig()
	if err != nil {
		return err
	}

	metrics := observability.NewMetrics()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}

	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()

	catalogRepo := catalog.NewRepository(pool)
	borrowerRepo := borrowers.NewRepository(pool)
	penaltyRepo := penalties.NewRepository(pool)
	loanRepo := loans.NewRepository(pool)

	reportCache := reports.NewCache(redisClient, cfg.ReportCacheTTL)
	if err := reportCache.ListenForInvalidation(ctx); err != nil {
		logger.Warn("report invalidation listener", slog.Any("error", err))
	}
	reportService := reports.NewService(reports.Sources{
		Books:     catalogRepo,
		Loans:     loanRepo,
		Penalties: penaltyRepo,
		Borrowers: borrowerRepo,
	}, reportCache)

	notificationService := notifications.NewService(notifications.NewRepository(pool), jobClient, logger)
	loanService := loans.NewService(loanRepo, loanCfg)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Metrics:          metrics,
		CatalogHandler:   catalog.NewHandler(logger, catalog.NewService(catalogRepo), reportService),
		BorrowersHandler: borrowers.NewHandler(logger, borrowers.NewService(borrowerRepo), reportService),
		LoansHandler: loans.NewHandler(logger, loanService, loans.HandlerDeps{
			Audit:       shared.NewAuditLogger(pool),
			Idempotency: shared.NewIdempotencyStore(pool),
			Invalidator: reportService,
			Metrics:     loans.NewMetrics(metrics.Registerer()),
		}),
		PenaltiesHandler:     penalties.NewHandler(logger, penalties.NewService(penaltyRepo), reportService),
		NotificationsHandler: notifications.NewHandler(logger, notificationService),
		ReportsHandler:       reports.NewHandler(logger, reportService),
		JobHandler:           jobs.NewHandler(inspector, logger),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
