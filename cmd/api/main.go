package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"fieldops_backend/internal/adapters"
	"fieldops_backend/internal/auth"
	"fieldops_backend/internal/dashboard"
	dashboardhandler "fieldops_backend/internal/dashboard/handler"
	"fieldops_backend/internal/events"
	apphttp "fieldops_backend/internal/http"
	"fieldops_backend/internal/http/router"
	"fieldops_backend/internal/interventions"
	interventionsrepo "fieldops_backend/internal/interventions/repository"
	"fieldops_backend/internal/interventions/scoring"
	"fieldops_backend/internal/notification"
	"fieldops_backend/internal/scheduler"
	"fieldops_backend/internal/users"
	"fieldops_backend/migrations"
	"fieldops_backend/platform/cache"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/db"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/metrics"
	"fieldops_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS)
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	dashboardCache, err := cache.New(cfg)
	if err != nil {
		log.Error("failed to initialize dashboard cache", "error", err)
		panic("failed to initialize dashboard cache: " + err.Error())
	}
	if dashboardCache == nil {
		log.Warn("REDIS_URL not configured; dashboard caching disabled")
	} else {
		defer dashboardCache.Close()
	}

	appMetrics := metrics.New()

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Task client for handing manual refreshes to the worker. Optional:
	// without Redis the dashboard module runs refreshes inline.
	var refreshQueue dashboardhandler.RefreshEnqueuer
	if taskClient, err := scheduler.NewClient(cfg); err != nil {
		log.Warn("task queue unavailable, manual refreshes run inline", "error", err)
	} else {
		defer taskClient.Close()
		refreshQueue = taskClient
	}

	usersModule := users.NewModule(pool, eventBus, cfg, val, log)
	authModule := auth.NewModule(usersModule.Repository(), cfg, log, val)
	dashboardModule := dashboard.NewModule(pool, dashboardCache, cfg, refreshQueue, log, appMetrics)

	// Anti-corruption layer: interventions only see narrow ports over the
	// users and dashboard contexts.
	directory := adapters.NewTechnicianDirectory(usersModule.Repository())
	candidates := adapters.NewScoringTechnicians(usersModule.Repository())
	loads := adapters.NewScoringLoads(dashboardModule.Repository())
	history := func(repo interventionsrepo.InterventionReader) scoring.HistoryReader {
		return adapters.NewScoringHistory(repo)
	}

	interventionsModule := interventions.NewModule(
		pool, eventBus, directory, candidates, loads, history, val, log, appMetrics)

	// Notification module subscribes to domain events (not HTTP-facing)
	_ = notification.NewModule(eventBus, cfg, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:         cfg,
		Logger:         log,
		Health:         db.NewPoolAdapter(pool),
		EventBus:       eventBus,
		MetricsHandler: appMetrics.Handler(),
		Modules: []apphttp.Module{
			authModule,
			usersModule,
			interventionsModule,
			dashboardModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
