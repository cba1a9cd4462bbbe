package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"fieldops_backend/internal/dashboard/aggregation"
	"fieldops_backend/internal/dashboard/repository"
	"fieldops_backend/internal/scheduler"
	"fieldops_backend/platform/cache"
	"fieldops_backend/platform/config"
	"fieldops_backend/platform/db"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	dashboardCache, err := cache.New(cfg)
	if err != nil {
		log.Error("failed to initialize dashboard cache", "error", err)
		panic("failed to initialize dashboard cache: " + err.Error())
	}
	if dashboardCache != nil {
		defer dashboardCache.Close()
	}

	repo := repository.New(pool)
	aggregationSvc := aggregation.New(repo, dashboardCache, cfg, log, metrics.New())

	worker, err := scheduler.NewWorker(cfg, aggregationSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	log.Info("scheduler worker running",
		"refreshInterval", cfg.GetAnalyticsRefreshInterval().String(),
		"historyDays", cfg.GetAnalyticsHistoryDays(),
	)
	worker.Run(ctx)
	log.Info("scheduler worker stopped")
}
