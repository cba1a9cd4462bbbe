// Package aggregation rebuilds the analytics rollup tables on demand and on
// a schedule, then evicts the dashboard cache so reads see the fresh slice.
package aggregation

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"fieldops_backend/platform/config"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/metrics"
)

// Store rebuilds all rollup tables in one transaction.
type Store interface {
	ReplaceRollups(ctx context.Context, from, to time.Time, refreshedAt time.Time) error
}

// Evictor drops cached dashboard entries after a successful refresh.
type Evictor interface {
	EvictDashboard(ctx context.Context) error
}

// Service is the aggregation engine.
type Service struct {
	store       Store
	evictor     Evictor
	historyDays int
	log         *logger.Logger
	metrics     *metrics.Metrics

	group singleflight.Group
	now   func() time.Time
}

// New creates a new aggregation service.
func New(store Store, evictor Evictor, cfg config.AnalyticsConfig, log *logger.Logger, m *metrics.Metrics) *Service {
	days := cfg.GetAnalyticsHistoryDays()
	if days < 1 {
		days = 1
	}
	return &Service{
		store:       store,
		evictor:     evictor,
		historyDays: days,
		log:         log,
		metrics:     m,
		now:         time.Now,
	}
}

// Refresh rebuilds the rollups for the configured history window ending
// today (UTC). Concurrent calls coalesce into a single run; every caller
// gets that run's result. The cache is only evicted after the rebuild
// commits, so a failed refresh leaves the previous rollups and cache intact.
func (s *Service) Refresh(ctx context.Context) error {
	_, err, _ := s.group.Do("refresh", func() (interface{}, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

func (s *Service) refresh(ctx context.Context) error {
	started := s.now()
	refreshedAt := started.UTC()
	to := time.Date(refreshedAt.Year(), refreshedAt.Month(), refreshedAt.Day(), 0, 0, 0, 0, time.UTC)
	from := to.AddDate(0, 0, -(s.historyDays - 1))

	err := s.store.ReplaceRollups(ctx, from, to, refreshedAt)
	duration := s.now().Sub(started)
	s.metrics.ObserveRefresh(duration, err)
	s.log.AnalyticsRefresh(duration, err)
	if err != nil {
		return err
	}

	if err := s.evictor.EvictDashboard(ctx); err != nil {
		s.log.Warn("dashboard cache eviction failed after refresh", "error", err)
	}

	return nil
}
