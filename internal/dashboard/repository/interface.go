// Package repository provides read access to the analytics rollup tables and
// the writers the aggregation engine uses to rebuild them.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// DailyMetric is one status row of the per-day rollup.
type DailyMetric struct {
	MetricDate           time.Time
	Status               string
	TotalCount           int64
	AvgCompletionSeconds *float64
	ValidationRatio      *float64
	LastRefreshedAt      *time.Time
}

// TechnicianLoad is one technician's workload snapshot joined with identity.
type TechnicianLoad struct {
	TechnicianID         uuid.UUID
	FullName             string
	Email                string
	OpenCount            int64
	CompletedToday       int64
	AvgCompletionSeconds *float64
	LastRefreshedAt      *time.Time
}

// MapMarker is one geo-tagged intervention from the map snapshot.
type MapMarker struct {
	InterventionID uuid.UUID
	Latitude       float64
	Longitude      float64
	Status         string
	TechnicianID   *uuid.UUID
	PlannedAt      *time.Time
	UpdatedAt      time.Time
}

// StatusTrendPoint is one (day, status) count.
type StatusTrendPoint struct {
	MetricDate time.Time
	Status     string
	TotalCount int64
}

// MapFilter narrows the map snapshot query.
type MapFilter struct {
	Statuses     []string
	TechnicianID *uuid.UUID
	Limit        int
}

// Reader serves dashboard queries. A nil technicianID reads the fleet-wide
// rollups; a non-nil one recomputes the same shapes from raw rows scoped to
// that technician.
type Reader interface {
	FetchDailyMetrics(ctx context.Context, date time.Time, technicianID *uuid.UUID) (map[string]DailyMetric, error)
	FetchStatusTrends(ctx context.Context, from, to time.Time, technicianID *uuid.UUID) ([]StatusTrendPoint, error)
	FetchTechnicianLoads(ctx context.Context) ([]TechnicianLoad, error)
	FetchTechnicianLoad(ctx context.Context, technicianID uuid.UUID) ([]TechnicianLoad, error)
	FetchDailyTotals(ctx context.Context, from, to time.Time, technicianID *uuid.UUID) (map[string]int64, error)
	FetchMapMarkers(ctx context.Context, filter MapFilter) ([]MapMarker, error)
	TechnicianOpenCounts(ctx context.Context) (map[uuid.UUID]int64, error)
}

// Writer rebuilds the rollup tables. The Replace* methods each run inside the
// caller's transaction; ReplaceRollups owns a transaction spanning all three.
type Writer interface {
	ReplaceRollups(ctx context.Context, from, to time.Time, refreshedAt time.Time) error
	ReplaceDailyMetrics(ctx context.Context, tx pgx.Tx, from, to time.Time, refreshedAt time.Time) error
	ReplaceTechnicianLoad(ctx context.Context, tx pgx.Tx, refreshedAt time.Time) error
	ReplaceGeoSnapshot(ctx context.Context, tx pgx.Tx, refreshedAt time.Time) error
}

// Repository combines dashboard reads and rollup writes.
type Repository interface {
	Reader
	Writer
}
