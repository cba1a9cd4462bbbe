// Package service implements dashboard reads over the analytics rollups with
// a cache-aside layer per region.
package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/dashboard/repository"
	"fieldops_backend/internal/dashboard/transport"
	"fieldops_backend/internal/interventions/domain"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/cache"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/metrics"
)

const (
	mapDefaultLimit = 500

	defaultTrendDays = 14
)

const dateLayout = "2006-01-02"

// Service serves dashboard reads.
type Service struct {
	repo    repository.Reader
	cache   *cache.Cache
	log     *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// New creates a new dashboard service.
func New(repo repository.Reader, c *cache.Cache, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{repo: repo, cache: c, log: log, metrics: m, now: time.Now}
}

// GetSummary returns the per-day counts and completion metrics for one date,
// fleet-wide or scoped to a technician. Statuses without rows report zero.
func (s *Service) GetSummary(ctx context.Context, date *time.Time, scope *uuid.UUID) (transport.SummaryResponse, error) {
	day := s.today()
	if date != nil {
		day = dateOnly(*date)
	}

	key := day.Format(dateLayout) + ":" + scopeKey(scope)
	var cached transport.SummaryResponse
	if hit := s.cacheGet(ctx, cache.RegionSummary, key, &cached); hit {
		return cached, nil
	}

	rows, err := s.repo.FetchDailyMetrics(ctx, day, scope)
	if err != nil {
		return transport.SummaryResponse{}, err
	}

	scheduled := rows[string(domain.StatusScheduled)].TotalCount
	inProgress := rows[string(domain.StatusInProgress)].TotalCount
	completed := rows[string(domain.StatusCompleted)].TotalCount
	validated := rows[string(domain.StatusValidated)].TotalCount

	var refreshedAt *time.Time
	for _, row := range rows {
		if row.LastRefreshedAt == nil {
			continue
		}
		if refreshedAt == nil || row.LastRefreshedAt.After(*refreshedAt) {
			refreshedAt = row.LastRefreshedAt
		}
	}

	resp := transport.SummaryResponse{
		Date:                     day.Format(dateLayout),
		TotalInterventions:       scheduled + inProgress + completed + validated,
		ScheduledCount:           scheduled,
		InProgressCount:          inProgress,
		CompletedCount:           completed,
		ValidatedCount:           validated,
		AverageCompletionSeconds: rows[string(domain.StatusCompleted)].AvgCompletionSeconds,
		ValidationRatio:          rows[string(domain.StatusValidated)].ValidationRatio,
		LastRefreshedAt:          refreshedAt,
	}

	s.cacheSet(ctx, cache.RegionSummary, key, resp)
	return resp, nil
}

// GetStatusTrends returns per-day status counts over an inclusive range. The
// range defaults to the last 14 days ending today.
func (s *Service) GetStatusTrends(ctx context.Context, from, to *time.Time, scope *uuid.UUID) ([]transport.StatusTrendPointResponse, error) {
	end := s.today()
	if to != nil {
		end = dateOnly(*to)
	}
	start := end.AddDate(0, 0, -(defaultTrendDays - 1))
	if from != nil {
		start = dateOnly(*from)
	}
	if start.After(end) {
		return nil, apperr.Validation("'from' must not be after 'to'")
	}

	key := start.Format(dateLayout) + ":" + end.Format(dateLayout) + ":" + scopeKey(scope)
	var cached []transport.StatusTrendPointResponse
	if hit := s.cacheGet(ctx, cache.RegionTrends, key, &cached); hit {
		return cached, nil
	}

	points, err := s.repo.FetchStatusTrends(ctx, start, end, scope)
	if err != nil {
		return nil, err
	}

	resp := make([]transport.StatusTrendPointResponse, 0, len(points))
	for _, p := range points {
		resp = append(resp, transport.StatusTrendPointResponse{
			MetricDate: p.MetricDate.Format(dateLayout),
			Status:     p.Status,
			TotalCount: p.TotalCount,
		})
	}

	s.cacheSet(ctx, cache.RegionTrends, key, resp)
	return resp, nil
}

// GetTechnicianLoad returns workload snapshots, busiest first. A technician
// scope narrows the result to that technician's own row.
func (s *Service) GetTechnicianLoad(ctx context.Context, scope *uuid.UUID) ([]transport.TechnicianLoadResponse, error) {
	key := scopeKey(scope)
	var cached []transport.TechnicianLoadResponse
	if hit := s.cacheGet(ctx, cache.RegionLoad, key, &cached); hit {
		return cached, nil
	}

	var loads []repository.TechnicianLoad
	var err error
	if scope == nil {
		loads, err = s.repo.FetchTechnicianLoads(ctx)
	} else {
		loads, err = s.repo.FetchTechnicianLoad(ctx, *scope)
	}
	if err != nil {
		return nil, err
	}

	resp := make([]transport.TechnicianLoadResponse, 0, len(loads))
	for _, l := range loads {
		resp = append(resp, transport.TechnicianLoadResponse{
			TechnicianID:             l.TechnicianID,
			FullName:                 l.FullName,
			Email:                    l.Email,
			OpenCount:                l.OpenCount,
			CompletedToday:           l.CompletedToday,
			AverageCompletionSeconds: l.AvgCompletionSeconds,
			LastRefreshedAt:          l.LastRefreshedAt,
		})
	}

	s.cacheSet(ctx, cache.RegionLoad, key, resp)
	return resp, nil
}

// GetMapMarkers returns geo-tagged interventions. Coordinates are rounded to
// 2 decimals unless the caller may see precise positions.
func (s *Service) GetMapMarkers(ctx context.Context, req transport.MapQuery, precise bool, scope *uuid.UUID) ([]transport.MapMarkerResponse, error) {
	statuses := make([]string, 0, len(req.Status))
	for _, status := range req.Status {
		status = strings.ToUpper(strings.TrimSpace(status))
		if status == "" {
			continue
		}
		if !domain.ValidStatus(status) {
			return nil, apperr.Validation("unknown status filter: " + status)
		}
		statuses = append(statuses, status)
	}

	limit := req.Limit
	if limit <= 0 || limit > mapDefaultLimit {
		limit = mapDefaultLimit
	}

	key := cacheKeyForMap(statuses, precise, limit, scope)
	var cached []transport.MapMarkerResponse
	if hit := s.cacheGet(ctx, cache.RegionMap, key, &cached); hit {
		return cached, nil
	}

	markers, err := s.repo.FetchMapMarkers(ctx, repository.MapFilter{
		Statuses:     statuses,
		TechnicianID: scope,
		Limit:        limit,
	})
	if err != nil {
		return nil, err
	}

	resp := make([]transport.MapMarkerResponse, 0, len(markers))
	for _, m := range markers {
		lat, lon := m.Latitude, m.Longitude
		if !precise {
			lat = roundTo(lat, 2)
			lon = roundTo(lon, 2)
		}
		resp = append(resp, transport.MapMarkerResponse{
			InterventionID: m.InterventionID,
			Latitude:       lat,
			Longitude:      lon,
			Status:         m.Status,
			TechnicianID:   m.TechnicianID,
			PlannedAt:      m.PlannedAt,
			UpdatedAt:      m.UpdatedAt,
		})
	}

	s.cacheSet(ctx, cache.RegionMap, key, resp)
	return resp, nil
}

func (s *Service) cacheGet(ctx context.Context, region, key string, dest interface{}) bool {
	hit, err := s.cache.GetJSON(ctx, region, key, dest)
	if err != nil {
		s.log.Warn("dashboard cache read failed", "region", region, "error", err)
		return false
	}
	s.metrics.CacheLookup(hit)
	return hit
}

func (s *Service) cacheSet(ctx context.Context, region, key string, value interface{}) {
	if err := s.cache.SetJSON(ctx, region, key, value); err != nil {
		s.log.Warn("dashboard cache write failed", "region", region, "error", err)
	}
}

func cacheKeyForMap(statuses []string, precise bool, limit int, scope *uuid.UUID) string {
	parts := []string{strings.Join(statuses, ","), scopeKey(scope)}
	if precise {
		parts = append(parts, "precise")
	} else {
		parts = append(parts, "rounded")
	}
	parts = append(parts, "limit="+strconv.Itoa(limit))
	return strings.Join(parts, ":")
}

func scopeKey(scope *uuid.UUID) string {
	if scope == nil {
		return "fleet"
	}
	return "tech:" + scope.String()
}

func (s *Service) today() time.Time {
	return dateOnly(s.now().UTC())
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func roundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}
