// Package forecast projects intervention volume with simple exponential
// smoothing and summarizes day-over-day activity as plain-language insights.
package forecast

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"

	"fieldops_backend/internal/dashboard/repository"
	"fieldops_backend/internal/dashboard/transport"
	"fieldops_backend/platform/logger"
)

const (
	// alpha is the fixed smoothing factor. Not tuned per dataset.
	alpha = 0.5

	historyWindowDays   = 21
	forecastHorizonDays = 7

	methodName = "simple-exponential-smoothing"

	slaTargetSeconds = 4 * 60 * 60
	// slaNearFactor marks completions within 15% over target as borderline.
	slaNearFactor = 1.15

	trendThresholdPct = 2.5

	directionUp   = "UP"
	directionDown = "DOWN"
	directionFlat = "FLAT"
)

const dateLayout = "2006-01-02"

// Reader supplies daily totals and per-status metrics.
type Reader interface {
	FetchDailyTotals(ctx context.Context, from, to time.Time, technicianID *uuid.UUID) (map[string]int64, error)
	FetchDailyMetrics(ctx context.Context, date time.Time, technicianID *uuid.UUID) (map[string]repository.DailyMetric, error)
}

// Service is the forecast and insight engine.
type Service struct {
	reader Reader
	log    *logger.Logger
	now    func() time.Time
}

// New creates a new forecast service.
func New(reader Reader, log *logger.Logger) *Service {
	return &Service{reader: reader, log: log, now: time.Now}
}

// Forecast projects 7 days of intervention volume from the 21 days ending at
// endDate (today when nil). Days without activity count as zero. Each
// projected day feeds its rounded value forward as the next day's observation.
func (s *Service) Forecast(ctx context.Context, endDate *time.Time, technicianID *uuid.UUID) (transport.ForecastResponse, error) {
	end := s.today()
	if endDate != nil {
		end = dateOnly(*endDate)
	}
	start := end.AddDate(0, 0, -(historyWindowDays - 1))

	totals, err := s.reader.FetchDailyTotals(ctx, start, end, technicianID)
	if err != nil {
		return transport.ForecastResponse{}, err
	}

	actuals := make([]float64, historyWindowDays)
	for i := range actuals {
		day := start.AddDate(0, 0, i)
		actuals[i] = float64(totals[day.Format(dateLayout)])
	}

	smoothed := actuals[0]
	for _, actual := range actuals[1:] {
		smoothed = alpha*actual + (1-alpha)*smoothed
	}

	points := make([]transport.ForecastPointResponse, 0, forecastHorizonDays)
	for i := 1; i <= forecastHorizonDays; i++ {
		projected := int64(math.Round(smoothed))
		if projected < 0 {
			projected = 0
		}
		points = append(points, transport.ForecastPointResponse{
			Date:           end.AddDate(0, 0, i).Format(dateLayout),
			ProjectedCount: projected,
		})
		// The rounded projection stands in for the missing observation.
		smoothed = alpha*float64(projected) + (1-alpha)*smoothed
	}

	return transport.ForecastResponse{
		GeneratedAt:       s.now().UTC(),
		Method:            methodName,
		Alpha:             alpha,
		LastObservedCount: int64(actuals[historyWindowDays-1]),
		BaselineAverage:   roundTo(stat.Mean(actuals, nil), 1),
		Points:            points,
	}, nil
}

// Insights compares today's volume to yesterday's and grades validation and
// completion-time health against fixed thresholds.
func (s *Service) Insights(ctx context.Context, date *time.Time, technicianID *uuid.UUID) (transport.InsightResponse, error) {
	today := s.today()
	if date != nil {
		today = dateOnly(*date)
	}
	yesterday := today.AddDate(0, 0, -1)

	totals, err := s.reader.FetchDailyTotals(ctx, yesterday, today, technicianID)
	if err != nil {
		return transport.InsightResponse{}, err
	}
	todayCount := totals[today.Format(dateLayout)]
	yesterdayCount := totals[yesterday.Format(dateLayout)]

	metrics, err := s.reader.FetchDailyMetrics(ctx, today, technicianID)
	if err != nil {
		return transport.InsightResponse{}, err
	}

	trendPct := trendPercentage(todayCount, yesterdayCount)
	direction := trendDirection(trendPct)
	validationRate := validationRate(metrics)
	slaAssessment, avgSeconds := assessSLA(metrics)

	headline := buildHeadline(direction, trendPct, todayCount)
	highlights := []string{
		fmt.Sprintf("%d intervention(s) today vs %d yesterday.", todayCount, yesterdayCount),
		fmt.Sprintf("Validation rate at %s%%.", formatFloat(validationRate, 1)),
		"Completion time " + slaAssessment + ".",
	}
	if avgSeconds != nil {
		highlights[2] = fmt.Sprintf("Average completion %s minutes, SLA %s.",
			formatFloat(*avgSeconds/60, 0), slaAssessment)
	}

	return transport.InsightResponse{
		Date:                 today.Format(dateLayout),
		Headline:             headline,
		TrendDirection:       direction,
		TrendPercentage:      roundTo(trendPct, 1),
		ValidationRate:       roundTo(validationRate, 1),
		ValidationAssessment: assessValidation(validationRate),
		SLAAssessment:        slaAssessment,
		Highlights:           highlights,
	}, nil
}

func (s *Service) today() time.Time {
	return dateOnly(s.now().UTC())
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func trendPercentage(today, yesterday int64) float64 {
	switch {
	case yesterday == 0 && today > 0:
		return 100
	case yesterday == 0:
		return 0
	default:
		return float64(today-yesterday) / float64(yesterday) * 100
	}
}

func trendDirection(pct float64) string {
	switch {
	case pct > trendThresholdPct:
		return directionUp
	case pct < -trendThresholdPct:
		return directionDown
	default:
		return directionFlat
	}
}

// validationRate prefers the rollup's precomputed ratio and falls back to
// recomputing from the completed and validated counts.
func validationRate(metrics map[string]repository.DailyMetric) float64 {
	validated := metrics["VALIDATED"]
	if validated.ValidationRatio != nil {
		return clamp(*validated.ValidationRatio, 0, 100)
	}

	completed := metrics["COMPLETED"].TotalCount
	denominator := completed + validated.TotalCount
	if denominator < 1 {
		denominator = 1
	}
	rate := float64(validated.TotalCount) / float64(denominator) * 100
	return clamp(rate, 0, 100)
}

func assessValidation(rate float64) string {
	switch {
	case rate >= 80:
		return "strong"
	case rate >= 50:
		return "acceptable"
	default:
		return "needs attention"
	}
}

// assessSLA grades average completion time against the 4-hour target.
func assessSLA(metrics map[string]repository.DailyMetric) (string, *float64) {
	avg := metrics["COMPLETED"].AvgCompletionSeconds
	if avg == nil {
		avg = metrics["VALIDATED"].AvgCompletionSeconds
	}
	if avg == nil {
		return "not enough data", nil
	}

	switch {
	case *avg <= slaTargetSeconds:
		return "met", avg
	case *avg <= slaTargetSeconds*slaNearFactor:
		return "near threshold", avg
	default:
		return "at risk", avg
	}
}

func buildHeadline(direction string, trendPct float64, todayCount int64) string {
	switch direction {
	case directionUp:
		return fmt.Sprintf("Activity up %s%% with %d intervention(s) today.",
			formatFloat(trendPct, 1), todayCount)
	case directionDown:
		return fmt.Sprintf("Activity down %s%% with %d intervention(s) today.",
			formatFloat(math.Abs(trendPct), 1), todayCount)
	default:
		return fmt.Sprintf("Activity steady with %d intervention(s) today.", todayCount)
	}
}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

func roundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}

func formatFloat(value float64, decimals int) string {
	return strconv.FormatFloat(roundTo(value, decimals), 'f', decimals, 64)
}
