package forecast

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/dashboard/repository"
	"fieldops_backend/platform/logger"
)

type fakeReader struct {
	totals  map[string]int64
	metrics map[string]repository.DailyMetric
}

func (f *fakeReader) FetchDailyTotals(_ context.Context, _, _ time.Time, _ *uuid.UUID) (map[string]int64, error) {
	return f.totals, nil
}

func (f *fakeReader) FetchDailyMetrics(_ context.Context, _ time.Time, _ *uuid.UUID) (map[string]repository.DailyMetric, error) {
	return f.metrics, nil
}

func newTestService(reader *fakeReader) *Service {
	svc := New(reader, logger.New("test"))
	svc.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	return svc
}

func constantTotals(end time.Time, days int, count int64) map[string]int64 {
	totals := make(map[string]int64, days)
	for i := 0; i < days; i++ {
		totals[end.AddDate(0, 0, -i).Format(dateLayout)] = count
	}
	return totals
}

func TestForecastConstantSeries(t *testing.T) {
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	reader := &fakeReader{totals: constantTotals(end, historyWindowDays, 10)}
	svc := newTestService(reader)

	resp, err := svc.Forecast(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if resp.Method != "simple-exponential-smoothing" {
		t.Fatalf("method = %q", resp.Method)
	}
	if resp.Alpha != 0.5 {
		t.Fatalf("alpha = %v, want 0.5", resp.Alpha)
	}
	if resp.LastObservedCount != 10 {
		t.Fatalf("lastObservedCount = %d, want 10", resp.LastObservedCount)
	}
	if resp.BaselineAverage != 10.0 {
		t.Fatalf("baselineAverage = %v, want 10.0", resp.BaselineAverage)
	}
	if len(resp.Points) != forecastHorizonDays {
		t.Fatalf("points = %d, want %d", len(resp.Points), forecastHorizonDays)
	}
	for _, p := range resp.Points {
		if p.ProjectedCount != 10 {
			t.Fatalf("projected %s = %d, want 10", p.Date, p.ProjectedCount)
		}
	}
	if resp.Points[0].Date != "2025-06-16" {
		t.Fatalf("first point date = %q, want 2025-06-16", resp.Points[0].Date)
	}
}

func TestForecastEmptyWindowProjectsZero(t *testing.T) {
	reader := &fakeReader{totals: map[string]int64{}}
	svc := newTestService(reader)

	resp, err := svc.Forecast(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if resp.LastObservedCount != 0 || resp.BaselineAverage != 0 {
		t.Fatalf("empty window: lastObserved=%d baseline=%v", resp.LastObservedCount, resp.BaselineAverage)
	}
	for _, p := range resp.Points {
		if p.ProjectedCount != 0 {
			t.Fatalf("projected %s = %d, want 0", p.Date, p.ProjectedCount)
		}
	}
}

func TestForecastCarriesRoundedProjection(t *testing.T) {
	end := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	totals := constantTotals(end, historyWindowDays, 0)
	// A single spike on the last day leaves the smoothed level at 3.5;
	// the first projection rounds to 4 and the carry pulls the level up.
	totals[end.Format(dateLayout)] = 7
	reader := &fakeReader{totals: totals}
	svc := newTestService(reader)

	resp, err := svc.Forecast(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}

	if resp.Points[0].ProjectedCount != 4 {
		t.Fatalf("first projection = %d, want 4", resp.Points[0].ProjectedCount)
	}
	// level after carry: 0.5*4 + 0.5*3.5 = 3.75 → rounds to 4 again.
	if resp.Points[1].ProjectedCount != 4 {
		t.Fatalf("second projection = %d, want 4", resp.Points[1].ProjectedCount)
	}
}

func TestInsightsTrendUp(t *testing.T) {
	reader := &fakeReader{
		totals: map[string]int64{
			"2025-06-15": 12,
			"2025-06-14": 10,
		},
		metrics: map[string]repository.DailyMetric{},
	}
	svc := newTestService(reader)

	resp, err := svc.Insights(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if resp.TrendPercentage != 20.0 {
		t.Fatalf("trendPercentage = %v, want 20.0", resp.TrendPercentage)
	}
	if resp.TrendDirection != "UP" {
		t.Fatalf("trendDirection = %q, want UP", resp.TrendDirection)
	}
}

func TestInsightsTrendFromZeroYesterday(t *testing.T) {
	reader := &fakeReader{
		totals:  map[string]int64{"2025-06-15": 3},
		metrics: map[string]repository.DailyMetric{},
	}
	svc := newTestService(reader)

	resp, err := svc.Insights(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if resp.TrendPercentage != 100 {
		t.Fatalf("trendPercentage = %v, want 100", resp.TrendPercentage)
	}
	if resp.TrendDirection != "UP" {
		t.Fatalf("trendDirection = %q, want UP", resp.TrendDirection)
	}
}

func TestInsightsBothDaysZeroAreFlat(t *testing.T) {
	reader := &fakeReader{totals: map[string]int64{}, metrics: map[string]repository.DailyMetric{}}
	svc := newTestService(reader)

	resp, err := svc.Insights(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if resp.TrendPercentage != 0 || resp.TrendDirection != "FLAT" {
		t.Fatalf("got %v/%s, want 0/FLAT", resp.TrendPercentage, resp.TrendDirection)
	}
}

func TestInsightsValidationFallback(t *testing.T) {
	reader := &fakeReader{
		totals: map[string]int64{},
		metrics: map[string]repository.DailyMetric{
			"COMPLETED": {Status: "COMPLETED", TotalCount: 3},
			"VALIDATED": {Status: "VALIDATED", TotalCount: 1},
		},
	}
	svc := newTestService(reader)

	resp, err := svc.Insights(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if resp.ValidationRate != 25.0 {
		t.Fatalf("validationRate = %v, want 25.0", resp.ValidationRate)
	}
}

func TestInsightsValidationRatioClamped(t *testing.T) {
	ratio := 140.0
	reader := &fakeReader{
		totals: map[string]int64{},
		metrics: map[string]repository.DailyMetric{
			"VALIDATED": {Status: "VALIDATED", TotalCount: 2, ValidationRatio: &ratio},
		},
	}
	svc := newTestService(reader)

	resp, err := svc.Insights(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Insights() error = %v", err)
	}
	if resp.ValidationRate != 100 {
		t.Fatalf("validationRate = %v, want 100", resp.ValidationRate)
	}
}

func TestInsightsSLABuckets(t *testing.T) {
	cases := []struct {
		name string
		avg  *float64
		want string
	}{
		{"no data", nil, "not enough data"},
		{"within target", ptr(3 * 3600.0), "met"},
		{"at target", ptr(4 * 3600.0), "met"},
		{"near threshold", ptr(4.5 * 3600.0), "near threshold"},
		{"at risk", ptr(6 * 3600.0), "at risk"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			metrics := map[string]repository.DailyMetric{}
			if tc.avg != nil {
				metrics["COMPLETED"] = repository.DailyMetric{Status: "COMPLETED", AvgCompletionSeconds: tc.avg}
			}
			svc := newTestService(&fakeReader{totals: map[string]int64{}, metrics: metrics})

			resp, err := svc.Insights(context.Background(), nil, nil)
			if err != nil {
				t.Fatalf("Insights() error = %v", err)
			}
			if resp.SLAAssessment != tc.want {
				t.Fatalf("slaAssessment = %q, want %q", resp.SLAAssessment, tc.want)
			}
		})
	}
}

func ptr(v float64) *float64 { return &v }
