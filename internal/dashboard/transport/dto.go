// Package transport defines request and response DTOs for dashboard endpoints.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// SummaryQuery selects the day for the dashboard summary.
type SummaryQuery struct {
	Date *time.Time `form:"date" time_format:"2006-01-02"`
}

// TrendsQuery selects the inclusive date range for status trends.
type TrendsQuery struct {
	From *time.Time `form:"from" time_format:"2006-01-02"`
	To   *time.Time `form:"to" time_format:"2006-01-02"`
}

// MapQuery filters the intervention map.
type MapQuery struct {
	Status []string `form:"status"`
	Limit  int      `form:"limit" binding:"omitempty,gt=0,max=1000"`
}

// ForecastQuery selects the anchor day for the volume forecast.
type ForecastQuery struct {
	Date *time.Time `form:"date" time_format:"2006-01-02"`
}

// SummaryResponse is the per-day fleet or technician summary.
type SummaryResponse struct {
	Date                     string     `json:"date"`
	TotalInterventions       int64      `json:"totalInterventions"`
	ScheduledCount           int64      `json:"scheduledCount"`
	InProgressCount          int64      `json:"inProgressCount"`
	CompletedCount           int64      `json:"completedCount"`
	ValidatedCount           int64      `json:"validatedCount"`
	AverageCompletionSeconds *float64   `json:"averageCompletionSeconds"`
	ValidationRatio          *float64   `json:"validationRatio"`
	LastRefreshedAt          *time.Time `json:"lastRefreshedAt"`
}

// StatusTrendPointResponse is one (day, status) count.
type StatusTrendPointResponse struct {
	MetricDate string `json:"metricDate"`
	Status     string `json:"status"`
	TotalCount int64  `json:"totalCount"`
}

// TechnicianLoadResponse is one technician's workload snapshot.
type TechnicianLoadResponse struct {
	TechnicianID             uuid.UUID  `json:"technicianId"`
	FullName                 string     `json:"fullName"`
	Email                    string     `json:"email"`
	OpenCount                int64      `json:"openCount"`
	CompletedToday           int64      `json:"completedToday"`
	AverageCompletionSeconds *float64   `json:"averageCompletionSeconds"`
	LastRefreshedAt          *time.Time `json:"lastRefreshedAt"`
}

// MapMarkerResponse is one geo-tagged intervention on the map.
type MapMarkerResponse struct {
	InterventionID uuid.UUID  `json:"interventionId"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	Status         string     `json:"status"`
	TechnicianID   *uuid.UUID `json:"technicianId"`
	PlannedAt      *time.Time `json:"plannedAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// ForecastPointResponse is one projected day.
type ForecastPointResponse struct {
	Date           string `json:"date"`
	ProjectedCount int64  `json:"projectedCount"`
}

// ForecastResponse is the 7-day volume projection.
type ForecastResponse struct {
	GeneratedAt       time.Time               `json:"generatedAt"`
	Method            string                  `json:"method"`
	Alpha             float64                 `json:"alpha"`
	LastObservedCount int64                   `json:"lastObservedCount"`
	BaselineAverage   float64                 `json:"baselineAverage"`
	Points            []ForecastPointResponse `json:"points"`
}

// InsightResponse is the day-over-day activity read-out.
type InsightResponse struct {
	Date                 string   `json:"date"`
	Headline             string   `json:"headline"`
	TrendDirection       string   `json:"trendDirection"`
	TrendPercentage      float64  `json:"trendPercentage"`
	ValidationRate       float64  `json:"validationRate"`
	ValidationAssessment string   `json:"validationAssessment"`
	SLAAssessment        string   `json:"slaAssessment"`
	Highlights           []string `json:"highlights"`
}
