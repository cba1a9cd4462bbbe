// Package scoring ranks technician candidates for a new intervention using
// workload, distance, and skill-match signals combined by fixed weights.
package scoring

import (
	"context"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/interventions/domain"
	"fieldops_backend/internal/interventions/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
	"fieldops_backend/platform/metrics"
)

const (
	defaultDistanceScore = 0.5
	defaultSkillScore    = 0.5
	// flatDistanceScore applies when every candidate with coordinates is at
	// the same spot: location is known but carries no ranking signal.
	flatDistanceScore = 0.6

	earthRadiusKm = 6371.0

	historyLimit    = 20
	maxAlternatives = 3

	minTokenLength = 3
)

// stopWords are function words carrying no skill signal. The list mixes
// French and English because job descriptions arrive in both.
var stopWords = map[string]struct{}{
	"les": {}, "des": {}, "une": {}, "pour": {}, "avec": {}, "dans": {},
	"chez": {}, "and": {}, "the": {}, "aux": {}, "sur": {}, "par": {},
}

var tokenSplitter = regexp.MustCompile(`[^a-z0-9]+`)

// Technician is a candidate for assignment.
type Technician struct {
	ID       uuid.UUID
	FullName string
	Email    string
}

// TechnicianLister supplies the candidate pool.
type TechnicianLister interface {
	ListTechnicians(ctx context.Context) ([]Technician, error)
}

// LoadReader supplies current open-assignment counts from the load rollup.
// Technicians without a snapshot row count as zero open assignments.
type LoadReader interface {
	TechnicianOpenCounts(ctx context.Context) (map[uuid.UUID]int64, error)
}

// HistoryReader supplies per-technician geo and textual history.
type HistoryReader interface {
	LatestCoordinate(ctx context.Context, technicianID uuid.UUID) (lat, lon *float64, err error)
	RecentHistory(ctx context.Context, technicianID uuid.UUID, statuses []domain.Status, limit int) ([]HistoryItem, error)
}

// HistoryItem is the text of one past job.
type HistoryItem struct {
	Title       string
	Description *string
}

// Service is the scoring engine.
type Service struct {
	technicians TechnicianLister
	loads       LoadReader
	history     HistoryReader
	log         *logger.Logger
	metrics     *metrics.Metrics
}

// New creates a new scoring service.
func New(technicians TechnicianLister, loads LoadReader, history HistoryReader, log *logger.Logger, m *metrics.Metrics) *Service {
	return &Service{technicians: technicians, loads: loads, history: history, log: log, metrics: m}
}

type candidateMetrics struct {
	technician      Technician
	openAssignments int64
	distanceKm      *float64
	skillMatches    int64
}

// RecommendTechnician scores every technician and returns the best candidate
// plus up to three alternatives. Fails with a conflict error when no
// technicians exist.
func (s *Service) RecommendTechnician(ctx context.Context, req transport.RecommendRequest) (transport.RecommendationResponse, error) {
	technicians, err := s.technicians.ListTechnicians(ctx)
	if err != nil {
		return transport.RecommendationResponse{}, err
	}
	if len(technicians) == 0 {
		return transport.RecommendationResponse{}, apperr.Conflict("no technicians available for assignment")
	}

	openCounts, err := s.loads.TechnicianOpenCounts(ctx)
	if err != nil {
		return transport.RecommendationResponse{}, err
	}

	tokens := ExtractTokens(req.Title, req.Description)
	hasLocation := req.Latitude != nil && req.Longitude != nil
	hasTokens := len(tokens) > 0

	all := make([]candidateMetrics, 0, len(technicians))
	for _, technician := range technicians {
		metric := candidateMetrics{
			technician:      technician,
			openAssignments: openCounts[technician.ID],
		}

		if hasLocation {
			distance, err := s.distanceToTechnician(ctx, technician.ID, *req.Latitude, *req.Longitude)
			if err != nil {
				return transport.RecommendationResponse{}, err
			}
			metric.distanceKm = distance
		}

		if hasTokens {
			matches, err := s.countSkillMatches(ctx, technician.ID, tokens)
			if err != nil {
				return transport.RecommendationResponse{}, err
			}
			metric.skillMatches = matches
		}

		all = append(all, metric)
	}

	var maxOpen, maxSkill int64
	var maxDistance float64
	for _, metric := range all {
		if metric.openAssignments > maxOpen {
			maxOpen = metric.openAssignments
		}
		if metric.skillMatches > maxSkill {
			maxSkill = metric.skillMatches
		}
		if metric.distanceKm != nil && *metric.distanceKm > maxDistance {
			maxDistance = *metric.distanceKm
		}
	}

	distanceWeight := 0.25
	if hasLocation {
		distanceWeight = 0.4
	}
	skillWeight := 0.2
	if hasTokens {
		skillWeight = 0.25
	}
	workloadWeight := 1.0 - distanceWeight - skillWeight

	candidates := make([]transport.CandidateResponse, 0, len(all))
	for _, metric := range all {
		workloadScore := 1.0
		if maxOpen > 0 {
			workloadScore = 1.0 - math.Min(1.0, float64(metric.openAssignments)/float64(maxOpen))
		}
		workloadScore = clamp(workloadScore, 0, 1)

		var distanceScore float64
		switch {
		case !hasLocation || metric.distanceKm == nil:
			distanceScore = defaultDistanceScore
		case maxDistance <= 0:
			distanceScore = flatDistanceScore
		default:
			distanceScore = 1.0 - math.Min(1.0, *metric.distanceKm/maxDistance)
		}
		distanceScore = clamp(distanceScore, 0, 1)

		var skillScore float64
		switch {
		case !hasTokens:
			skillScore = defaultSkillScore
		case maxSkill <= 0:
			skillScore = 0.5
		default:
			skillScore = math.Min(1.0, float64(metric.skillMatches)/float64(maxSkill))
		}
		skillScore = clamp(skillScore, 0, 1)

		overallScore := distanceScore*distanceWeight + workloadScore*workloadWeight + skillScore*skillWeight

		candidates = append(candidates, transport.CandidateResponse{
			TechnicianID:    metric.technician.ID,
			FullName:        metric.technician.FullName,
			Email:           metric.technician.Email,
			OverallScore:    roundTo(overallScore, 3),
			WorkloadScore:   roundTo(workloadScore, 3),
			DistanceScore:   roundTo(distanceScore, 3),
			SkillScore:      roundTo(skillScore, 3),
			DistanceKm:      metric.distanceKm,
			OpenAssignments: metric.openAssignments,
			MatchingHistory: metric.skillMatches,
		})
	}

	// Stable sort keeps input order on ties.
	sortCandidatesDesc(candidates)

	recommended := candidates[0]
	alternatives := candidates[1:]
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}

	s.metrics.RecommendationComputed()
	s.log.Info("technician recommendation computed",
		"recommended", recommended.TechnicianID,
		"candidates", len(candidates),
		"hasLocation", hasLocation,
		"tokens", len(tokens),
	)

	return transport.RecommendationResponse{
		Recommended:  recommended,
		Alternatives: append([]transport.CandidateResponse{}, alternatives...),
		Rationale:    buildRationale(recommended, hasLocation, hasTokens),
		GeneratedAt:  time.Now().UTC(),
	}, nil
}

func (s *Service) distanceToTechnician(ctx context.Context, technicianID uuid.UUID, lat, lon float64) (*float64, error) {
	techLat, techLon, err := s.history.LatestCoordinate(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if techLat == nil || techLon == nil {
		return nil, nil
	}

	distance := Haversine(lat, lon, *techLat, *techLon)
	return &distance, nil
}

func (s *Service) countSkillMatches(ctx context.Context, technicianID uuid.UUID, tokens []string) (int64, error) {
	history, err := s.history.RecentHistory(ctx, technicianID,
		[]domain.Status{domain.StatusCompleted, domain.StatusValidated}, historyLimit)
	if err != nil {
		return 0, err
	}

	var matches int64
	for _, item := range history {
		content := item.Title
		if item.Description != nil {
			content += " " + *item.Description
		}
		content = strings.ToLower(content)

		for _, token := range tokens {
			if strings.Contains(content, token) {
				matches++
				break
			}
		}
	}

	return matches, nil
}

// ExtractTokens lower-cases the combined title+description, splits on
// non-alphanumeric runs, and drops short tokens and stop words. An empty
// result is valid: it means the request carries no textual signal.
func ExtractTokens(title string, description *string) []string {
	combined := title
	if description != nil {
		combined += " " + *description
	}
	combined = strings.ToLower(combined)

	tokens := make([]string, 0)
	for _, token := range tokenSplitter.Split(combined, -1) {
		if len(token) < minTokenLength {
			continue
		}
		if _, stopped := stopWords[token]; stopped {
			continue
		}
		tokens = append(tokens, token)
	}

	return tokens
}

// Haversine returns the great-circle distance in kilometers, rounded to
// 2 decimals.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return roundTo(earthRadiusKm*c, 2)
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

func clamp(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}

// roundTo rounds half away from zero at the given number of decimals.
func roundTo(value float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(value*scale) / scale
}

func sortCandidatesDesc(candidates []transport.CandidateResponse) {
	// Insertion sort: small candidate lists, and stability matters for
	// deterministic tie ordering.
	for i := 1; i < len(candidates); i++ {
		current := candidates[i]
		j := i - 1
		for j >= 0 && candidates[j].OverallScore < current.OverallScore {
			candidates[j+1] = candidates[j]
			j--
		}
		candidates[j+1] = current
	}
}

func buildRationale(candidate transport.CandidateResponse, hasLocation, hasTokens bool) string {
	var b strings.Builder
	b.WriteString("Recommended technician: " + candidate.FullName + ". ")
	b.WriteString(formatPercent(candidate.OverallScore))
	b.WriteString(formatOpenAssignments(candidate.OpenAssignments))
	if hasLocation && candidate.DistanceKm != nil {
		b.WriteString(formatDistance(*candidate.DistanceKm))
	}
	if hasTokens {
		b.WriteString(formatMatchingHistory(candidate.MatchingHistory))
	}
	return strings.TrimSpace(b.String())
}

func formatPercent(score float64) string {
	return "Overall score " + formatFloat(score*100, 1) + "%. "
}

func formatOpenAssignments(count int64) string {
	return "Current load: " + formatInt(count) + " open intervention(s). "
}

func formatDistance(km float64) string {
	return "Estimated distance: " + formatFloat(km, 1) + " km. "
}

func formatMatchingHistory(count int64) string {
	return "Similar history: " + formatInt(count) + " matching intervention(s). "
}

func formatFloat(value float64, decimals int) string {
	return strconv.FormatFloat(roundTo(value, decimals), 'f', decimals, 64)
}

func formatInt(value int64) string {
	return strconv.FormatInt(value, 10)
}
