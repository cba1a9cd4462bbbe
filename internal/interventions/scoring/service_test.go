package scoring

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"

	"fieldops_backend/internal/interventions/domain"
	"fieldops_backend/internal/interventions/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
)

type fakeLister struct {
	technicians []Technician
}

func (f *fakeLister) ListTechnicians(context.Context) ([]Technician, error) {
	return f.technicians, nil
}

type fakeLoads struct {
	counts map[uuid.UUID]int64
}

func (f *fakeLoads) TechnicianOpenCounts(context.Context) (map[uuid.UUID]int64, error) {
	return f.counts, nil
}

type fakeHistory struct {
	coords  map[uuid.UUID][2]float64
	history map[uuid.UUID][]HistoryItem
}

func (f *fakeHistory) LatestCoordinate(_ context.Context, id uuid.UUID) (*float64, *float64, error) {
	coord, ok := f.coords[id]
	if !ok {
		return nil, nil, nil
	}
	lat, lon := coord[0], coord[1]
	return &lat, &lon, nil
}

func (f *fakeHistory) RecentHistory(_ context.Context, id uuid.UUID, _ []domain.Status, _ int) ([]HistoryItem, error) {
	return f.history[id], nil
}

func newTechnician(name string) Technician {
	return Technician{ID: uuid.New(), FullName: name, Email: name + "@example.com"}
}

func newTestService(lister *fakeLister, loads *fakeLoads, history *fakeHistory) *Service {
	return New(lister, loads, history, logger.New("test"), nil)
}

func TestRecommendNoTechniciansIsConflict(t *testing.T) {
	svc := newTestService(&fakeLister{}, &fakeLoads{}, &fakeHistory{})

	_, err := svc.RecommendTechnician(context.Background(), transport.RecommendRequest{Title: "Fix boiler"})
	if err == nil {
		t.Fatal("expected error for empty technician pool")
	}
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestRecommendWorkloadExtremes(t *testing.T) {
	busy := newTechnician("busy")
	idle := newTechnician("idle")
	svc := newTestService(
		&fakeLister{technicians: []Technician{busy, idle}},
		&fakeLoads{counts: map[uuid.UUID]int64{busy.ID: 2, idle.ID: 0}},
		&fakeHistory{},
	)

	resp, err := svc.RecommendTechnician(context.Background(), transport.RecommendRequest{Title: "xy"})
	if err != nil {
		t.Fatalf("RecommendTechnician() error = %v", err)
	}

	if resp.Recommended.TechnicianID != idle.ID {
		t.Fatalf("recommended = %v, want idle technician", resp.Recommended.TechnicianID)
	}
	if resp.Recommended.WorkloadScore != 1.0 {
		t.Fatalf("idle workloadScore = %v, want 1.0", resp.Recommended.WorkloadScore)
	}
	if resp.Alternatives[0].WorkloadScore != 0.0 {
		t.Fatalf("busy workloadScore = %v, want 0.0", resp.Alternatives[0].WorkloadScore)
	}
}

func TestRecommendScoresStayInRange(t *testing.T) {
	a := newTechnician("alpha")
	b := newTechnician("bravo")
	c := newTechnician("charlie")
	lat, lon := 48.85, 2.35
	svc := newTestService(
		&fakeLister{technicians: []Technician{a, b, c}},
		&fakeLoads{counts: map[uuid.UUID]int64{a.ID: 5, b.ID: 1}},
		&fakeHistory{
			coords: map[uuid.UUID][2]float64{
				a.ID: {48.86, 2.35},
				b.ID: {45.76, 4.83},
			},
			history: map[uuid.UUID][]HistoryItem{
				a.ID: {{Title: "Replace boiler valve"}},
			},
		},
	)

	resp, err := svc.RecommendTechnician(context.Background(), transport.RecommendRequest{
		Title:     "Boiler maintenance",
		Latitude:  &lat,
		Longitude: &lon,
	})
	if err != nil {
		t.Fatalf("RecommendTechnician() error = %v", err)
	}

	all := append([]transport.CandidateResponse{resp.Recommended}, resp.Alternatives...)
	if len(all) != 3 {
		t.Fatalf("candidates = %d, want 3", len(all))
	}
	for _, candidate := range all {
		for name, score := range map[string]float64{
			"overall":  candidate.OverallScore,
			"workload": candidate.WorkloadScore,
			"distance": candidate.DistanceScore,
			"skill":    candidate.SkillScore,
		} {
			if score < 0 || score > 1 {
				t.Fatalf("%s score %v out of [0,1] for %s", name, score, candidate.FullName)
			}
		}
	}
}

func TestRecommendDefaultDistanceWithoutCoordinates(t *testing.T) {
	tech := newTechnician("solo")
	lat, lon := 48.85, 2.35
	svc := newTestService(
		&fakeLister{technicians: []Technician{tech}},
		&fakeLoads{},
		&fakeHistory{},
	)

	resp, err := svc.RecommendTechnician(context.Background(), transport.RecommendRequest{
		Title:     "Inspection",
		Latitude:  &lat,
		Longitude: &lon,
	})
	if err != nil {
		t.Fatalf("RecommendTechnician() error = %v", err)
	}

	// Technician has no geo history, so the neutral default applies.
	if resp.Recommended.DistanceScore != 0.5 {
		t.Fatalf("distanceScore = %v, want 0.5", resp.Recommended.DistanceScore)
	}
	if resp.Recommended.DistanceKm != nil {
		t.Fatalf("distanceKm = %v, want nil", *resp.Recommended.DistanceKm)
	}
}

func TestRecommendSingleTechnician(t *testing.T) {
	tech := newTechnician("solo")
	svc := newTestService(
		&fakeLister{technicians: []Technician{tech}},
		&fakeLoads{counts: map[uuid.UUID]int64{tech.ID: 3}},
		&fakeHistory{},
	)

	resp, err := svc.RecommendTechnician(context.Background(), transport.RecommendRequest{Title: "Maintenance check"})
	if err != nil {
		t.Fatalf("RecommendTechnician() error = %v", err)
	}
	if resp.Recommended.TechnicianID != tech.ID {
		t.Fatalf("recommended = %v, want %v", resp.Recommended.TechnicianID, tech.ID)
	}
	if len(resp.Alternatives) != 0 {
		t.Fatalf("alternatives = %d, want 0", len(resp.Alternatives))
	}
	// Sole candidate holds the maximum open count, so workload bottoms out.
	if resp.Recommended.WorkloadScore != 0.0 {
		t.Fatalf("workloadScore = %v, want 0.0", resp.Recommended.WorkloadScore)
	}
	if resp.Rationale == "" {
		t.Fatal("rationale should not be empty")
	}
}

func TestRecommendAlternativesCapped(t *testing.T) {
	technicians := make([]Technician, 6)
	for i := range technicians {
		technicians[i] = newTechnician("tech" + string(rune('a'+i)))
	}
	svc := newTestService(&fakeLister{technicians: technicians}, &fakeLoads{}, &fakeHistory{})

	resp, err := svc.RecommendTechnician(context.Background(), transport.RecommendRequest{Title: "zz"})
	if err != nil {
		t.Fatalf("RecommendTechnician() error = %v", err)
	}
	if len(resp.Alternatives) != 3 {
		t.Fatalf("alternatives = %d, want 3", len(resp.Alternatives))
	}
}

func TestExtractTokens(t *testing.T) {
	description := "Réparer la chaudière dans les combles, avec contrôle gaz"
	tokens := ExtractTokens("Fuite d'eau URGENTE", &description)

	for _, token := range tokens {
		if len(token) < 3 {
			t.Fatalf("short token %q should be dropped", token)
		}
		if _, stopped := stopWords[token]; stopped {
			t.Fatalf("stop word %q should be dropped", token)
		}
	}

	want := map[string]bool{"fuite": true, "urgente": true, "gaz": true}
	found := 0
	for _, token := range tokens {
		if want[token] {
			found++
		}
	}
	if found != len(want) {
		t.Fatalf("tokens = %v, missing expected tokens", tokens)
	}
}

func TestExtractTokensEmpty(t *testing.T) {
	if tokens := ExtractTokens("a b à", nil); len(tokens) != 0 {
		t.Fatalf("tokens = %v, want empty", tokens)
	}
}

func TestHaversine(t *testing.T) {
	// Paris to Lyon is roughly 392 km.
	distance := Haversine(48.8566, 2.3522, 45.7640, 4.8357)
	if math.Abs(distance-392) > 5 {
		t.Fatalf("Paris-Lyon distance = %v, want ~392", distance)
	}

	if d := Haversine(48.85, 2.35, 48.85, 2.35); d != 0 {
		t.Fatalf("zero distance = %v, want 0", d)
	}
}
