package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"

	"fieldops_backend/internal/events"
	"fieldops_backend/internal/interventions/domain"
	"fieldops_backend/internal/interventions/repository"
	"fieldops_backend/internal/interventions/transport"
	"fieldops_backend/platform/apperr"
	"fieldops_backend/platform/logger"
)

type fakeRepo struct {
	byID       map[uuid.UUID]repository.Intervention
	openCounts map[uuid.UUID]int64
	references map[string]bool

	created      *repository.CreateParams
	statusParams *repository.StatusParams
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		byID:       make(map[uuid.UUID]repository.Intervention),
		openCounts: make(map[uuid.UUID]int64),
		references: make(map[string]bool),
	}
}

func (f *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Intervention, error) {
	iv, ok := f.byID[id]
	if !ok {
		return repository.Intervention{}, apperr.NotFound("intervention not found")
	}
	return iv, nil
}

func (f *fakeRepo) List(context.Context, repository.Filter) ([]repository.Intervention, int, error) {
	return nil, 0, nil
}

func (f *fakeRepo) ExistsByReference(_ context.Context, reference string) (bool, error) {
	return f.references[reference], nil
}

func (f *fakeRepo) CountOpenByTechnician(_ context.Context, technicianID uuid.UUID) (int64, error) {
	return f.openCounts[technicianID], nil
}

func (f *fakeRepo) LatestCoordinate(context.Context, uuid.UUID) (*repository.Coordinate, error) {
	return nil, nil
}

func (f *fakeRepo) RecentHistory(context.Context, uuid.UUID, []domain.Status, int) ([]repository.HistoryItem, error) {
	return nil, nil
}

func (f *fakeRepo) Create(_ context.Context, params repository.CreateParams) (repository.Intervention, error) {
	f.created = &params
	return repository.Intervention{
		ID:             uuid.New(),
		Reference:      params.Reference,
		Title:          params.Title,
		Description:    params.Description,
		Status:         params.Status,
		AssignmentMode: params.AssignmentMode,
		TechnicianID:   params.TechnicianID,
		PlannedAt:      params.PlannedAt,
		Latitude:       params.Latitude,
		Longitude:      params.Longitude,
	}, nil
}

func (f *fakeRepo) Update(_ context.Context, params repository.UpdateParams) (repository.Intervention, error) {
	iv := f.byID[params.ID]
	iv.Title = params.Title
	iv.TechnicianID = params.TechnicianID
	iv.AssignmentMode = params.AssignmentMode
	return iv, nil
}

func (f *fakeRepo) UpdateStatus(_ context.Context, params repository.StatusParams) (repository.Intervention, error) {
	f.statusParams = &params
	iv := f.byID[params.ID]
	iv.Status = params.Status
	if params.StartedAt != nil {
		iv.StartedAt = params.StartedAt
	}
	if params.CompletedAt != nil {
		iv.CompletedAt = params.CompletedAt
	}
	if params.ValidatedAt != nil {
		iv.ValidatedAt = params.ValidatedAt
	}
	f.byID[params.ID] = iv
	return iv, nil
}

type fakeDirectory struct {
	technicians []Technician
}

func (f *fakeDirectory) GetTechnician(_ context.Context, id uuid.UUID) (Technician, error) {
	for _, t := range f.technicians {
		if t.ID == id {
			return t, nil
		}
	}
	return Technician{}, apperr.NotFound("technician not found")
}

func (f *fakeDirectory) ListTechnicians(context.Context) ([]Technician, error) {
	return f.technicians, nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	var names []string
	for _, e := range b.published {
		names = append(names, e.EventName())
	}
	return names
}

func newTestService(repo *fakeRepo, directory *fakeDirectory, bus *recordingBus) *Service {
	return New(repo, directory, bus, logger.New("test"))
}

func technician(name string) Technician {
	return Technician{ID: uuid.New(), FullName: name, Email: name + "@example.com"}
}

func TestCreateDuplicateReferenceIsConflict(t *testing.T) {
	repo := newFakeRepo()
	repo.references["INT-001"] = true
	svc := newTestService(repo, &fakeDirectory{}, &recordingBus{})

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateInterventionRequest{
		Reference:      " INT-001 ",
		Title:          "Boiler check",
		PlannedAt:      time.Now(),
		AssignmentMode: "MANUAL",
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestCreateAutoAssignsLeastLoaded(t *testing.T) {
	older := technician("older")
	newer := technician("newer")
	repo := newFakeRepo()
	repo.openCounts[older.ID] = 3
	repo.openCounts[newer.ID] = 1
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeDirectory{technicians: []Technician{older, newer}}, bus)

	resp, err := svc.Create(context.Background(), uuid.New(), transport.CreateInterventionRequest{
		Reference:      "INT-010",
		Title:          "Install meter",
		PlannedAt:      time.Now(),
		AssignmentMode: "AUTO",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if resp.TechnicianID == nil || *resp.TechnicianID != newer.ID {
		t.Fatalf("assigned = %v, want least-loaded technician %v", resp.TechnicianID, newer.ID)
	}

	names := bus.names()
	if len(names) != 2 || names[0] != "interventions.created" || names[1] != "interventions.assigned" {
		t.Fatalf("published = %v, want created then assigned", names)
	}
}

func TestCreateAutoTieBreaksByCreationOrder(t *testing.T) {
	first := technician("first")
	second := technician("second")
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeDirectory{technicians: []Technician{first, second}}, &recordingBus{})

	resp, err := svc.Create(context.Background(), uuid.New(), transport.CreateInterventionRequest{
		Reference:      "INT-011",
		Title:          "Inspection",
		PlannedAt:      time.Now(),
		AssignmentMode: "AUTO",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if resp.TechnicianID == nil || *resp.TechnicianID != first.ID {
		t.Fatalf("assigned = %v, want oldest technician %v on tie", resp.TechnicianID, first.ID)
	}
}

func TestCreateAutoWithoutTechniciansIsConflict(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeDirectory{}, &recordingBus{})

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateInterventionRequest{
		Reference:      "INT-012",
		Title:          "Inspection",
		PlannedAt:      time.Now(),
		AssignmentMode: "AUTO",
	})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("kind = %v, want conflict", apperr.GetKind(err))
	}
}

func TestCreateManualUnknownTechnicianIsNotFound(t *testing.T) {
	unknown := uuid.New()
	svc := newTestService(newFakeRepo(), &fakeDirectory{}, &recordingBus{})

	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateInterventionRequest{
		Reference:      "INT-013",
		Title:          "Inspection",
		PlannedAt:      time.Now(),
		AssignmentMode: "MANUAL",
		TechnicianID:   &unknown,
	})
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("kind = %v, want not found", apperr.GetKind(err))
	}
}

func TestCreateNormalizesCoordinatesAndDescription(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeDirectory{}, &recordingBus{})

	nan := math.NaN()
	blank := "   "
	_, err := svc.Create(context.Background(), uuid.New(), transport.CreateInterventionRequest{
		Reference:      "INT-014",
		Title:          "Inspection",
		Description:    &blank,
		PlannedAt:      time.Now(),
		AssignmentMode: "MANUAL",
		Latitude:       &nan,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if repo.created.Latitude != nil {
		t.Fatalf("latitude = %v, want nil for NaN input", *repo.created.Latitude)
	}
	if repo.created.Description != nil {
		t.Fatalf("description = %q, want nil for blank input", *repo.created.Description)
	}
}

func seedIntervention(repo *fakeRepo, status domain.Status, technicianID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	repo.byID[id] = repository.Intervention{
		ID:           id,
		Reference:    "INT-S",
		Title:        "Seeded",
		Status:       status,
		TechnicianID: technicianID,
		PlannedAt:    time.Now(),
	}
	return id
}

func TestUpdateStatusForwardChain(t *testing.T) {
	techID := uuid.New()
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusScheduled, &techID)
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeDirectory{}, bus)

	for _, next := range []string{"IN_PROGRESS", "COMPLETED", "VALIDATED"} {
		resp, err := svc.UpdateStatus(context.Background(), uuid.New(), id,
			transport.UpdateStatusRequest{Status: next}, nil)
		if err != nil {
			t.Fatalf("UpdateStatus(%s) error = %v", next, err)
		}
		if resp.Status != next {
			t.Fatalf("status = %s, want %s", resp.Status, next)
		}
	}

	final := repo.byID[id]
	if final.StartedAt == nil || final.CompletedAt == nil || final.ValidatedAt == nil {
		t.Fatal("all stage timestamps should be set after full chain")
	}
	if len(bus.published) != 3 {
		t.Fatalf("published = %d events, want 3", len(bus.published))
	}
}

func TestUpdateStatusSkippingStageIsRejected(t *testing.T) {
	techID := uuid.New()
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusScheduled, &techID)
	svc := newTestService(repo, &fakeDirectory{}, &recordingBus{})

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), id,
		transport.UpdateStatusRequest{Status: "COMPLETED"}, nil)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestUpdateStatusBackwardIsRejected(t *testing.T) {
	techID := uuid.New()
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusValidated, &techID)
	svc := newTestService(repo, &fakeDirectory{}, &recordingBus{})

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), id,
		transport.UpdateStatusRequest{Status: "COMPLETED"}, nil)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestUpdateStatusSameStatusIsNoOp(t *testing.T) {
	techID := uuid.New()
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusInProgress, &techID)
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeDirectory{}, bus)

	resp, err := svc.UpdateStatus(context.Background(), uuid.New(), id,
		transport.UpdateStatusRequest{Status: "IN_PROGRESS"}, nil)
	if err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if resp.Status != "IN_PROGRESS" {
		t.Fatalf("status = %s, want IN_PROGRESS", resp.Status)
	}
	if repo.statusParams != nil {
		t.Fatal("no-op transition should not hit the repository")
	}
	if len(bus.published) != 0 {
		t.Fatalf("published = %d events, want 0", len(bus.published))
	}
}

func TestUpdateStatusStartRequiresTechnician(t *testing.T) {
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusScheduled, nil)
	svc := newTestService(repo, &fakeDirectory{}, &recordingBus{})

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), id,
		transport.UpdateStatusRequest{Status: "IN_PROGRESS"}, nil)
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Fatalf("kind = %v, want validation", apperr.GetKind(err))
	}
}

func TestUpdateStatusScopedToOwnJobs(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusScheduled, &owner)
	svc := newTestService(repo, &fakeDirectory{}, &recordingBus{})

	_, err := svc.UpdateStatus(context.Background(), other, id,
		transport.UpdateStatusRequest{Status: "IN_PROGRESS"}, &other)
	if apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("kind = %v, want forbidden", apperr.GetKind(err))
	}
}

func TestGetByIDScopedToOwnJobs(t *testing.T) {
	owner := uuid.New()
	other := uuid.New()
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusScheduled, &owner)
	svc := newTestService(repo, &fakeDirectory{}, &recordingBus{})

	if _, err := svc.GetByID(context.Background(), id, &owner); err != nil {
		t.Fatalf("owner read error = %v", err)
	}
	if _, err := svc.GetByID(context.Background(), id, &other); apperr.GetKind(err) != apperr.KindForbidden {
		t.Fatalf("kind = %v, want forbidden", apperr.GetKind(err))
	}
}

func TestUpdateReassignmentPublishesAssigned(t *testing.T) {
	before := technician("before")
	after := technician("after")
	repo := newFakeRepo()
	id := seedIntervention(repo, domain.StatusScheduled, &before.ID)
	bus := &recordingBus{}
	svc := newTestService(repo, &fakeDirectory{technicians: []Technician{before, after}}, bus)

	_, err := svc.Update(context.Background(), uuid.New(), id, transport.UpdateInterventionRequest{
		Title:          "Reassigned job",
		PlannedAt:      time.Now(),
		AssignmentMode: "MANUAL",
		TechnicianID:   &after.ID,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	names := bus.names()
	if len(names) != 1 || names[0] != "interventions.assigned" {
		t.Fatalf("published = %v, want assigned event", names)
	}
}
