package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"fieldops_backend/platform/logger"
)

type fakeStore struct {
	calls       int
	from, to    time.Time
	refreshedAt time.Time
	err         error
}

func (f *fakeStore) ReplaceRollups(_ context.Context, from, to time.Time, refreshedAt time.Time) error {
	f.calls++
	f.from = from
	f.to = to
	f.refreshedAt = refreshedAt
	return f.err
}

type fakeEvictor struct {
	calls int
	err   error
}

func (f *fakeEvictor) EvictDashboard(context.Context) error {
	f.calls++
	return f.err
}

type fakeAnalyticsConfig struct {
	days int
}

func (f fakeAnalyticsConfig) GetAnalyticsHistoryDays() int              { return f.days }
func (f fakeAnalyticsConfig) GetAnalyticsRefreshInterval() time.Duration { return time.Minute }

func newTestService(store *fakeStore, evictor *fakeEvictor, days int) *Service {
	return New(store, evictor, fakeAnalyticsConfig{days: days}, logger.New("test"), nil)
}

func TestRefreshWindowSpansHistoryDays(t *testing.T) {
	store := &fakeStore{}
	evictor := &fakeEvictor{}
	svc := newTestService(store, evictor, 14)

	fixed := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	wantTo := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	wantFrom := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	if !store.to.Equal(wantTo) {
		t.Fatalf("to = %v, want %v", store.to, wantTo)
	}
	if !store.from.Equal(wantFrom) {
		t.Fatalf("from = %v, want %v", store.from, wantFrom)
	}
	if !store.refreshedAt.Equal(fixed) {
		t.Fatalf("refreshedAt = %v, want %v", store.refreshedAt, fixed)
	}
	if evictor.calls != 1 {
		t.Fatalf("evictor calls = %d, want 1", evictor.calls)
	}
}

func TestRefreshHistoryDaysFloor(t *testing.T) {
	store := &fakeStore{}
	svc := newTestService(store, &fakeEvictor{}, 0)

	fixed := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if !store.from.Equal(store.to) {
		t.Fatalf("single-day window expected, got from=%v to=%v", store.from, store.to)
	}
}

func TestRefreshFailureSkipsEviction(t *testing.T) {
	store := &fakeStore{err: errors.New("rollup failed")}
	evictor := &fakeEvictor{}
	svc := newTestService(store, evictor, 7)

	err := svc.Refresh(context.Background())
	if err == nil {
		t.Fatal("Refresh() expected error")
	}
	if evictor.calls != 0 {
		t.Fatalf("evictor calls = %d, want 0 after failed refresh", evictor.calls)
	}
}

func TestRefreshEvictionFailureIsNonFatal(t *testing.T) {
	store := &fakeStore{}
	evictor := &fakeEvictor{err: errors.New("redis down")}
	svc := newTestService(store, evictor, 7)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v, eviction failure should not propagate", err)
	}
}
