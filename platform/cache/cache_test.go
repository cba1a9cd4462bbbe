package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	c := NewWithClient(client, time.Minute)
	t.Cleanup(func() { _ = c.Close() })
	return c, srv
}

type summaryPayload struct {
	Total int64  `json:"total"`
	Scope string `json:"scope"`
}

func TestGetJSONMissingKey(t *testing.T) {
	c, _ := newTestCache(t)

	var dest summaryPayload
	hit, err := c.GetJSON(context.Background(), RegionSummary, "fleet", &dest)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if hit {
		t.Fatal("hit = true for absent key, want miss")
	}
}

func TestSetAndGetJSON(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	stored := summaryPayload{Total: 42, Scope: "fleet"}
	if err := c.SetJSON(ctx, RegionSummary, "fleet:2025-06-15", stored); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	var loaded summaryPayload
	hit, err := c.GetJSON(ctx, RegionSummary, "fleet:2025-06-15", &loaded)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if !hit {
		t.Fatal("hit = false, want hit")
	}
	if loaded != stored {
		t.Fatalf("loaded = %+v, want %+v", loaded, stored)
	}
}

func TestGetJSONDecodeFailureIsMiss(t *testing.T) {
	c, srv := newTestCache(t)

	srv.Set(RegionTrends+":fleet", "not json")

	var dest summaryPayload
	hit, err := c.GetJSON(context.Background(), RegionTrends, "fleet", &dest)
	if err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if hit {
		t.Fatal("corrupt entry should read as a miss")
	}
}

func TestEvictDashboardClearsAllRegions(t *testing.T) {
	c, srv := newTestCache(t)
	ctx := context.Background()

	for _, region := range Regions {
		if err := c.SetJSON(ctx, region, "fleet", summaryPayload{Total: 1}); err != nil {
			t.Fatalf("SetJSON(%s) error = %v", region, err)
		}
	}
	srv.Set("sessions:abc", "keep me")

	if err := c.EvictDashboard(ctx); err != nil {
		t.Fatalf("EvictDashboard() error = %v", err)
	}

	for _, region := range Regions {
		var dest summaryPayload
		hit, err := c.GetJSON(ctx, region, "fleet", &dest)
		if err != nil {
			t.Fatalf("GetJSON(%s) error = %v", region, err)
		}
		if hit {
			t.Fatalf("region %s still has entries after eviction", region)
		}
	}
	if !srv.Exists("sessions:abc") {
		t.Fatal("eviction should not touch keys outside dashboard regions")
	}
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *Cache
	ctx := context.Background()

	if err := c.SetJSON(ctx, RegionSummary, "fleet", summaryPayload{}); err != nil {
		t.Fatalf("SetJSON() on nil cache error = %v", err)
	}
	hit, err := c.GetJSON(ctx, RegionSummary, "fleet", &summaryPayload{})
	if err != nil || hit {
		t.Fatalf("GetJSON() on nil cache = (%v, %v), want miss without error", hit, err)
	}
	if err := c.EvictDashboard(ctx); err != nil {
		t.Fatalf("EvictDashboard() on nil cache error = %v", err)
	}
}
