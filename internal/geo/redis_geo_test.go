package geo

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/example/food-rescue/internal/models"
)

func newRedisIndexes(t *testing.T) (*RedisCarrierIndex, *RedisSiteIndex) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return NewRedisCarrierIndex(rc, "carriers_geo"), NewRedisSiteIndex(rc, "sites_geo")
}

// A dense cluster of busy carriers near the pickup must not hide an
// available one further out: the first capped page comes back all
// unavailable, and the full-radius follow-up has to find the free one.
func TestRedisCarrierNearbyScansPastBusyCluster(t *testing.T) {
	carriers, _ := newRedisIndexes(t)
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		busy := models.Carrier{
			ID:        fmt.Sprintf("busy-%d", i),
			Name:      "busy",
			Loc:       models.Coord{Lat: 12.97, Lon: 77.59 + 0.0001*float64(i)},
			Available: false,
		}
		if err := carriers.Upsert(ctx, busy); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	free := models.Carrier{ID: "free", Name: "asha", Loc: models.Coord{Lat: 12.97, Lon: 77.60}, Available: true}
	if err := carriers.Upsert(ctx, free); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	// limit 2 caps the first page at 6 entries, all of them busy
	got, err := carriers.Nearby(ctx, 12.97, 77.59, 20000, 2)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != "free" {
		t.Fatalf("expected the available carrier past the cap, got %+v", got)
	}
}

func TestRedisClaimIsExclusive(t *testing.T) {
	carriers, _ := newRedisIndexes(t)
	ctx := context.Background()

	c := models.Carrier{ID: "c1", Name: "ravi", Loc: models.Coord{Lat: 12.97, Lon: 77.59}, Available: true}
	if err := carriers.Upsert(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if ok, err := carriers.Claim(ctx, "c1"); err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if ok, err := carriers.Claim(ctx, "c1"); err != nil || ok {
		t.Fatalf("second claim should lose: ok=%v err=%v", ok, err)
	}
	if err := carriers.Release(ctx, "c1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, err := carriers.Claim(ctx, "c1"); err != nil || !ok {
		t.Fatalf("claim after release: ok=%v err=%v", ok, err)
	}
}

func TestRedisSiteNearbyFiltersZeroCapacity(t *testing.T) {
	_, sites := newRedisIndexes(t)
	ctx := context.Background()

	full := models.Site{ID: "s-full", Name: "full", Loc: models.Coord{Lat: 12.97, Lon: 77.59}, Capacity: 0}
	open := models.Site{ID: "s-open", Name: "open", Loc: models.Coord{Lat: 12.97, Lon: 77.595}, Capacity: 40}
	for _, s := range []models.Site{full, open} {
		if err := sites.Upsert(ctx, s); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := sites.Nearby(ctx, 12.97, 77.59, 20000, 5)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 1 || got[0].ID != "s-open" {
		t.Fatalf("expected only the open site, got %+v", got)
	}
}
