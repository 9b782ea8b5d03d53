package geo

import (
	"context"
	"sync"
	"testing"

	"github.com/example/food-rescue/internal/models"
)

func TestHaversineZero(t *testing.T) {
	d := Haversine(0, 0, 0, 0)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// one degree of latitude is ~111.19 km
	d := Haversine(0, 0, 1, 0)
	if d < 111000 || d > 111500 {
		t.Fatalf("expected ~111.2km, got %f", d)
	}
}

func TestCarrierNearbyFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	idx := NewCarrierMemIndex()
	_ = idx.Upsert(ctx, models.Carrier{ID: "far", Loc: models.Coord{Lat: 0.02, Lon: 0}, Available: true})
	_ = idx.Upsert(ctx, models.Carrier{ID: "near", Loc: models.Coord{Lat: 0.005, Lon: 0}, Available: true})
	_ = idx.Upsert(ctx, models.Carrier{ID: "busy", Loc: models.Coord{Lat: 0.001, Lon: 0}, Available: false})
	_ = idx.Upsert(ctx, models.Carrier{ID: "away", Loc: models.Coord{Lat: 1, Lon: 1}, Available: true})

	got, err := idx.Nearby(ctx, 0, 0, 20000, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 carriers, got %d", len(got))
	}
	if got[0].ID != "near" || got[1].ID != "far" {
		t.Fatalf("wrong order: %s, %s", got[0].ID, got[1].ID)
	}
	if got[0].DistanceMeters <= 0 || got[0].DistanceMeters >= got[1].DistanceMeters {
		t.Fatalf("distances not ascending: %f, %f", got[0].DistanceMeters, got[1].DistanceMeters)
	}
}

func TestSiteNearbySkipsZeroCapacity(t *testing.T) {
	ctx := context.Background()
	idx := NewSiteMemIndex()
	_ = idx.Upsert(ctx, models.Site{ID: "full", Loc: models.Coord{Lat: 0.001, Lon: 0}, Capacity: 0})
	_ = idx.Upsert(ctx, models.Site{ID: "open", Loc: models.Coord{Lat: 0.01, Lon: 0}, Capacity: 4})

	got, err := idx.Nearby(ctx, 0, 0, 20000, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "open" {
		t.Fatalf("expected only the open site, got %v", got)
	}
}

func TestClaimIsExclusive(t *testing.T) {
	ctx := context.Background()
	idx := NewCarrierMemIndex()
	_ = idx.Upsert(ctx, models.Carrier{ID: "c1", Available: true})

	const n = 32
	var wg sync.WaitGroup
	wins := make(chan bool, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := idx.Claim(ctx, "c1")
			if err != nil {
				t.Error(err)
			}
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	won := 0
	for ok := range wins {
		if ok {
			won++
		}
	}
	if won != 1 {
		t.Fatalf("expected exactly one winner, got %d", won)
	}

	if err := idx.Release(ctx, "c1"); err != nil {
		t.Fatal(err)
	}
	ok, _ := idx.Claim(ctx, "c1")
	if !ok {
		t.Fatal("claim should succeed again after release")
	}
}
