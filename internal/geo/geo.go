package geo

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/example/food-rescue/internal/models"
)

// CarrierIndex is the spatial store of volunteer carriers used by the
// matching engine. Nearby results come back distance-ascending with
// DistanceMeters set, restricted to available carriers.
type CarrierIndex interface {
	Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]models.Carrier, error)
	Upsert(ctx context.Context, c models.Carrier) error
	// Claim flips available true->false atomically and reports
	// whether this caller won; a false result means another match
	// took the carrier first.
	Claim(ctx context.Context, id string) (bool, error)
	// Release flips the carrier back to available after a delivery
	// completes (or as commit compensation).
	Release(ctx context.Context, id string) error
}

// SiteIndex is the spatial store of receiving sites. Nearby results are
// distance-ascending and restricted to sites with remaining capacity.
type SiteIndex interface {
	Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]models.Site, error)
	Upsert(ctx context.Context, s models.Site) error
}

// CarrierMemIndex is a mutex-guarded in-memory CarrierIndex for local
// runs and tests.
type CarrierMemIndex struct {
	mu       sync.RWMutex
	carriers map[string]models.Carrier
}

func NewCarrierMemIndex() *CarrierMemIndex {
	return &CarrierMemIndex{carriers: make(map[string]models.Carrier)}
}

func (g *CarrierMemIndex) Upsert(ctx context.Context, c models.Carrier) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	c.Updated = time.Now()
	g.carriers[c.ID] = c
	return nil
}

// naive scan; in prod the redis GEO index takes over
func (g *CarrierMemIndex) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]models.Carrier, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	arr := make([]models.Carrier, 0, len(g.carriers))
	for _, c := range g.carriers {
		if !c.Available {
			continue
		}
		d := Haversine(lat, lon, c.Loc.Lat, c.Loc.Lon)
		if d > radiusMeters {
			continue
		}
		c.DistanceMeters = d
		arr = append(arr, c)
	}
	sortByDistance(arr, func(c models.Carrier) float64 { return c.DistanceMeters })
	if len(arr) > limit {
		arr = arr[:limit]
	}
	return arr, nil
}

func (g *CarrierMemIndex) Claim(ctx context.Context, id string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.carriers[id]
	if !ok || !c.Available {
		return false, nil
	}
	c.Available = false
	g.carriers[id] = c
	return true, nil
}

func (g *CarrierMemIndex) Release(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.carriers[id]; ok {
		c.Available = true
		g.carriers[id] = c
	}
	return nil
}

// SiteMemIndex is the in-memory SiteIndex counterpart.
type SiteMemIndex struct {
	mu    sync.RWMutex
	sites map[string]models.Site
}

func NewSiteMemIndex() *SiteMemIndex {
	return &SiteMemIndex{sites: make(map[string]models.Site)}
}

func (g *SiteMemIndex) Upsert(ctx context.Context, s models.Site) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sites[s.ID] = s
	return nil
}

func (g *SiteMemIndex) Nearby(ctx context.Context, lat, lon, radiusMeters float64, limit int) ([]models.Site, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	arr := make([]models.Site, 0, len(g.sites))
	for _, s := range g.sites {
		if s.Capacity <= 0 {
			continue
		}
		d := Haversine(lat, lon, s.Loc.Lat, s.Loc.Lon)
		if d > radiusMeters {
			continue
		}
		s.DistanceMeters = d
		arr = append(arr, s)
	}
	sortByDistance(arr, func(s models.Site) float64 { return s.DistanceMeters })
	if len(arr) > limit {
		arr = arr[:limit]
	}
	return arr, nil
}

// sortByDistance is an insertion sort, fine for the small candidate
// sets this service works with.
func sortByDistance[T any](items []T, dist func(T) float64) {
	for i := 1; i < len(items); i++ {
		key := items[i]
		j := i - 1
		for j >= 0 && dist(items[j]) > dist(key) {
			items[j+1] = items[j]
			j--
		}
		items[j+1] = key
	}
}

// Haversine distance in meters
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	const R = 6371000.0
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return R * c
}
