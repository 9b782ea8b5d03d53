package matcher

import (
	"context"

	"github.com/example/food-rescue/internal/eta"
	"github.com/example/food-rescue/internal/models"
)

type candidate struct {
	carrier models.Carrier
	site    models.Site
	total   float64 // minutes, pickup + delivery
}

// selectBest scans every carrier/site pair and keeps the feasible one
// with the smallest total time. The scan is exhaustive over the bounded
// set: a farther carrier next to a very close site can still beat a
// nearer carrier whose sites are all far. Strict less-than keeps the
// first pair encountered when totals tie, and both loops iterate
// distance-ascending. Returns nil when no pair fits the budget.
func (s *Service) selectBest(ctx context.Context, carriers []models.Carrier) (*candidate, error) {
	var best *candidate
	for _, c := range carriers {
		pickup := eta.PickupMinutes(c.DistanceMeters)
		if pickup >= eta.MaxTotalMinutes {
			// no site can bring this carrier back under budget
			continue
		}
		sites, err := s.findSites(ctx, c.Loc)
		if err != nil {
			return nil, err
		}
		for _, site := range sites {
			total := pickup + eta.DeliveryMinutes(site.DistanceMeters)
			if total > eta.MaxTotalMinutes {
				continue
			}
			if best == nil || total < best.total {
				best = &candidate{carrier: c, site: site, total: total}
			}
		}
	}
	return best, nil
}
