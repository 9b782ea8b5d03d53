package matcher

import (
	"context"

	"github.com/example/food-rescue/internal/models"
)

// findCarriers runs stage one of the candidate search: available
// carriers around the pickup point, distance ascending. An empty slice
// is a valid outcome, not an error.
func (s *Service) findCarriers(ctx context.Context, at models.Coord) ([]models.Carrier, error) {
	limit := s.CarrierLimit
	if limit <= 0 {
		limit = DefaultCarrierLimit
	}
	return s.Carriers.Nearby(ctx, at.Lat, at.Lon, s.radius(), limit)
}

// findSites runs stage two around a carrier's position: sites with
// remaining capacity, distance ascending.
func (s *Service) findSites(ctx context.Context, at models.Coord) ([]models.Site, error) {
	limit := s.SiteLimit
	if limit <= 0 {
		limit = DefaultSiteLimit
	}
	return s.Sites.Nearby(ctx, at.Lat, at.Lon, s.radius(), limit)
}
