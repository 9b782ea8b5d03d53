package matcher

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/food-rescue/internal/dispatch"
	"github.com/example/food-rescue/internal/geo"
	"github.com/example/food-rescue/internal/models"
	"github.com/example/food-rescue/internal/observability"
	"github.com/example/food-rescue/internal/storage"
)

// Defaults for the two-stage candidate search.
const (
	DefaultSearchRadiusMeters = 20000.0
	DefaultCarrierLimit       = 10
	DefaultSiteLimit          = 5
)

// Service is the matching engine: it searches nearby carriers and
// reachable sites, picks the minimum-total-time feasible pair, and
// commits the assignment.
type Service struct {
	Carriers geo.CarrierIndex
	Sites    geo.SiteIndex
	Store    storage.DonationStore
	Dispatch dispatch.Dispatcher
	Logger   *slog.Logger

	SearchRadiusMeters float64
	CarrierLimit       int
	SiteLimit          int
}

// Match validates the intake payload, persists the donation as pending,
// and runs search -> select -> commit. An empty candidate set or an
// all-infeasible one yields an unassigned result, not an error.
func (s *Service) Match(ctx context.Context, in models.DonationInput) (models.MatchResult, error) {
	if err := in.Validate(); err != nil {
		return models.MatchResult{}, err
	}
	start := time.Now()
	defer func() { observability.MatchLatency.Observe(time.Since(start).Seconds()) }()

	d := newDonation(in)
	if err := s.Store.SaveDonation(ctx, d); err != nil {
		return models.MatchResult{}, &PersistenceError{Op: "save donation", DonationID: d.ID, Err: err}
	}

	carriers, err := s.findCarriers(ctx, d.Loc)
	if err != nil {
		return models.MatchResult{}, fmt.Errorf("carrier search: %w", err)
	}

	// A lost claim means another donation took the carrier between our
	// read and the conditional write; drop it and re-select.
	for len(carriers) > 0 {
		best, err := s.selectBest(ctx, carriers)
		if err != nil {
			return models.MatchResult{}, fmt.Errorf("site search: %w", err)
		}
		if best == nil {
			break
		}
		claimed, err := s.Carriers.Claim(ctx, best.carrier.ID)
		if err != nil {
			return models.MatchResult{}, &PersistenceError{Op: "claim carrier", DonationID: d.ID, CarrierID: best.carrier.ID, Err: err}
		}
		if !claimed {
			observability.ClaimConflicts.Inc()
			carriers = dropCarrier(carriers, best.carrier.ID)
			continue
		}
		return s.commit(ctx, d, best)
	}

	observability.UnassignedTotal.Inc()
	return models.MatchResult{Status: models.MatchUnassigned, DonationID: d.ID}, nil
}

func newDonation(in models.DonationInput) *models.Donation {
	now := time.Now()
	return &models.Donation{
		ID:            newID(),
		DonorID:       in.DonorID,
		DonorName:     in.DonorName,
		DonorPhone:    in.DonorPhone,
		FoodDesc:      in.FoodDesc,
		Quantity:      in.Quantity,
		Kind:          in.Kind,
		PickupAddress: in.PickupAddress,
		Loc:           in.PickupPoint,
		PreferredAt:   in.PreferredAt,
		ExpiresAt:     in.ExpiresAt,
		Images:        in.Images,
		Status:        models.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func dropCarrier(carriers []models.Carrier, id string) []models.Carrier {
	out := carriers[:0]
	for _, c := range carriers {
		if c.ID != id {
			out = append(out, c)
		}
	}
	return out
}

func (s *Service) radius() float64 {
	if s.SearchRadiusMeters > 0 {
		return s.SearchRadiusMeters
	}
	return DefaultSearchRadiusMeters
}

func (s *Service) logger() *slog.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
