package matcher

import (
	"context"
	"fmt"
	"time"

	"github.com/example/food-rescue/internal/models"
	"github.com/example/food-rescue/internal/observability"
)

// commit finishes a match for an already-claimed carrier: donation to
// accepted with both references set, assignment log with acceptedAt,
// then a best-effort carrier notification. On a failed write the claim
// and any earlier writes are compensated so the donation stays pending
// and the carrier stays bookable.
func (s *Service) commit(ctx context.Context, d *models.Donation, best *candidate) (models.MatchResult, error) {
	d.AssignedCarrier = best.carrier.ID
	d.DeliveredTo = best.site.ID
	d.Status = models.StatusAccepted
	d.UpdatedAt = time.Now()
	if err := s.Store.UpdateDonation(ctx, d); err != nil {
		s.release(d, best)
		return models.MatchResult{}, &PersistenceError{
			Op: "update donation", DonationID: d.ID,
			CarrierID: best.carrier.ID, SiteID: best.site.ID, Err: err,
		}
	}

	logEntry := &models.AssignmentLog{
		CarrierID:  best.carrier.ID,
		DonationID: d.ID,
		AcceptedAt: time.Now(),
	}
	if err := s.Store.SaveAssignmentLog(ctx, logEntry); err != nil {
		s.revertDonation(d)
		s.release(d, best)
		return models.MatchResult{}, &PersistenceError{
			Op: "save assignment log", DonationID: d.ID,
			CarrierID: best.carrier.ID, SiteID: best.site.ID, Err: err,
		}
	}

	estimated := fmt.Sprintf("%.2f minutes", best.total)
	s.notify(best.carrier.ID, models.TaskNotice{
		DonationID:       d.ID,
		PickupAddress:    d.PickupAddress,
		SiteName:         best.site.Name,
		EstimatedMinutes: estimated,
	})

	observability.MatchesTotal.Inc()
	return models.MatchResult{
		Status:           models.MatchAssigned,
		DonationID:       d.ID,
		CarrierID:        best.carrier.ID,
		CarrierName:      best.carrier.Name,
		SiteID:           best.site.ID,
		SiteName:         best.site.Name,
		EstimatedMinutes: estimated,
	}, nil
}

// notify pushes the task to the carrier without blocking or failing the
// commit; errors are logged and counted only.
func (s *Service) notify(carrierID string, task models.TaskNotice) {
	if s.Dispatch == nil {
		return
	}
	go func() {
		if err := s.Dispatch.NotifyTask(carrierID, task); err != nil {
			observability.NotifyFailures.Inc()
			s.logger().Warn("carrier notify failed",
				"carrier_id", carrierID, "donation_id", task.DonationID, "error", err)
		}
	}()
}

// release returns the claimed carrier to the pool after a failed write.
func (s *Service) release(d *models.Donation, best *candidate) {
	// detached context: compensation should run even when the request
	// context is already cancelled
	if err := s.Carriers.Release(context.Background(), best.carrier.ID); err != nil {
		s.logger().Error("carrier release failed, needs manual reconciliation",
			"donation_id", d.ID, "carrier_id", best.carrier.ID, "site_id", best.site.ID, "error", err)
	}
}

// revertDonation best-effort resets a donation to pending after a
// later commit step failed.
func (s *Service) revertDonation(d *models.Donation) {
	d.AssignedCarrier = ""
	d.DeliveredTo = ""
	d.Status = models.StatusPending
	d.UpdatedAt = time.Now()
	if err := s.Store.UpdateDonation(context.Background(), d); err != nil {
		s.logger().Error("donation revert failed, needs manual reconciliation",
			"donation_id", d.ID, "error", err)
	}
}
