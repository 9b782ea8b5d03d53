package matcher

import "fmt"

// PersistenceError marks a failed write during commit. Callers must
// surface it as a hard failure, distinct from an unassigned outcome,
// since a partial write may need manual reconciliation.
type PersistenceError struct {
	Op         string
	DonationID string
	CarrierID  string
	SiteID     string
	Err        error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s failed (donation=%s carrier=%s site=%s): %v",
		e.Op, e.DonationID, e.CarrierID, e.SiteID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
