package dispatch

import "github.com/example/food-rescue/internal/models"

// Dispatcher delivers a new-task notice to a carrier. Delivery is
// best-effort: the matching engine never fails a commit on a dispatch
// error.
type Dispatcher interface {
	NotifyTask(carrierID string, task models.TaskNotice) error
}
