package dispatch

import (
	"github.com/example/food-rescue/internal/models"
)

// PushDispatcher tries the live WS session first and falls back to the
// push channel (FCM) when the carrier is not connected.
type PushDispatcher struct {
	WS       *WSRegistry
	Fallback Dispatcher
}

func NewPushDispatcher(ws *WSRegistry, fallback Dispatcher) *PushDispatcher {
	return &PushDispatcher{WS: ws, Fallback: fallback}
}

func (p *PushDispatcher) NotifyTask(carrierID string, task models.TaskNotice) error {
	if p.WS != nil {
		if err := p.WS.NotifyTask(carrierID, task); err == nil {
			return nil
		}
	}
	if p.Fallback != nil {
		return p.Fallback.NotifyTask(carrierID, task)
	}
	return ErrNoSession
}
