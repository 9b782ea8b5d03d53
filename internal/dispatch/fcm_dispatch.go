package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/example/food-rescue/internal/models"
)

// FCMDispatcher posts task notices to an FCM HTTPv1 endpoint; carrier
// device tokens are resolved server-side by topic naming.
type FCMDispatcher struct {
	Endpoint string
	Key      string
	Client   *http.Client
}

func NewFCMDispatcher(endpoint, key string) *FCMDispatcher {
	return &FCMDispatcher{Endpoint: endpoint, Key: key, Client: &http.Client{Timeout: 3 * time.Second}}
}

func (f *FCMDispatcher) NotifyTask(carrierID string, task models.TaskNotice) error {
	body := map[string]interface{}{"message": map[string]interface{}{
		"topic": "carrier-" + carrierID,
		"data":  task,
	}}
	b, _ := json.Marshal(body)
	req, err := http.NewRequest("POST", f.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if f.Key != "" {
		req.Header.Set("Authorization", "Bearer "+f.Key)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("fcm status %d", resp.StatusCode)
	}
	return nil
}
