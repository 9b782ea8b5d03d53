package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/food-rescue/internal/config"
	"github.com/example/food-rescue/internal/ingest"
	"github.com/example/food-rescue/internal/logging"
	"github.com/example/food-rescue/internal/models"
)

func newTestServer() *Server {
	return NewServer(config.ServerConfig{}, logging.NewLogger("error"))
}

// The middleware chain wraps every ResponseWriter; the carrier
// websocket route must still be able to hijack the connection through
// that wrapper and receive task notices over the live session.
func TestWebsocketHandshakeThroughMiddleware(t *testing.T) {
	api := newTestServer()
	ts := httptest.NewServer(api)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/c1"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("dial failed (status=%d): %v", status, err)
	}
	defer conn.Close()

	// the session is registered just after the upgrade completes
	notice := models.TaskNotice{DonationID: "d1", SiteName: "shelter", EstimatedMinutes: "18.00 minutes"}
	deadline := time.Now().Add(2 * time.Second)
	for {
		if err := api.WSReg.NotifyTask("c1", notice); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got models.TaskNotice
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read notice: %v", err)
	}
	if got.DonationID != "d1" || got.EstimatedMinutes != "18.00 minutes" {
		t.Fatalf("unexpected notice: %+v", got)
	}
}

func TestServerClose(t *testing.T) {
	api := newTestServer()
	if err := api.Close(); err != nil {
		t.Fatalf("close without kafka: %v", err)
	}
	api.Kafka = ingest.NewKafkaProducer([]string{"localhost:9092"}, "carrier-locations")
	if err := api.Close(); err != nil {
		t.Fatalf("close with idle producer: %v", err)
	}
}
