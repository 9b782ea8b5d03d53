package eta

import "testing"

func TestPickupMinutes(t *testing.T) {
	// 1000m at 500 m/min + 10 min buffer
	if got := PickupMinutes(1000); got != 12 {
		t.Fatalf("expected 12, got %f", got)
	}
	if got := PickupMinutes(3000); got != 16 {
		t.Fatalf("expected 16, got %f", got)
	}
	if got := PickupMinutes(0); got != PickupBufferMinutes {
		t.Fatalf("zero distance should be just the buffer, got %f", got)
	}
}

func TestDeliveryMinutes(t *testing.T) {
	if got := DeliveryMinutes(500); got != 6 {
		t.Fatalf("expected 6, got %f", got)
	}
	if got := DeliveryMinutes(0); got != DeliveryBufferMinutes {
		t.Fatalf("zero distance should be just the buffer, got %f", got)
	}
}
