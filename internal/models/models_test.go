package models

import "testing"

func TestStatusTransitionsForwardOnly(t *testing.T) {
	cases := []struct {
		from, to DonationStatus
		ok       bool
	}{
		{StatusPending, StatusAccepted, true},
		{StatusAccepted, StatusPicked, true},
		{StatusPicked, StatusDelivered, true},
		{StatusPending, StatusCancelled, true},
		{StatusAccepted, StatusCancelled, true},
		{StatusAccepted, StatusPending, false},
		{StatusDelivered, StatusPicked, false},
		{StatusPicked, StatusCancelled, false},
		{StatusDelivered, StatusCancelled, false},
		{StatusPending, StatusPicked, false},
		{StatusPending, StatusDelivered, false},
	}
	for _, c := range cases {
		if got := c.from.CanTransition(c.to); got != c.ok {
			t.Errorf("%s -> %s: got %v, want %v", c.from, c.to, got, c.ok)
		}
	}
}

func TestValidateInput(t *testing.T) {
	base := DonationInput{
		DonorName:   "anita",
		DonorPhone:  "555-0101",
		Kind:        FoodVeg,
		PickupPoint: Coord{Lat: 12.97, Lon: 77.59},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	bad := base
	bad.PickupPoint = Coord{Lat: 91, Lon: 0}
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for lat > 90")
	}

	bad = base
	bad.DonorPhone = ""
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for missing phone")
	}

	bad = base
	bad.Kind = "frozen"
	if err := bad.Validate(); err == nil {
		t.Fatal("expected error for unknown food kind")
	}
}
