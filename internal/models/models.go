package models

import (
	"errors"
	"fmt"
	"time"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FoodKind is the closed set of food categories a donation can carry.
type FoodKind string

const (
	FoodVeg    FoodKind = "veg"
	FoodNonVeg FoodKind = "non-veg"
	FoodMixed  FoodKind = "mixed"
)

func (k FoodKind) Valid() bool {
	switch k {
	case FoodVeg, FoodNonVeg, FoodMixed:
		return true
	}
	return false
}

// DonationStatus follows the ordered lifecycle
// pending -> accepted -> picked -> delivered, with cancelled reachable
// from pending and accepted. Transitions never move backward.
type DonationStatus string

const (
	StatusPending   DonationStatus = "pending"
	StatusAccepted  DonationStatus = "accepted"
	StatusPicked    DonationStatus = "picked"
	StatusDelivered DonationStatus = "delivered"
	StatusCancelled DonationStatus = "cancelled"
)

func (s DonationStatus) rank() int {
	switch s {
	case StatusPending:
		return 0
	case StatusAccepted:
		return 1
	case StatusPicked:
		return 2
	case StatusDelivered:
		return 3
	}
	return -1
}

// CanTransition reports whether moving from s to next is a legal
// forward step in the lifecycle.
func (s DonationStatus) CanTransition(next DonationStatus) bool {
	if next == StatusCancelled {
		return s == StatusPending || s == StatusAccepted
	}
	if s.rank() < 0 || next.rank() < 0 {
		return false
	}
	return next.rank() == s.rank()+1
}

type Donation struct {
	ID              string         `json:"id"`
	DonorID         string         `json:"donor_id,omitempty"`
	DonorName       string         `json:"donor_name"`
	DonorPhone      string         `json:"donor_phone"`
	FoodDesc        string         `json:"food_description"`
	Quantity        float64        `json:"quantity"`
	Kind            FoodKind       `json:"food_kind"`
	PickupAddress   string         `json:"pickup_address"`
	Loc             Coord          `json:"loc"`
	PreferredAt     time.Time      `json:"preferred_pickup_time"`
	ExpiresAt       time.Time      `json:"expiry_time"`
	Images          []string       `json:"images,omitempty"`
	Status          DonationStatus `json:"status"`
	AssignedCarrier string         `json:"assigned_carrier,omitempty"`
	DeliveredTo     string         `json:"delivered_to,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

type Carrier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Loc       Coord     `json:"loc"`
	Available bool      `json:"available"`
	Updated   time.Time `json:"updated,omitempty"`

	// DistanceMeters is populated by geo queries relative to the
	// query point; zero otherwise.
	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

type Site struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Contact  string `json:"contact_person,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Address  string `json:"address"`
	Loc      Coord  `json:"loc"`
	Capacity int    `json:"capacity"`

	DistanceMeters float64 `json:"distance_meters,omitempty"`
}

// AssignmentLog is the audit record created when a donation is
// accepted; pickedUpAt/deliveredAt are filled in later in place.
type AssignmentLog struct {
	CarrierID   string     `json:"carrier_id"`
	DonationID  string     `json:"donation_id"`
	AcceptedAt  time.Time  `json:"accepted_at"`
	PickedUpAt  *time.Time `json:"picked_up_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}

// DonationInput is the intake payload handed to the matching engine.
type DonationInput struct {
	DonorID       string    `json:"donor_id,omitempty"`
	DonorName     string    `json:"donor_name"`
	DonorPhone    string    `json:"donor_phone"`
	FoodDesc      string    `json:"food_description"`
	Quantity      float64   `json:"quantity"`
	Kind          FoodKind  `json:"food_kind"`
	PickupAddress string    `json:"pickup_address"`
	PickupPoint   Coord     `json:"pickup_point"`
	PreferredAt   time.Time `json:"preferred_pickup_time"`
	ExpiresAt     time.Time `json:"expiry_time"`
	Images        []string  `json:"images,omitempty"`
}

var ErrInvalidInput = errors.New("invalid donation input")

// Validate rejects malformed intake payloads before any search begins.
func (in DonationInput) Validate() error {
	if in.DonorName == "" {
		return fmt.Errorf("%w: donor_name required", ErrInvalidInput)
	}
	if in.DonorPhone == "" {
		return fmt.Errorf("%w: donor_phone required", ErrInvalidInput)
	}
	if in.Kind != "" && !in.Kind.Valid() {
		return fmt.Errorf("%w: unknown food_kind %q", ErrInvalidInput, in.Kind)
	}
	return ValidCoord(in.PickupPoint)
}

func ValidCoord(c Coord) error {
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return fmt.Errorf("%w: point out of range (lat=%v lon=%v)", ErrInvalidInput, c.Lat, c.Lon)
	}
	return nil
}

// MatchResult is what the matching engine hands back to the HTTP layer.
type MatchResult struct {
	Status      string `json:"status"` // assigned | unassigned
	DonationID  string `json:"donation_id"`
	CarrierID   string `json:"carrier_id,omitempty"`
	CarrierName string `json:"carrier_name,omitempty"`
	SiteID      string `json:"site_id,omitempty"`
	SiteName    string `json:"site_name,omitempty"`
	// EstimatedMinutes is the human string handed to callers and
	// notifications, e.g. "18.00 minutes".
	EstimatedMinutes string `json:"estimated_minutes,omitempty"`
}

const (
	MatchAssigned   = "assigned"
	MatchUnassigned = "unassigned"
)

// TaskNotice is the payload pushed to the chosen carrier.
type TaskNotice struct {
	DonationID       string `json:"donation_id"`
	PickupAddress    string `json:"pickup_address"`
	SiteName         string `json:"site_name"`
	EstimatedMinutes string `json:"estimated_minutes"`
}
