package storage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/example/food-rescue/internal/models"
)

var ErrNotFound = errors.New("donation not found")

// DonationStore defines persistence for donation requests and their
// assignment audit log.
type DonationStore interface {
	SaveDonation(ctx context.Context, d *models.Donation) error
	UpdateDonation(ctx context.Context, d *models.Donation) error
	GetDonation(ctx context.Context, id string) (*models.Donation, error)
	ListCarrierTasks(ctx context.Context, carrierID string) ([]*models.Donation, error)
	CountDelivered(ctx context.Context) (int, error)

	SaveAssignmentLog(ctx context.Context, l *models.AssignmentLog) error
	MarkPickedUp(ctx context.Context, donationID string, at time.Time) error
	MarkDelivered(ctx context.Context, donationID string, at time.Time) error
}

type MemoryStore struct {
	mu        sync.RWMutex
	donations map[string]*models.Donation
	logs      map[string]*models.AssignmentLog // keyed by donation id
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		donations: make(map[string]*models.Donation),
		logs:      make(map[string]*models.AssignmentLog),
	}
}

func (m *MemoryStore) SaveDonation(ctx context.Context, d *models.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *d
	m.donations[d.ID] = &cp
	return nil
}

func (m *MemoryStore) UpdateDonation(ctx context.Context, d *models.Donation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.donations[d.ID]; !ok {
		return ErrNotFound
	}
	cp := *d
	m.donations[d.ID] = &cp
	return nil
}

func (m *MemoryStore) GetDonation(ctx context.Context, id string) (*models.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.donations[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) ListCarrierTasks(ctx context.Context, carrierID string) ([]*models.Donation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []*models.Donation{}
	for _, d := range m.donations {
		if d.AssignedCarrier == carrierID {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryStore) CountDelivered(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, d := range m.donations {
		if d.Status == models.StatusDelivered {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) SaveAssignmentLog(ctx context.Context, l *models.AssignmentLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *l
	m.logs[l.DonationID] = &cp
	return nil
}

func (m *MemoryStore) MarkPickedUp(ctx context.Context, donationID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[donationID]
	if !ok {
		return ErrNotFound
	}
	l.PickedUpAt = &at
	return nil
}

func (m *MemoryStore) MarkDelivered(ctx context.Context, donationID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.logs[donationID]
	if !ok {
		return ErrNotFound
	}
	l.DeliveredAt = &at
	return nil
}

// GetAssignmentLog is used by tests and the lifecycle handlers.
func (m *MemoryStore) GetAssignmentLog(ctx context.Context, donationID string) (*models.AssignmentLog, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.logs[donationID]
	if !ok {
		return nil, false
	}
	cp := *l
	return &cp, true
}
