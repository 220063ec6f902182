package orders

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// MOCK IMPLEMENTATIONS FOR TESTING
// =============================================================================

// MemoryRepository is an in-memory Repository for unit tests.
type MemoryRepository struct {
	mu        sync.Mutex
	listings  map[uuid.UUID]*Listing
	orders    map[uuid.UUID]*Order
	byCode    map[string]uuid.UUID
	disputes  map[uuid.UUID]*Dispute // keyed by order id
}

// NewMemoryRepository builds an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		listings: map[uuid.UUID]*Listing{},
		orders:   map[uuid.UUID]*Order{},
		byCode:   map[string]uuid.UUID{},
		disputes: map[uuid.UUID]*Dispute{},
	}
}

// SeedListing installs a listing for test setup.
func (m *MemoryRepository) SeedListing(l Listing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := l
	m.listings[l.ID] = &cp
}

func (m *MemoryRepository) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *MemoryRepository) SetListingStatus(ctx context.Context, id uuid.UUID, status ListingStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.listings[id]
	if !ok {
		return ErrOrderNotFound
	}
	l.Status = status
	return nil
}

func (m *MemoryRepository) InsertOrder(ctx context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byCode[order.OrderCode]; exists {
		return ErrOrderNotFound
	}
	cp := *order
	m.orders[order.ID] = &cp
	m.byCode[order.OrderCode] = order.ID
	return nil
}

func (m *MemoryRepository) GetOrder(ctx context.Context, id uuid.UUID) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MemoryRepository) GetOrderByCode(ctx context.Context, code string) (*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.byCode[code]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *m.orders[id]
	return &cp, nil
}

func (m *MemoryRepository) OrderCodeExists(ctx context.Context, code string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.byCode[code]
	return ok, nil
}

func (m *MemoryRepository) UpdateOrder(ctx context.Context, order *Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[order.ID]; !ok {
		return ErrOrderNotFound
	}
	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

// ListExpiringActive implements Repository.
func (m *MemoryRepository) ListExpiringActive(ctx context.Context, asOf time.Time) ([]*Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Order
	for _, o := range m.orders {
		if o.Status == StatusActive && o.ExpectedEndAt != nil && !o.ExpectedEndAt.After(asOf) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListOpenDisputes implements Repository.
func (m *MemoryRepository) ListOpenDisputes(ctx context.Context) ([]*Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Dispute
	for _, d := range m.disputes {
		if d.ResolvedAt == nil {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *MemoryRepository) InsertDispute(ctx context.Context, dispute *Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *dispute
	m.disputes[dispute.OrderID] = &cp
	return nil
}

func (m *MemoryRepository) GetOpenDispute(ctx context.Context, orderID uuid.UUID) (*Dispute, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.disputes[orderID]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryRepository) UpdateDispute(ctx context.Context, dispute *Dispute) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.disputes[dispute.OrderID]; !ok {
		return ErrOrderNotFound
	}
	cp := *dispute
	m.disputes[dispute.OrderID] = &cp
	return nil
}
