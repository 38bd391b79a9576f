package repo

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pixelmart/internal/domain"
)

var ErrDuplicateGatewayOrderID = errors.New("duplicate gateway order id")

// MemoryStore is an in-process OrderRepo and CatalogRepo. Every conditional write
// runs its predicate and mutation under one lock, which gives it the same
// atomicity the Postgres statement has.
type MemoryStore struct {
	mu       sync.RWMutex
	orders   map[string]*domain.Order
	buyers   map[uuid.UUID]domain.Buyer
	products map[uuid.UUID]domain.Product
	writes   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orders:   make(map[string]*domain.Order),
		buyers:   make(map[uuid.UUID]domain.Buyer),
		products: make(map[uuid.UUID]domain.Product),
	}
}

// Writes counts applied status transitions.
func (m *MemoryStore) Writes() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.writes
}

func (m *MemoryStore) CreateBuyer(_ context.Context, buyer *domain.Buyer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.buyers[buyer.ID] = *buyer
	return nil
}

func (m *MemoryStore) CreateProduct(_ context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[product.ID] = *product
	return nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[order.GatewayOrderID]; exists {
		return ErrDuplicateGatewayOrderID
	}
	stored := *order
	stored.Buyer, stored.Product = nil, nil
	m.orders[order.GatewayOrderID] = &stored
	return nil
}

func (m *MemoryStore) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[gatewayOrderID]
	if !ok {
		return nil, nil
	}
	return m.populated(o), nil
}

func (m *MemoryStore) ConditionalComplete(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (TransitionResult, error) {
	return m.transition(ctx, gatewayOrderID, func(o *domain.Order) {
		paymentID := gatewayPaymentID
		o.Status = domain.OrderCompleted
		o.GatewayPaymentID = &paymentID
	})
}

func (m *MemoryStore) ConditionalFail(ctx context.Context, gatewayOrderID string) (TransitionResult, error) {
	return m.transition(ctx, gatewayOrderID, func(o *domain.Order) {
		o.Status = domain.OrderFailed
	})
}

func (m *MemoryStore) transition(ctx context.Context, gatewayOrderID string, apply func(*domain.Order)) (TransitionResult, error) {
	if err := ctx.Err(); err != nil {
		return TransitionResult{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[gatewayOrderID]
	if !ok {
		return TransitionResult{}, nil
	}
	if o.Status != domain.OrderPending {
		return TransitionResult{Updated: false, Order: m.populated(o)}, nil
	}
	apply(o)
	o.UpdatedAt = time.Now()
	m.writes++
	return TransitionResult{Updated: true, Order: m.populated(o)}, nil
}

func (m *MemoryStore) ListByBuyer(_ context.Context, buyerID uuid.UUID) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []domain.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			orders = append(orders, *m.populated(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

func (m *MemoryStore) FindStalePending(_ context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	cutoff := time.Now().Add(-olderThan)
	m.mu.RLock()
	defer m.mu.RUnlock()
	var orders []domain.Order
	for _, o := range m.orders {
		if o.Status == domain.OrderPending && o.CreatedAt.Before(cutoff) {
			orders = append(orders, *m.populated(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	if limit > 0 && len(orders) > limit {
		orders = orders[:limit]
	}
	return orders, nil
}

// populated returns a copy of o with reference data attached. Callers hold m.mu.
func (m *MemoryStore) populated(o *domain.Order) *domain.Order {
	cp := *o
	if o.GatewayPaymentID != nil {
		id := *o.GatewayPaymentID
		cp.GatewayPaymentID = &id
	}
	if b, ok := m.buyers[o.BuyerID]; ok {
		cp.Buyer = &b
	}
	if p, ok := m.products[o.ProductID]; ok {
		cp.Product = &p
	}
	return &cp
}
