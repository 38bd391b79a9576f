package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelmart/internal/domain"
)

func seedMemoryOrder(t *testing.T, m *MemoryStore, gatewayOrderID string) *domain.Order {
	t.Helper()
	ctx := context.Background()
	buyer := &domain.Buyer{ID: uuid.New(), Email: "buyer@example.com", Name: "Buyer"}
	product := &domain.Product{ID: uuid.New(), Name: "Sunset"}
	require.NoError(t, m.CreateBuyer(ctx, buyer))
	require.NoError(t, m.CreateProduct(ctx, product))

	order := &domain.Order{
		ID:             uuid.New(),
		BuyerID:        buyer.ID,
		ProductID:      product.ID,
		Variant:        domain.Variant{Type: domain.VariantWide, License: domain.LicensePersonal, Price: 10},
		GatewayOrderID: gatewayOrderID,
		Amount:         10,
		Status:         domain.OrderPending,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	require.NoError(t, m.CreateOrder(ctx, order))
	return order
}

func TestMemoryStore_ConditionalCompleteRace(t *testing.T) {
	m := NewMemoryStore()
	seedMemoryOrder(t, m, "order_race")

	const callers = 16
	results := make([]TransitionResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := m.ConditionalComplete(context.Background(), "order_race", fmt.Sprintf("pay_%d", i))
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	var winner string
	updated := 0
	for i, res := range results {
		if res.Updated {
			updated++
			winner = fmt.Sprintf("pay_%d", i)
		}
	}
	require.Equal(t, 1, updated)
	assert.Equal(t, 1, m.Writes())

	stored, err := m.FindByGatewayOrderID(context.Background(), "order_race")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderCompleted, stored.Status)
	assert.Equal(t, winner, stored.PaymentID())
}

func TestMemoryStore_TerminalStability(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	seedMemoryOrder(t, m, "order_failed")

	res, err := m.ConditionalFail(ctx, "order_failed")
	require.NoError(t, err)
	require.True(t, res.Updated)

	res, err = m.ConditionalComplete(ctx, "order_failed", "pay_late")
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, domain.OrderFailed, res.Order.Status)
	assert.Nil(t, res.Order.GatewayPaymentID)
}

func TestMemoryStore_UnknownKey(t *testing.T) {
	m := NewMemoryStore()
	res, err := m.ConditionalComplete(context.Background(), "missing", "pay_1")
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Nil(t, res.Order)
	assert.Zero(t, m.Writes())
}

func TestMemoryStore_PopulatesReferences(t *testing.T) {
	m := NewMemoryStore()
	seeded := seedMemoryOrder(t, m, "order_refs")

	got, err := m.FindByGatewayOrderID(context.Background(), "order_refs")
	require.NoError(t, err)
	require.NotNil(t, got.Buyer)
	require.NotNil(t, got.Product)
	assert.Equal(t, seeded.BuyerID, got.Buyer.ID)
	assert.Equal(t, "Sunset", got.Product.Name)
}

func TestMemoryStore_DuplicateGatewayOrderID(t *testing.T) {
	m := NewMemoryStore()
	seedMemoryOrder(t, m, "order_dup")
	err := m.CreateOrder(context.Background(), &domain.Order{GatewayOrderID: "order_dup"})
	assert.ErrorIs(t, err, ErrDuplicateGatewayOrderID)
}
