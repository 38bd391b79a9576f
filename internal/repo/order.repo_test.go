package repo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"pixelmart/internal/config"
	"pixelmart/internal/database"
	"pixelmart/internal/domain"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		postgres.BasicWaitStrategies(),
	)
	t.Cleanup(func() {
		if ctr != nil {
			require.NoError(t, ctr.Terminate(context.Background()))
		}
	})
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := database.Open(ctx, config.Database{DSN: dsn, MaxOpenConns: 10, MaxIdleConns: 5, ConnMaxLifetime: time.Minute},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

func seedPostgresOrder(t *testing.T, db *database.DB, gatewayOrderID string, createdAt time.Time) *domain.Order {
	t.Helper()
	ctx := context.Background()
	catalog := NewCatalogRepo(db.DB)
	buyer := &domain.Buyer{ID: uuid.New(), Email: gatewayOrderID + "@example.com", Name: "Buyer"}
	product := &domain.Product{ID: uuid.New(), Name: "Mountains"}
	require.NoError(t, catalog.CreateBuyer(ctx, buyer))
	require.NoError(t, catalog.CreateProduct(ctx, product))

	order := &domain.Order{
		ID:             uuid.New(),
		BuyerID:        buyer.ID,
		ProductID:      product.ID,
		Variant:        domain.Variant{Type: domain.VariantSquare, License: domain.LicenseCommercial, Price: 10},
		GatewayOrderID: gatewayOrderID,
		Amount:         10,
		Status:         domain.OrderPending,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	require.NoError(t, NewOrderRepo(db.DB).CreateOrder(ctx, order))
	return order
}

func TestOrderRepo_Postgres(t *testing.T) {
	db := newTestDB(t)
	orders := NewOrderRepo(db.DB)
	ctx := context.Background()

	t.Run("concurrent conditional complete has one winner", func(t *testing.T) {
		seedPostgresOrder(t, db, "order_pg_race", time.Now())

		const callers = 8
		results := make([]TransitionResult, callers)
		errs := make([]error, callers)
		var wg sync.WaitGroup
		for i := 0; i < callers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i], errs[i] = orders.ConditionalComplete(ctx, "order_pg_race", fmt.Sprintf("pay_%d", i))
			}(i)
		}
		wg.Wait()

		var winner string
		updated := 0
		for i := range results {
			require.NoError(t, errs[i])
			if results[i].Updated {
				updated++
				winner = fmt.Sprintf("pay_%d", i)
				require.NotNil(t, results[i].Order.Buyer)
				assert.Equal(t, "order_pg_race@example.com", results[i].Order.Buyer.Email)
				require.NotNil(t, results[i].Order.Product)
				assert.Equal(t, "Mountains", results[i].Order.Product.Name)
			} else {
				require.NotNil(t, results[i].Order)
				assert.Equal(t, domain.OrderCompleted, results[i].Order.Status)
			}
		}
		require.Equal(t, 1, updated)

		stored, err := orders.FindByGatewayOrderID(ctx, "order_pg_race")
		require.NoError(t, err)
		assert.Equal(t, winner, stored.PaymentID())
		assert.InDelta(t, 10.0, stored.Amount, 0.001)
	})

	t.Run("failed is terminal", func(t *testing.T) {
		seedPostgresOrder(t, db, "order_pg_failed", time.Now())

		res, err := orders.ConditionalFail(ctx, "order_pg_failed")
		require.NoError(t, err)
		require.True(t, res.Updated)

		res, err = orders.ConditionalComplete(ctx, "order_pg_failed", "pay_late")
		require.NoError(t, err)
		assert.False(t, res.Updated)
		assert.Equal(t, domain.OrderFailed, res.Order.Status)
		assert.Nil(t, res.Order.GatewayPaymentID)
	})

	t.Run("unknown key", func(t *testing.T) {
		found, err := orders.FindByGatewayOrderID(ctx, "order_pg_missing")
		require.NoError(t, err)
		assert.Nil(t, found)

		res, err := orders.ConditionalComplete(ctx, "order_pg_missing", "pay_1")
		require.NoError(t, err)
		assert.False(t, res.Updated)
		assert.Nil(t, res.Order)
	})

	t.Run("stale pending", func(t *testing.T) {
		seedPostgresOrder(t, db, "order_pg_stale", time.Now().Add(-48*time.Hour))

		stale, err := orders.FindStalePending(ctx, 24*time.Hour, 10)
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, "order_pg_stale", stale[0].GatewayOrderID)
	})

	t.Run("list by buyer", func(t *testing.T) {
		seeded := seedPostgresOrder(t, db, "order_pg_list", time.Now())

		list, err := orders.ListByBuyer(ctx, seeded.BuyerID)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, seeded.ID, list[0].ID)
	})
}
