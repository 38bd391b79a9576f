package main

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"pixelmart/internal/config"
	"pixelmart/internal/database"
	"pixelmart/internal/domain"
	"pixelmart/internal/infrastructure/notifier"
	"pixelmart/internal/infrastructure/payment"
	"pixelmart/internal/metrics"
	"pixelmart/internal/repo"
	"pixelmart/internal/service"
)

func simulateCmd() *cobra.Command {
	var (
		count       int
		usePostgres bool
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Race client verify calls against webhooks for a batch of orders",
		Long: `Creates orders, captures them at a fake gateway, then delivers the client
verify call and the webhook for each capture concurrently and prints what each
path observed. Uses an in-memory store unless --postgres is given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			return runSimulate(ctx, count, usePostgres)
		},
	}
	cmd.Flags().IntVarP(&count, "orders", "n", 20, "number of orders to simulate")
	cmd.Flags().BoolVar(&usePostgres, "postgres", false, "use the configured Postgres database")
	return cmd
}

type simulationStore interface {
	repo.OrderRepo
	repo.CatalogRepo
}

type pgSimulationStore struct {
	repo.OrderRepo
	repo.CatalogRepo
}

func runSimulate(ctx context.Context, count int, usePostgres bool) error {
	cfg := &config.StorefrontConfig{
		Gateway:   config.Gateway{KeySecret: "sim_key_secret", WebhookSecret: "sim_webhook_secret"},
		Reconcile: config.Reconcile{MaxRetries: 3},
		Log:       config.Log{Level: "warn", Format: "text"},
	}
	var store simulationStore = repo.NewMemoryStore()
	if usePostgres {
		cfg = config.MustLoad()
		if err := cfg.Gateway.Validate(); err != nil {
			return err
		}
		log := newLogger(cfg.Log, os.Stderr)
		db, err := database.Open(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			return err
		}
		store = pgSimulationStore{OrderRepo: repo.NewOrderRepo(db.DB), CatalogRepo: repo.NewCatalogRepo(db.DB)}
	}
	log := newLogger(cfg.Log, os.Stderr)

	gateway := payment.NewFakeGateway(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret)
	orders := service.NewOrderService(store, gateway)
	reconciler := newReconcileService(cfg, store, notifier.NewLogNotifier(log), metrics.NewReconcileMetrics(prometheus.NewRegistry()), log)

	buyer := &domain.Buyer{ID: uuid.New(), Email: "sim-" + uuid.NewString()[:8] + "@example.com", Name: "Simulated Buyer"}
	product := &domain.Product{ID: uuid.New(), Name: "Simulated Print"}
	if err := store.CreateBuyer(ctx, buyer); err != nil {
		return fmt.Errorf("seed buyer: %w", err)
	}
	if err := store.CreateProduct(ctx, product); err != nil {
		return fmt.Errorf("seed product: %w", err)
	}

	fmt.Printf("--- STARTING SIMULATION (%d ORDERS) ---\n", count)
	transitions := 0
	for i := 0; i < count; i++ {
		order, err := orders.CreateOrder(ctx, service.CreateOrderInput{
			BuyerID:   buyer.ID,
			ProductID: product.ID,
			Variant:   domain.Variant{Type: domain.VariantSquare, License: domain.LicensePersonal, Price: float64(10 + i)},
		})
		if err != nil {
			fmt.Printf("[%d] create failed: %v\n", i+1, err)
			continue
		}
		capture, err := gateway.Capture(ctx, order.GatewayOrderID)
		if err != nil {
			fmt.Printf("[%d] capture failed: %v\n", i+1, err)
			continue
		}

		var (
			wg                 sync.WaitGroup
			clientRes, hookRes service.Result
			clientErr, hookErr error
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			clientRes, clientErr = reconciler.ReconcileFromClient(ctx, capture.GatewayOrderID, capture.PaymentID, capture.ClientSignature)
		}()
		go func() {
			defer wg.Done()
			hookRes, hookErr = reconciler.ReconcileFromWebhook(ctx, capture.WebhookBody, capture.WebhookSignature)
		}()
		wg.Wait()

		for _, r := range []service.Result{clientRes, hookRes} {
			if r.Outcome == service.OutcomeTransitioned {
				transitions++
			}
		}

		fresh, err := store.FindByGatewayOrderID(ctx, order.GatewayOrderID)
		if err != nil || fresh == nil {
			fmt.Printf("[%d] %s lookup failed: %v\n", i+1, order.GatewayOrderID, err)
			continue
		}
		fmt.Printf("[%d] %s client=%s%s webhook=%s%s -> DB Status: %s\n",
			i+1, order.GatewayOrderID,
			clientRes.Outcome, errSuffix(clientErr),
			hookRes.Outcome, errSuffix(hookErr),
			fresh.Status,
		)
	}

	fmt.Printf("--- DONE: %d transitions for %d orders ---\n", transitions, count)
	if transitions != count {
		return fmt.Errorf("expected %d transitions, observed %d", count, transitions)
	}
	return nil
}

func errSuffix(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf(" (%v)", err)
}
