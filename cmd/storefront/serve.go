package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"pixelmart/internal/config"
	"pixelmart/internal/database"
	"pixelmart/internal/metrics"
	"pixelmart/internal/repo"
	"pixelmart/internal/server"
	"pixelmart/internal/service"
	"pixelmart/internal/worker"
)

func serveCmd() *cobra.Command {
	var migrateFirst bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server and the expiry worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), migrateFirst)
		},
	}
	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply migrations before serving")
	return cmd
}

func runServe(parent context.Context, migrateFirst bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.MustLoad()
	if err := cfg.Gateway.Validate(); err != nil {
		return fmt.Errorf("refusing to serve: %w", err)
	}
	log := stdoutLogger(cfg)

	db, err := database.Open(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer db.Close()

	if migrateFirst {
		if err := db.Migrate(); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewDBStatsCollector(db.DB, "storefront"))
	m := metrics.NewReconcileMetrics(reg)

	orderRepo := repo.NewOrderRepo(db.DB)
	n := newNotifier(cfg.Kafka, log)
	defer n.Close()

	reconciler := newReconcileService(cfg, orderRepo, n, m, log)
	// Gateway order creation happens in the checkout frontend; here the order
	// service only serves buyer history.
	orders := service.NewOrderService(orderRepo, nil)

	srv := server.NewServer(server.Options{
		Reconciler:      reconciler,
		Orders:          orders,
		Health:          db,
		Gatherer:        reg,
		SignatureHeader: cfg.Gateway.SignatureHeader,
		RequestTimeout:  cfg.HTTP.RequestTimeout,
		AllowedOrigins:  cfg.HTTP.AllowedOrigins,
		Log:             log,
	})

	expiry := worker.NewExpiryWorker(reconciler, cfg.Worker.Interval, cfg.Worker.PendingTTL, cfg.Worker.BatchSize, log)
	go expiry.Run(ctx)

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server started", "addr", cfg.HTTP.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
