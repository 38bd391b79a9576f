package worker

import (
	"context"
	"log/slog"
	"time"

	"pixelmart/internal/service"
)

// ExpiryWorker periodically fails orders whose payment never arrived.
type ExpiryWorker struct {
	reconciler service.ReconcileService
	interval   time.Duration
	pendingTTL time.Duration
	batchSize  int
	log        *slog.Logger
}

func NewExpiryWorker(
	reconciler service.ReconcileService,
	interval time.Duration,
	pendingTTL time.Duration,
	batchSize int,
	log *slog.Logger,
) *ExpiryWorker {
	return &ExpiryWorker{
		reconciler: reconciler,
		interval:   interval,
		pendingTTL: pendingTTL,
		batchSize:  batchSize,
		log:        log,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("expiry worker started", "interval", w.interval, "pending_ttl", w.pendingTTL)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("expiry worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExpiryWorker) sweep(ctx context.Context) {
	n, err := w.reconciler.ExpireStale(ctx, w.pendingTTL, w.batchSize)
	if err != nil {
		w.log.Error("expiry sweep failed", "expired", n, "error", err)
		return
	}
	if n > 0 {
		w.log.Info("expired abandoned orders", "count", n)
	}
}
