package main

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"pixelmart/internal/config"
	"pixelmart/internal/infrastructure/notifier"
	"pixelmart/internal/metrics"
	"pixelmart/internal/repo"
	"pixelmart/internal/service"
	"pixelmart/internal/signature"
)

func newLogger(cfg config.Log, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

type confirmationNotifier interface {
	service.Notifier
	Close() error
}

func newNotifier(cfg config.Kafka, log *slog.Logger) confirmationNotifier {
	if len(cfg.Brokers) == 0 {
		log.Warn("no kafka brokers configured, confirmations go to the log only")
		return notifier.NewLogNotifier(log)
	}
	return notifier.NewKafkaNotifier(cfg.Brokers, cfg.Topic)
}

func newReconcileService(cfg *config.StorefrontConfig, orders repo.OrderRepo, n service.Notifier, m *metrics.ReconcileMetrics, log *slog.Logger) service.ReconcileService {
	return service.NewReconcileService(
		orders,
		signature.NewVerifier(cfg.Gateway.KeySecret, cfg.Gateway.WebhookSecret),
		n,
		m,
		log,
		service.ReconcileOptions{
			MaxRetries:     cfg.Reconcile.MaxRetries,
			InitialBackoff: cfg.Reconcile.InitialBackoff,
			MaxBackoff:     cfg.Reconcile.MaxBackoff,
			NotifyTimeout:  cfg.Reconcile.NotifyTimeout,
		},
	)
}

func stdoutLogger(cfg *config.StorefrontConfig) *slog.Logger {
	return newLogger(cfg.Log, os.Stdout)
}
