package notifier

import (
	"context"
	"log/slog"

	"pixelmart/internal/domain"
)

// LogNotifier records confirmations in the log. Used when no broker is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Send(_ context.Context, order *domain.Order) error {
	event, err := NewOrderConfirmedEvent(order)
	if err != nil {
		return err
	}
	l.log.Info("order confirmation",
		"gateway_order_id", event.GatewayOrderID,
		"payment_id", event.GatewayPaymentID,
		"to", event.BuyerEmail,
		"product", event.ProductName,
		"amount", event.Amount,
	)
	return nil
}

func (l *LogNotifier) Close() error { return nil }
