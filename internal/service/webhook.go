package service

import (
	"encoding/json"
	"fmt"

	"pixelmart/internal/domain"
)

// Gateway events that carry a captured payment for an order.
const (
	eventPaymentCaptured = "payment.captured"
	eventOrderPaid       = "order.paid"
)

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func (e webhookEvent) settlesPayment() bool {
	return e.Event == eventPaymentCaptured || e.Event == eventOrderPaid
}

func parseWebhookEvent(rawBody []byte) (webhookEvent, error) {
	var event webhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return webhookEvent{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if event.Event == "" {
		return webhookEvent{}, fmt.Errorf("%w: missing event", domain.ErrMalformedPayload)
	}
	if event.settlesPayment() {
		entity := event.Payload.Payment.Entity
		if entity.ID == "" || entity.OrderID == "" {
			return webhookEvent{}, fmt.Errorf("%w: %s without payment or order id", domain.ErrMalformedPayload, event.Event)
		}
	}
	return event, nil
}
