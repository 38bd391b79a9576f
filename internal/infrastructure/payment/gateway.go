package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pixelmart/internal/signature"
)

var ErrUnknownGatewayOrder = errors.New("unknown gateway order")

// PaymentGateway is the order-creation side of the payment gateway.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, receipt string) (gatewayOrderID string, err error)
}

// Capture is everything the gateway emits when a payment settles: the values the
// browser posts back to the verify endpoint and the signed webhook delivery.
type Capture struct {
	GatewayOrderID   string
	PaymentID        string
	ClientSignature  string
	WebhookBody      []byte
	WebhookSignature string
}

// FakeGateway stands in for the hosted gateway in local runs and tests. Capturing
// an order twice returns the same payment, as the real gateway does.
type FakeGateway struct {
	mu            sync.RWMutex
	orders        map[string]float64
	captured      map[string]string
	keySecret     []byte
	webhookSecret []byte
}

func NewFakeGateway(keySecret, webhookSecret string) *FakeGateway {
	return &FakeGateway{
		orders:        make(map[string]float64),
		captured:      make(map[string]string),
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

func gatewayID(prefix string) string {
	return prefix + strings.ReplaceAll(uuid.NewString(), "-", "")[:14]
}

func (g *FakeGateway) CreateOrder(ctx context.Context, amount float64, receipt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if amount < 0 {
		return "", fmt.Errorf("invalid amount %.2f for receipt %s", amount, receipt)
	}
	id := gatewayID("order_")
	g.mu.Lock()
	g.orders[id] = amount
	g.mu.Unlock()
	return id, nil
}

func (g *FakeGateway) Capture(ctx context.Context, gatewayOrderID string) (Capture, error) {
	if err := ctx.Err(); err != nil {
		return Capture{}, err
	}

	g.mu.Lock()
	amount, ok := g.orders[gatewayOrderID]
	if !ok {
		g.mu.Unlock()
		return Capture{}, fmt.Errorf("%w: %s", ErrUnknownGatewayOrder, gatewayOrderID)
	}
	paymentID, paid := g.captured[gatewayOrderID]
	if !paid {
		paymentID = gatewayID("pay_")
		g.captured[gatewayOrderID] = paymentID
	}
	g.mu.Unlock()

	body := []byte(fmt.Sprintf(
		`{"entity":"event","event":"payment.captured","payload":{"payment":{"entity":{"id":%q,"order_id":%q,"amount":%d,"status":"captured"}}}}`,
		paymentID, gatewayOrderID, int64(amount*100),
	))

	return Capture{
		GatewayOrderID:   gatewayOrderID,
		PaymentID:        paymentID,
		ClientSignature:  signature.Sign(signature.ClientPayload(gatewayOrderID, paymentID), g.keySecret),
		WebhookBody:      body,
		WebhookSignature: signature.Sign(body, g.webhookSecret),
	}, nil
}
