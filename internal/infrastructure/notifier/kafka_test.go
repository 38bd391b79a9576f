package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pixelmart/internal/domain"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func completedOrder() *domain.Order {
	paymentID := "pay_1"
	return &domain.Order{
		ID:               uuid.New(),
		GatewayOrderID:   "order_1",
		GatewayPaymentID: &paymentID,
		Amount:           10,
		Status:           domain.OrderCompleted,
		Variant:          domain.Variant{Type: domain.VariantPortrait, License: domain.LicenseCommercial, Price: 10},
		UpdatedAt:        time.Now(),
		Buyer:            &domain.Buyer{ID: uuid.New(), Email: "asha@example.com"},
		Product:          &domain.Product{ID: uuid.New(), Name: "Harbor at dusk"},
	}
}

func TestKafkaNotifier_Send(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w}

	require.NoError(t, n.Send(context.Background(), completedOrder()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "order_1", string(w.msgs[0].Key))

	var event OrderConfirmedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &event))
	assert.Equal(t, "pay_1", event.GatewayPaymentID)
	assert.Equal(t, "asha@example.com", event.BuyerEmail)
	assert.Equal(t, "asha", event.BuyerName)
	assert.Equal(t, "Harbor at dusk", event.ProductName)
}

func TestKafkaNotifier_MissingReferences(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w}

	order := completedOrder()
	order.Product = nil
	err := n.Send(context.Background(), order)
	assert.ErrorIs(t, err, domain.ErrNotifyFailed)

	order = completedOrder()
	order.Buyer = nil
	err = n.Send(context.Background(), order)
	assert.ErrorIs(t, err, domain.ErrNotifyFailed)

	assert.Empty(t, w.msgs)
}

func TestKafkaNotifier_PublishError(t *testing.T) {
	n := &KafkaNotifier{writer: &fakeWriter{err: errors.New("broker down")}}
	err := n.Send(context.Background(), completedOrder())
	assert.ErrorIs(t, err, domain.ErrNotifyFailed)
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Asha", displayName(&domain.Buyer{Name: "Asha", Email: "a@x.io"}))
	assert.Equal(t, "a", displayName(&domain.Buyer{Email: "a@x.io"}))
	assert.Equal(t, "Valued Customer", displayName(&domain.Buyer{}))
}
