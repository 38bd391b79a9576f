package signature

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerifier_Client(t *testing.T) {
	v := NewVerifier("key_secret", "webhook_secret")
	sig := Sign(ClientPayload("order_1", "pay_1"), []byte("key_secret"))

	tests := []struct {
		name      string
		orderID   string
		paymentID string
		sig       string
		want      bool
	}{
		{name: "valid", orderID: "order_1", paymentID: "pay_1", sig: sig, want: true},
		{name: "other payment id", orderID: "order_1", paymentID: "pay_2", sig: sig, want: false},
		{name: "other order id", orderID: "order_2", paymentID: "pay_1", sig: sig, want: false},
		{name: "empty signature", orderID: "order_1", paymentID: "pay_1", sig: "", want: false},
		{name: "not hex", orderID: "order_1", paymentID: "pay_1", sig: "zz-not-hex", want: false},
		{name: "truncated", orderID: "order_1", paymentID: "pay_1", sig: sig[:10], want: false},
		{
			name: "signed with webhook secret", orderID: "order_1", paymentID: "pay_1",
			sig:  Sign(ClientPayload("order_1", "pay_1"), []byte("webhook_secret")),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.VerifyClient(tt.orderID, tt.paymentID, tt.sig))
		})
	}
}

func TestVerifier_WebhookRejectsAnyByteFlip(t *testing.T) {
	v := NewVerifier("key_secret", "webhook_secret")
	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_1"}}}}`)
	sig := Sign(body, []byte("webhook_secret"))

	assert.True(t, v.VerifyWebhook(body, sig))

	for i := range body {
		flipped := append([]byte(nil), body...)
		flipped[i] ^= 0x01
		assert.False(t, v.VerifyWebhook(flipped, sig), "byte %d flipped", i)
	}
}

func TestVerifier_EmptySecretNeverVerifies(t *testing.T) {
	v := NewVerifier("", "")
	assert.False(t, v.VerifyClient("order_1", "pay_1", Sign(ClientPayload("order_1", "pay_1"), nil)))
	assert.False(t, v.VerifyWebhook([]byte("{}"), Sign([]byte("{}"), nil)))
}
