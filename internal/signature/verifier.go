package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Verifier checks that payment assertions were signed by the gateway.
// The client path and the webhook path are bound to different secrets.
type Verifier struct {
	keySecret     []byte
	webhookSecret []byte
}

func NewVerifier(keySecret, webhookSecret string) *Verifier {
	return &Verifier{
		keySecret:     []byte(keySecret),
		webhookSecret: []byte(webhookSecret),
	}
}

// ClientPayload is the canonical signing input for the client callback.
func ClientPayload(gatewayOrderID, gatewayPaymentID string) []byte {
	return []byte(gatewayOrderID + "|" + gatewayPaymentID)
}

// Sign returns the lowercase hex HMAC-SHA256 of payload under secret.
func Sign(payload []byte, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether claimed is the hex HMAC-SHA256 of payload under secret.
// It never panics; any decoding problem yields false.
func Verify(payload []byte, claimed string, secret []byte) bool {
	if len(secret) == 0 || claimed == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(claimed))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hmac.Equal(got, mac.Sum(nil))
}

func (v *Verifier) VerifyClient(gatewayOrderID, gatewayPaymentID, claimed string) bool {
	return Verify(ClientPayload(gatewayOrderID, gatewayPaymentID), claimed, v.keySecret)
}

// VerifyWebhook checks claimed against the untouched request body.
func (v *Verifier) VerifyWebhook(rawBody []byte, claimed string) bool {
	return Verify(rawBody, claimed, v.webhookSecret)
}
