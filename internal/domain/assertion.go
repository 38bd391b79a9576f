package domain

// Source identifies which ingress path delivered a payment assertion.
type Source string

const (
	SourceClient  Source = "client"
	SourceWebhook Source = "webhook"
)

// PaymentAssertion is a claim from the gateway that a payment settled an order.
// For SourceClient the signature covers "GatewayOrderID|GatewayPaymentID";
// for SourceWebhook it covers RawBody byte for byte.
type PaymentAssertion struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Source           Source
	Signature        string
	RawBody          []byte
}
