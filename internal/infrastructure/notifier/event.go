package notifier

import (
	"fmt"
	"strings"
	"time"

	"pixelmart/internal/domain"
)

// OrderConfirmedEvent is the confirmation message handed to the mailer.
type OrderConfirmedEvent struct {
	OrderID          string    `json:"order_id"`
	GatewayOrderID   string    `json:"gateway_order_id"`
	GatewayPaymentID string    `json:"gateway_payment_id"`
	BuyerEmail       string    `json:"buyer_email"`
	BuyerName        string    `json:"buyer_name"`
	ProductName      string    `json:"product_name"`
	VariantType      string    `json:"variant_type"`
	License          string    `json:"license"`
	Amount           float64   `json:"amount"`
	Subject          string    `json:"subject"`
	ConfirmedAt      time.Time `json:"confirmed_at"`
}

// NewOrderConfirmedEvent builds the confirmation for a completed order. The buyer
// email and product name must have been joined onto the order.
func NewOrderConfirmedEvent(order *domain.Order) (OrderConfirmedEvent, error) {
	if order.Buyer == nil || order.Buyer.Email == "" {
		return OrderConfirmedEvent{}, fmt.Errorf("%w: order %s has no buyer email", domain.ErrNotifyFailed, order.GatewayOrderID)
	}
	if order.Product == nil {
		return OrderConfirmedEvent{}, fmt.Errorf("%w: order %s has no product", domain.ErrNotifyFailed, order.GatewayOrderID)
	}

	return OrderConfirmedEvent{
		OrderID:          order.ID.String(),
		GatewayOrderID:   order.GatewayOrderID,
		GatewayPaymentID: order.PaymentID(),
		BuyerEmail:       order.Buyer.Email,
		BuyerName:        displayName(order.Buyer),
		ProductName:      order.Product.Name,
		VariantType:      string(order.Variant.Type),
		License:          string(order.Variant.License),
		Amount:           order.Amount,
		Subject:          "Order Confirmation - Payment Successful",
		ConfirmedAt:      order.UpdatedAt,
	}, nil
}

func displayName(b *domain.Buyer) string {
	if b.Name != "" {
		return b.Name
	}
	if local, _, ok := strings.Cut(b.Email, "@"); ok && local != "" {
		return local
	}
	return "Valued Customer"
}
