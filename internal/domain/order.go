package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCompleted OrderStatus = "completed"
	OrderFailed    OrderStatus = "failed"
)

// IsFinal reports whether no further transition may leave s.
func (s OrderStatus) IsFinal() bool {
	return s == OrderCompleted || s == OrderFailed
}

type VariantType string

const (
	VariantSquare   VariantType = "SQUARE"
	VariantPortrait VariantType = "PORTRAIT"
	VariantWide     VariantType = "WIDE"
)

type License string

const (
	LicensePersonal   License = "personal"
	LicenseCommercial License = "commercial"
)

type Variant struct {
	Type    VariantType `json:"type"`
	License License     `json:"license"`
	Price   float64     `json:"price"`
}

type Buyer struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
	Name  string    `json:"name,omitempty"`
}

type Product struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	ImageURL string    `json:"imageUrl,omitempty"`
}

// Order is the unit of reconciliation. GatewayOrderID is the reconciliation key.
// Buyer and Product carry reference data joined at read time; they are nil when the
// referenced row is missing.
type Order struct {
	ID               uuid.UUID   `json:"id"`
	BuyerID          uuid.UUID   `json:"buyerId"`
	ProductID        uuid.UUID   `json:"productId"`
	Variant          Variant     `json:"variant"`
	GatewayOrderID   string      `json:"gatewayOrderId"`
	GatewayPaymentID *string     `json:"gatewayPaymentId,omitempty"`
	Amount           float64     `json:"amount"`
	Status           OrderStatus `json:"status"`
	DownloadURL      string      `json:"downloadUrl,omitempty"`
	PreviewURL       string      `json:"previewUrl,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`

	Buyer   *Buyer   `json:"buyer,omitempty"`
	Product *Product `json:"product,omitempty"`
}

// PaymentID returns the settled gateway payment id, or "" while unsettled.
func (o *Order) PaymentID() string {
	if o.GatewayPaymentID == nil {
		return ""
	}
	return *o.GatewayPaymentID
}
