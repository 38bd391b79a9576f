package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixelmart/internal/domain"
	"pixelmart/internal/infrastructure/payment"
	"pixelmart/internal/repo"
)

var (
	ErrInvalidVariant        = errors.New("invalid variant")
	ErrOrderCreationDisabled = errors.New("order creation disabled: no payment gateway")
)

type CreateOrderInput struct {
	BuyerID   uuid.UUID
	ProductID uuid.UUID
	Variant   domain.Variant
}

// OrderService owns the pending row created before payment and the buyer's
// order history. Status changes after creation belong to ReconcileService.
type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error)
	ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error)
}

type orderService struct {
	orderRepo  repo.OrderRepo
	paymentGtw payment.PaymentGateway
}

func NewOrderService(orderRepo repo.OrderRepo, paymentGtw payment.PaymentGateway) OrderService {
	return &orderService{
		orderRepo:  orderRepo,
		paymentGtw: paymentGtw,
	}
}

func validateVariant(v domain.Variant) error {
	switch v.Type {
	case domain.VariantSquare, domain.VariantPortrait, domain.VariantWide:
	default:
		return fmt.Errorf("%w: type %q", ErrInvalidVariant, v.Type)
	}
	switch v.License {
	case domain.LicensePersonal, domain.LicenseCommercial:
	default:
		return fmt.Errorf("%w: license %q", ErrInvalidVariant, v.License)
	}
	if v.Price < 0 {
		return fmt.Errorf("%w: negative price", ErrInvalidVariant)
	}
	return nil
}

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if s.paymentGtw == nil {
		return nil, ErrOrderCreationDisabled
	}
	if err := validateVariant(in.Variant); err != nil {
		return nil, err
	}

	id := uuid.New()
	gatewayOrderID, err := s.paymentGtw.CreateOrder(ctx, in.Variant.Price, id.String())
	if err != nil {
		return nil, fmt.Errorf("create gateway order: %w", err)
	}

	now := time.Now()
	order := &domain.Order{
		ID:             id,
		BuyerID:        in.BuyerID,
		ProductID:      in.ProductID,
		Variant:        in.Variant,
		GatewayOrderID: gatewayOrderID,
		Amount:         in.Variant.Price,
		Status:         domain.OrderPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	return order, nil
}

func (s *orderService) ListBuyerOrders(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error) {
	return s.orderRepo.ListByBuyer(ctx, buyerID)
}
