package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"pixelmart/internal/domain"
)

// TransitionResult reports whether a conditional write applied. Order is the
// record after the write when Updated, otherwise the current record (nil if absent).
type TransitionResult struct {
	Updated bool
	Order   *domain.Order
}

type OrderRepo interface {
	// FindByGatewayOrderID returns (nil, nil) when no order has the key.
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	// ConditionalComplete sets status=completed and the payment id only while the
	// order is pending, as one atomic statement.
	ConditionalComplete(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (TransitionResult, error)
	// ConditionalFail sets status=failed only while the order is pending.
	ConditionalFail(ctx context.Context, gatewayOrderID string) (TransitionResult, error)
	CreateOrder(ctx context.Context, order *domain.Order) error
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error)
	FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error)
}

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `
	o.id, o.user_id, o.product_id, o.variant_type, o.variant_license, o.variant_price,
	o.gateway_order_id, o.gateway_payment_id, o.amount, o.status, o.download_url, o.preview_url,
	o.created_at, o.updated_at,
	u.id, u.email, u.name, p.id, p.name, p.image_url`

const orderJoins = `
	LEFT JOIN users u ON u.id = o.user_id
	LEFT JOIN products p ON p.id = o.product_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var (
		o                       domain.Order
		buyerID, productID      uuid.NullUUID
		buyerEmail, buyerName   sql.NullString
		productName, productImg sql.NullString
	)
	err := row.Scan(
		&o.ID,
		&o.BuyerID,
		&o.ProductID,
		&o.Variant.Type,
		&o.Variant.License,
		&o.Variant.Price,
		&o.GatewayOrderID,
		&o.GatewayPaymentID,
		&o.Amount,
		&o.Status,
		&o.DownloadURL,
		&o.PreviewURL,
		&o.CreatedAt,
		&o.UpdatedAt,
		&buyerID,
		&buyerEmail,
		&buyerName,
		&productID,
		&productName,
		&productImg,
	)
	if err != nil {
		return nil, err
	}
	if buyerID.Valid {
		o.Buyer = &domain.Buyer{ID: buyerID.UUID, Email: buyerEmail.String, Name: buyerName.String}
	}
	if productID.Valid {
		o.Product = &domain.Product{ID: productID.UUID, Name: productName.String, ImageURL: productImg.String}
	}
	return &o, nil
}

func (r *orderRepo) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT"+orderColumns+" FROM orders o"+orderJoins+" WHERE o.gateway_order_id = $1",
		gatewayOrderID,
	)
	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	return order, nil
}

// The UPDATE carries the pending predicate, so Postgres row locking serializes
// racing callers: the loser re-evaluates the predicate after the winner commits
// and matches zero rows.
const conditionalCompleteQuery = `
	WITH o AS (
		UPDATE orders
		SET status = 'completed',
		    gateway_payment_id = $2,
		    updated_at = now()
		WHERE gateway_order_id = $1 AND status = 'pending'
		RETURNING *
	)
	SELECT` + orderColumns + ` FROM o` + orderJoins

const conditionalFailQuery = `
	WITH o AS (
		UPDATE orders
		SET status = 'failed',
		    updated_at = now()
		WHERE gateway_order_id = $1 AND status = 'pending'
		RETURNING *
	)
	SELECT` + orderColumns + ` FROM o` + orderJoins

func (r *orderRepo) ConditionalComplete(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (TransitionResult, error) {
	return r.transition(ctx, conditionalCompleteQuery, gatewayOrderID, gatewayPaymentID)
}

func (r *orderRepo) ConditionalFail(ctx context.Context, gatewayOrderID string) (TransitionResult, error) {
	return r.transition(ctx, conditionalFailQuery, gatewayOrderID)
}

func (r *orderRepo) transition(ctx context.Context, query, gatewayOrderID string, args ...any) (TransitionResult, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, query, append([]any{gatewayOrderID}, args...)...))
	if err == nil {
		return TransitionResult{Updated: true, Order: order}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return TransitionResult{}, fmt.Errorf("conditional update %s: %w", gatewayOrderID, err)
	}

	current, err := r.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		return TransitionResult{}, err
	}
	return TransitionResult{Updated: false, Order: current}, nil
}

func (r *orderRepo) CreateOrder(ctx context.Context, order *domain.Order) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (
			id, user_id, product_id, variant_type, variant_license, variant_price,
			gateway_order_id, amount, status, download_url, preview_url, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		order.ID, order.BuyerID, order.ProductID, order.Variant.Type, order.Variant.License, order.Variant.Price,
		order.GatewayOrderID, order.Amount, order.Status, order.DownloadURL, order.PreviewURL, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		return err
	}
	return nil
}

func (r *orderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]domain.Order, error) {
	return r.query(ctx,
		"SELECT"+orderColumns+" FROM orders o"+orderJoins+" WHERE o.user_id = $1 ORDER BY o.created_at DESC",
		buyerID,
	)
}

func (r *orderRepo) FindStalePending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.Order, error) {
	return r.query(ctx,
		"SELECT"+orderColumns+" FROM orders o"+orderJoins+
			" WHERE o.status = $1 AND o.created_at < $2 ORDER BY o.created_at LIMIT $3",
		domain.OrderPending, time.Now().Add(-olderThan), limit,
	)
}

func (r *orderRepo) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []domain.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}
