package repo

import (
	"context"
	"database/sql"

	"pixelmart/internal/domain"
)

// CatalogRepo writes the buyer and product rows that orders reference.
// Catalog management proper lives outside this service.
type CatalogRepo interface {
	CreateBuyer(ctx context.Context, buyer *domain.Buyer) error
	CreateProduct(ctx context.Context, product *domain.Product) error
}

type catalogRepo struct {
	db *sql.DB
}

func NewCatalogRepo(db *sql.DB) CatalogRepo {
	return &catalogRepo{db: db}
}

func (r *catalogRepo) CreateBuyer(ctx context.Context, buyer *domain.Buyer) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name) VALUES ($1, $2, $3)",
		buyer.ID, buyer.Email, buyer.Name,
	)
	return err
}

func (r *catalogRepo) CreateProduct(ctx context.Context, product *domain.Product) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO products (id, name, image_url) VALUES ($1, $2, $3)",
		product.ID, product.Name, product.ImageURL,
	)
	return err
}
