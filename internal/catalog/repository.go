package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stocklane/stocklane/internal/shared"
)

// Repository reads product and warehouse master data from PostgreSQL.
// The transaction engine never mutates these tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Product fetches one product by id.
func (r *Repository) Product(ctx context.Context, id int64) (Product, error) {
	if r == nil {
		return Product{}, errors.New("catalog repository not initialised")
	}
	var p Product
	err := r.pool.QueryRow(ctx, `SELECT id, sku, name, category_code, price, is_active, batch_tracked, created_at, updated_at
FROM products WHERE id=$1`, id).
		Scan(&p.ID, &p.SKU, &p.Name, &p.CategoryCode, &p.Price, &p.IsActive, &p.BatchTracked, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, shared.ErrNotFound
		}
		return Product{}, err
	}
	return p, nil
}

// Warehouse fetches one warehouse by id.
func (r *Repository) Warehouse(ctx context.Context, id int64) (Warehouse, error) {
	if r == nil {
		return Warehouse{}, errors.New("catalog repository not initialised")
	}
	var w Warehouse
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, location, is_active, created_at, updated_at
FROM warehouses WHERE id=$1`, id).
		Scan(&w.ID, &w.Code, &w.Name, &w.Location, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Warehouse{}, shared.ErrNotFound
		}
		return Warehouse{}, err
	}
	return w, nil
}
