package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the catalog.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, category, price, quantity, sold, image_url, shipping, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Description,
		p.Category,
		p.Price,
		p.Quantity,
		p.Sold,
		p.ImageURL,
		p.Shipping,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}

	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	query := productSelect + ` WHERE id = $1`

	var p domain.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Price,
		&p.Quantity,
		&p.Sold,
		&p.ImageURL,
		&p.Shipping,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan product: %w", err)
	}

	return &p, nil
}

// List returns products ordered by the filter's sort field. Sort column and
// direction are mapped from a fixed allowlist, never interpolated from
// caller input.
func (r *ProductRepository) List(ctx context.Context, filter repository.ProductListFilter) ([]domain.Product, error) {
	column := "created_at"
	if filter.SortBy == domain.ProductSortSold {
		column = "sold"
	}

	direction := "DESC"
	if filter.Order == "asc" {
		direction = "ASC"
	}

	query := fmt.Sprintf("%s ORDER BY %s %s LIMIT $1", productSelect, column, direction)

	rows, err := r.pool.Query(ctx, query, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// ListRelated returns products in the same category, excluding the given
// product.
func (r *ProductRepository) ListRelated(ctx context.Context, category, excludeID string, limit int) ([]domain.Product, error) {
	query := productSelect + `
		WHERE category = $1 AND id != $2
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, category, excludeID, limit)
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

const productSelect = `
		SELECT id, name, description, category, price, quantity, sold, image_url, shipping, created_at, updated_at
		FROM products`

func collectProducts(rows pgx.Rows) ([]domain.Product, error) {
	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(
			&p.ID,
			&p.Name,
			&p.Description,
			&p.Category,
			&p.Price,
			&p.Quantity,
			&p.Sold,
			&p.ImageURL,
			&p.Shipping,
			&p.CreatedAt,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate product rows: %w", err)
	}

	if products == nil {
		products = []domain.Product{}
	}

	return products, nil
}
