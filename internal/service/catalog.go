package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const (
	defaultProductListLimit = 6
	maxProductListLimit     = 100
)

// CatalogService serves read-only product listings for the storefront.
type CatalogService struct {
	productRepo repository.ProductRepository
	logger      *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(productRepo repository.ProductRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		productRepo: productRepo,
		logger:      logger,
	}
}

// ListProductsInput narrows catalog listings.
type ListProductsInput struct {
	SortBy string
	Order  string
	Limit  int
}

// List returns products ordered by the requested sort field. An empty sort
// falls back to newest-first.
func (s *CatalogService) List(ctx context.Context, input ListProductsInput) ([]domain.Product, error) {
	if input.SortBy == "" {
		input.SortBy = domain.ProductSortCreatedAt
	}
	if !domain.IsValidSortField(input.SortBy) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unsupported sort field %q", input.SortBy))
	}
	if input.Limit <= 0 {
		input.Limit = defaultProductListLimit
	}
	if input.Limit > maxProductListLimit {
		input.Limit = maxProductListLimit
	}

	products, err := s.productRepo.List(ctx, repository.ProductListFilter{
		SortBy: input.SortBy,
		Order:  input.Order,
		Limit:  input.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	return products, nil
}

// Related returns products sharing the anchor product's category, excluding
// the anchor itself.
func (s *CatalogService) Related(ctx context.Context, productID string, limit int) ([]domain.Product, error) {
	if limit <= 0 {
		limit = defaultProductListLimit
	}
	if limit > maxProductListLimit {
		limit = maxProductListLimit
	}

	anchor, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}

	products, err := s.productRepo.ListRelated(ctx, anchor.Category, anchor.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list related products: %w", err)
	}

	return products, nil
}

// GetByID returns a single product.
func (s *CatalogService) GetByID(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("get product: %w", err)
	}
	return product, nil
}
