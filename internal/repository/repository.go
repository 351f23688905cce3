package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// UserRepository defines the interface for user persistence operations.
type UserRepository interface {
	// Create inserts a new user into the store.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by their unique identifier.
	GetByID(ctx context.Context, id string) (*domain.User, error)

	// GetByEmail retrieves a user by their email address.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// GetByFirebaseUID retrieves a user by their external subject identifier.
	GetByFirebaseUID(ctx context.Context, uid string) (*domain.User, error)

	// LinkFirebaseUID attaches an external subject identifier to an existing
	// user and marks the account externally authenticated.
	LinkFirebaseUID(ctx context.Context, userID, uid string) error

	// Update modifies an existing user in the store.
	Update(ctx context.Context, user *domain.User) error
}

// ReviewRepository defines the interface for review persistence operations.
type ReviewRepository interface {
	// Create inserts a new review. Returns a duplicate error when the user
	// has already reviewed the product.
	Create(ctx context.Context, review *domain.Review) error

	// GetByID retrieves a review by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Review, error)

	// ListByProduct returns all reviews for a product, newest first.
	ListByProduct(ctx context.Context, productID string) ([]domain.Review, error)

	// ListNewest returns the most recent reviews across all products.
	ListNewest(ctx context.Context, limit int) ([]domain.Review, error)

	// GetSummary returns aggregate rating statistics for a product.
	GetSummary(ctx context.Context, productID string) (*domain.ReviewSummary, error)

	// UpdateByAuthor modifies a review only if it belongs to the given user.
	UpdateByAuthor(ctx context.Context, review *domain.Review) error

	// DeleteByAuthor removes a review only if it belongs to the given user.
	DeleteByAuthor(ctx context.Context, id, userID string) error
}

// ProductListFilter narrows and orders catalog listings.
type ProductListFilter struct {
	SortBy string
	Order  string
	Limit  int
}

// ProductRepository defines the interface for catalog persistence operations.
type ProductRepository interface {
	// Create inserts a new product into the catalog.
	Create(ctx context.Context, product *domain.Product) error

	// GetByID retrieves a product by its unique identifier.
	GetByID(ctx context.Context, id string) (*domain.Product, error)

	// List returns products ordered by the filter's sort field.
	List(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)

	// ListRelated returns products sharing a category, excluding the given
	// product.
	ListRelated(ctx context.Context, category, excludeID string, limit int) ([]domain.Product, error)
}
