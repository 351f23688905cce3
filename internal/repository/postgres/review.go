package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/database"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
// The unique index on (product_id, user_id) enforces the one-review-per-user
// rule even under concurrent submissions.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// Create inserts a new review into the database.
func (r *ReviewRepository) Create(ctx context.Context, rv *domain.Review) error {
	query := `
		INSERT INTO reviews (id, product_id, user_id, user_name, rating, comment, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.pool.Exec(ctx, query,
		rv.ID,
		rv.ProductID,
		rv.UserID,
		rv.UserName,
		rv.Rating,
		rv.Comment,
		rv.CreatedAt,
		rv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Duplicate("you have already reviewed this product")
		}
		return fmt.Errorf("insert review: %w", err)
	}

	return nil
}

// GetByID retrieves a review by its ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := reviewSelect + ` WHERE id = $1`

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.ProductID,
		&rv.UserID,
		&rv.UserName,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// ListByProduct returns all reviews for a product, newest first.
func (r *ReviewRepository) ListByProduct(ctx context.Context, productID string) ([]domain.Review, error) {
	query := reviewSelect + `
		WHERE product_id = $1
		ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

// ListNewest returns the most recent reviews across all products.
func (r *ReviewRepository) ListNewest(ctx context.Context, limit int) ([]domain.Review, error) {
	query := reviewSelect + `
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list newest reviews: %w", err)
	}
	defer rows.Close()

	return collectReviews(rows)
}

// GetSummary returns aggregate rating statistics for a product. The average
// is computed by the database and returned unrounded; a product without
// reviews yields a zero summary.
func (r *ReviewRepository) GetSummary(ctx context.Context, productID string) (*domain.ReviewSummary, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(*)
		FROM reviews
		WHERE product_id = $1`

	var s domain.ReviewSummary
	err := r.pool.QueryRow(ctx, query, productID).Scan(&s.AverageRating, &s.TotalCount)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}

	return &s, nil
}

// UpdateByAuthor modifies a review's rating and comment only if it belongs
// to the given user. A zero row count means the review does not exist or is
// owned by someone else; callers cannot distinguish the two.
func (r *ReviewRepository) UpdateByAuthor(ctx context.Context, rv *domain.Review) error {
	rv.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE reviews
		SET rating = $1, comment = $2, updated_at = $3
		WHERE id = $4 AND user_id = $5`

	ct, err := r.pool.Exec(ctx, query,
		rv.Rating,
		rv.Comment,
		rv.UpdatedAt,
		rv.ID,
		rv.UserID,
	)
	if err != nil {
		return fmt.Errorf("update review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", rv.ID)
	}

	return nil
}

// DeleteByAuthor removes a review only if it belongs to the given user.
func (r *ReviewRepository) DeleteByAuthor(ctx context.Context, id, userID string) error {
	query := `DELETE FROM reviews WHERE id = $1 AND user_id = $2`

	ct, err := r.pool.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("review", id)
	}

	return nil
}

const reviewSelect = `
		SELECT id, product_id, user_id, user_name, rating, comment, created_at, updated_at
		FROM reviews`

func collectReviews(rows pgx.Rows) ([]domain.Review, error) {
	var reviews []domain.Review
	for rows.Next() {
		var rv domain.Review
		if err := rows.Scan(
			&rv.ID,
			&rv.ProductID,
			&rv.UserID,
			&rv.UserName,
			&rv.Rating,
			&rv.Comment,
			&rv.CreatedAt,
			&rv.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan review row: %w", err)
		}
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, nil
}
