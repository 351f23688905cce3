package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

const (
	defaultReviewListLimit = 10
	maxReviewListLimit     = 100
)

// ReviewService implements the business logic for product reviews. Each user
// can hold at most one review per product; the rule rests on the storage
// unique index, not on an application check.
type ReviewService struct {
	reviewRepo  repository.ReviewRepository
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	producer    *event.Producer
	logger      *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(
	reviewRepo repository.ReviewRepository,
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ReviewService {
	return &ReviewService{
		reviewRepo:  reviewRepo,
		userRepo:    userRepo,
		productRepo: productRepo,
		producer:    producer,
		logger:      logger,
	}
}

// CreateReviewInput holds the parameters for submitting a review.
type CreateReviewInput struct {
	ProductID string
	UserID    string
	Rating    int
	Comment   string
}

// UpdateReviewInput holds the parameters for editing a review.
type UpdateReviewInput struct {
	ReviewID string
	UserID   string
	Rating   int
	Comment  string
}

// Create submits a review on behalf of the authenticated author. The author's
// display name is captured onto the review at write time, so later profile
// changes do not rewrite history.
func (s *ReviewService) Create(ctx context.Context, input CreateReviewInput) (*domain.Review, error) {
	if !domain.ValidRating(input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if input.Comment == "" {
		return nil, apperrors.InvalidInput("comment is required")
	}

	if _, err := s.productRepo.GetByID(ctx, input.ProductID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NotFound("product", input.ProductID)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	author, err := s.userRepo.GetByID(ctx, input.UserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.Unauthorized("session refers to an unknown user")
		}
		return nil, fmt.Errorf("get author: %w", err)
	}

	now := time.Now().UTC()
	review := &domain.Review{
		ID:        uuid.New().String(),
		ProductID: input.ProductID,
		UserID:    input.UserID,
		UserName:  author.Name,
		Rating:    input.Rating,
		Comment:   input.Comment,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	s.publishReview(ctx, s.producer.PublishReviewCreated, review, "review.created")

	s.logger.InfoContext(ctx, "review created",
		slog.String("review_id", review.ID),
		slog.String("product_id", review.ProductID),
		slog.String("user_id", review.UserID),
		slog.Int("rating", review.Rating),
	)

	return review, nil
}

// ListByProduct returns a product's reviews newest-first together with the
// aggregate summary. A product with no reviews lists as empty with a zero
// summary, not as an error.
func (s *ReviewService) ListByProduct(ctx context.Context, productID string) ([]domain.Review, *domain.ReviewSummary, error) {
	reviews, err := s.reviewRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("list reviews: %w", err)
	}

	summary, err := s.reviewRepo.GetSummary(ctx, productID)
	if err != nil {
		return nil, nil, fmt.Errorf("review summary: %w", err)
	}

	return reviews, summary, nil
}

// ListNewest returns the most recent reviews across all products. A
// non-positive limit falls back to the default; oversized limits are capped.
func (s *ReviewService) ListNewest(ctx context.Context, limit int) ([]domain.Review, error) {
	if limit <= 0 {
		limit = defaultReviewListLimit
	}
	if limit > maxReviewListLimit {
		limit = maxReviewListLimit
	}

	reviews, err := s.reviewRepo.ListNewest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list newest reviews: %w", err)
	}

	return reviews, nil
}

// Update edits a review matched by (review id, author id). A miss on the
// pair reads as not-found whether the review is absent or owned by someone
// else.
func (s *ReviewService) Update(ctx context.Context, input UpdateReviewInput) (*domain.Review, error) {
	if !domain.ValidRating(input.Rating) {
		return nil, apperrors.InvalidInput("rating must be between 1 and 5")
	}
	if input.Comment == "" {
		return nil, apperrors.InvalidInput("comment is required")
	}

	review := &domain.Review{
		ID:      input.ReviewID,
		UserID:  input.UserID,
		Rating:  input.Rating,
		Comment: input.Comment,
	}

	if err := s.reviewRepo.UpdateByAuthor(ctx, review); err != nil {
		return nil, fmt.Errorf("update review: %w", err)
	}

	updated, err := s.reviewRepo.GetByID(ctx, input.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("reload review: %w", err)
	}

	s.publishReview(ctx, s.producer.PublishReviewUpdated, updated, "review.updated")

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", updated.ID),
		slog.String("user_id", updated.UserID),
	)

	return updated, nil
}

// Delete removes a review matched by (review id, author id).
func (s *ReviewService) Delete(ctx context.Context, reviewID, userID string) error {
	if err := s.reviewRepo.DeleteByAuthor(ctx, reviewID, userID); err != nil {
		return fmt.Errorf("delete review: %w", err)
	}

	s.publishReview(ctx, s.producer.PublishReviewDeleted, &domain.Review{ID: reviewID, UserID: userID}, "review.deleted")

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("user_id", userID),
	)

	return nil
}

func (s *ReviewService) publishReview(ctx context.Context, publish func(context.Context, *domain.Review) error, review *domain.Review, name string) {
	// Publish failures never fail the request.
	if err := publish(ctx, review); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish "+name+" event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}
}
