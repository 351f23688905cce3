package domain

import (
	"time"
)

// Review represents a product review submitted by a user. At most one review
// exists per (product, user) pair; the storage layer enforces this with a
// unique index. UserName is captured from the author's user record at write
// time so listings render without a join.
type Review struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	UserID    string    `json:"user_id"`
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReviewSummary contains aggregate review statistics for a product. The
// average is the exact arithmetic mean of the stored ratings, unrounded.
type ReviewSummary struct {
	AverageRating float64 `json:"average_rating"`
	TotalCount    int     `json:"total_count"`
}

// ValidRating checks that a rating falls within the accepted 1..5 range.
func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}
