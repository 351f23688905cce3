package domain

import (
	"time"
)

// Product sort field constants for catalog listings.
const (
	ProductSortSold      = "sold"
	ProductSortCreatedAt = "createdAt"
)

// Product represents an item in the storefront catalog.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	Quantity    int       `json:"quantity"`
	Sold        int       `json:"sold"`
	ImageURL    string    `json:"image_url,omitempty"`
	Shipping    bool      `json:"shipping"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidSortFields returns the sort fields accepted by catalog listings.
func ValidSortFields() []string {
	return []string{ProductSortSold, ProductSortCreatedAt}
}

// IsValidSortField checks whether the given field is an accepted sort field.
func IsValidSortField(field string) bool {
	for _, f := range ValidSortFields() {
		if f == field {
			return true
		}
	}
	return false
}
