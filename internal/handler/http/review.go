package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// CreateReviewRequest is the JSON request body for submitting a review.
type CreateReviewRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Rating    int    `json:"rating" validate:"required,min=1,max=5"`
	Comment   string `json:"comment" validate:"required,min=1,max=2000"`
}

// UpdateReviewRequest is the JSON request body for editing a review.
type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=1,max=2000"`
}

// ReviewListResponse bundles a product's reviews with its aggregate summary.
type ReviewListResponse struct {
	Reviews any `json:"reviews"`
	Summary any `json:"summary"`
}

// ReviewListItem is the public projection of a review in listings. Record
// identifiers stay out of the read surface; only the author-scoped mutation
// routes deal in review IDs.
type ReviewListItem struct {
	UserName  string    `json:"user_name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func reviewListItems(reviews []domain.Review) []ReviewListItem {
	items := make([]ReviewListItem, 0, len(reviews))
	for _, review := range reviews {
		items = append(items, ReviewListItem{
			UserName:  review.UserName,
			Rating:    review.Rating,
			Comment:   review.Comment,
			CreatedAt: review.CreatedAt,
		})
	}
	return items
}

// Create handles POST /api/review/create/{userId}. The path userId is part
// of the legacy route shape; it must match the authenticated session.
func (h *ReviewHandler) Create(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	pathUserID := chi.URLParam(r, "userId")
	sessionUserID := middleware.UserIDFromContext(r.Context())
	if pathUserID != sessionUserID {
		writeJSON(w, http.StatusForbidden, response{
			Error: &errorResponse{Code: "FORBIDDEN", Message: "cannot create a review for another user"},
		})
		return
	}

	var req CreateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	review, err := h.service.Create(r.Context(), service.CreateReviewInput{
		ProductID: req.ProductID,
		UserID:    sessionUserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: review})
}

// GetByProduct handles GET /api/reviews/product/{productId}. Public.
func (h *ReviewHandler) GetByProduct(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	reviews, summary, err := h.service.ListByProduct(r.Context(), productID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: ReviewListResponse{
		Reviews: reviewListItems(reviews),
		Summary: summary,
	}})
}

// List handles GET /api/reviews?limit=N. Public.
func (h *ReviewHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{
				Error: &errorResponse{Code: "INVALID_INPUT", Message: "limit must be an integer"},
			})
			return
		}
		limit = parsed
	}

	reviews, err := h.service.ListNewest(r.Context(), limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: reviewListItems(reviews)})
}

// Update handles PUT /api/review/{reviewId}/{userId}.
func (h *ReviewHandler) Update(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	reviewID := chi.URLParam(r, "reviewId")
	pathUserID := chi.URLParam(r, "userId")
	sessionUserID := middleware.UserIDFromContext(r.Context())
	if pathUserID != sessionUserID {
		writeJSON(w, http.StatusForbidden, response{
			Error: &errorResponse{Code: "FORBIDDEN", Message: "cannot modify another user's review"},
		})
		return
	}

	var req UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, response{
			Error: &errorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		writeValidationError(w, err)
		return
	}

	review, err := h.service.Update(r.Context(), service.UpdateReviewInput{
		ReviewID: reviewID,
		UserID:   sessionUserID,
		Rating:   req.Rating,
		Comment:  req.Comment,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: review})
}

// Delete handles DELETE /api/review/{reviewId}/{userId}.
func (h *ReviewHandler) Delete(w http.ResponseWriter, r *http.Request) {
	reviewID := chi.URLParam(r, "reviewId")
	pathUserID := chi.URLParam(r, "userId")
	sessionUserID := middleware.UserIDFromContext(r.Context())
	if pathUserID != sessionUserID {
		writeJSON(w, http.StatusForbidden, response{
			Error: &errorResponse{Code: "FORBIDDEN", Message: "cannot delete another user's review"},
		})
		return
	}

	if err := h.service.Delete(r.Context(), reviewID, sessionUserID); err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: map[string]string{"id": reviewID, "status": "deleted"}})
}
