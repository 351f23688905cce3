package http

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/service"
)

// CatalogHandler handles HTTP requests for public catalog endpoints.
type CatalogHandler struct {
	service *service.CatalogService
	logger  *slog.Logger
}

// NewCatalogHandler creates a new catalog HTTP handler.
func NewCatalogHandler(svc *service.CatalogService, logger *slog.Logger) *CatalogHandler {
	return &CatalogHandler{service: svc, logger: logger}
}

// List handles GET /api/products?sortBy=&order=&limit=
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, response{
				Error: &errorResponse{Code: "INVALID_INPUT", Message: "limit must be an integer"},
			})
			return
		}
		limit = parsed
	}

	products, err := h.service.List(r.Context(), service.ListProductsInput{
		SortBy: q.Get("sortBy"),
		Order:  q.Get("order"),
		Limit:  limit,
	})
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: products})
}

// Related handles GET /api/products/related/{productId}
func (h *CatalogHandler) Related(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

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

	products, err := h.service.Related(r.Context(), productID, limit)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: products})
}

// GetByID handles GET /api/products/{productId}
func (h *CatalogHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	product, err := h.service.GetByID(r.Context(), productID)
	if err != nil {
		writeAppError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response{Data: product})
}
