// Package rest provides HTTP handlers for catalog queries.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	perrors "github.com/abgdnv/fleximart/internal/catalog/errors"
	"github.com/abgdnv/fleximart/internal/catalog/service"
	"github.com/abgdnv/fleximart/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const readinessTimeout = 2 * time.Second

// Handler serves the catalog API. Request ids reach log records through the
// context, see logger.ContextHandler.
type Handler struct {
	service  service.CatalogService
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler creates a new catalog Handler with the provided service.
func NewHandler(service service.CatalogService, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		logger:   logger.With("component", "rest"),
	}
}

// AddReviewRequest is the body of POST /api/v1/products/{productId}/reviews.
type AddReviewRequest struct {
	User    string     `json:"user"    validate:"required,max=64"`
	Rating  float64    `json:"rating"  validate:"required,min=1,max=5"`
	Comment string     `json:"comment" validate:"max=2000"`
	Date    *time.Time `json:"date"`
}

// RegisterRoutes registers the HTTP routes for the catalog service.
func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", h.FindByCategoryUnderPrice)
		r.Get("/ratings", h.AverageRatingByProduct)
		r.Post("/{productId}/reviews", h.AddReview)
	})
	r.Get("/api/v1/categories/prices", h.AveragePriceByCategory)

	r.Get("/healthz", h.HealthCheck)
	r.Get("/readyz", h.Readiness)
}

// FindByCategoryUnderPrice lists products of a category cheaper than maxPrice.
func (h *Handler) FindByCategoryUnderPrice(w http.ResponseWriter, r *http.Request) {
	mLogger := h.logger
	category, ok := web.ParseRequiredString(r, w, mLogger, "category")
	if !ok {
		return
	}
	maxPrice, ok := web.ParseFloatGte(r, w, mLogger, "maxPrice", 0)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to find products by category", "category", category, "maxPrice", maxPrice)
	list, err := h.service.FindByCategoryUnderPrice(r.Context(), category, maxPrice)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to fetch products")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully retrieved products", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// AverageRatingByProduct lists reviewed products rated at or above minAvgRating.
func (h *Handler) AverageRatingByProduct(w http.ResponseWriter, r *http.Request) {
	mLogger := h.logger
	minAvgRating, ok := web.ParseOptionalFloatGte(r, w, mLogger, "minAvgRating", 0, service.DefaultMinAvgRating)
	if !ok {
		return
	}

	mLogger.DebugContext(r.Context(), "Received request to aggregate ratings", "minAvgRating", minAvgRating)
	list, err := h.service.AverageRatingByProduct(r.Context(), minAvgRating)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to aggregate ratings")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully aggregated ratings", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// AddReview appends a review to a product.
func (h *Handler) AddReview(w http.ResponseWriter, r *http.Request) {
	mLogger := h.logger
	productID, ok := web.ParsePathValue(w, r, mLogger, "productId")
	if !ok {
		return
	}

	var req AddReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		mLogger.ErrorContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, mLogger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		web.RespondValidationError(w, mLogger, err)
		return
	}

	review := service.ReviewDto{User: req.User, Rating: req.Rating, Comment: req.Comment}
	if req.Date != nil {
		review.Date = *req.Date
	}

	mLogger.DebugContext(r.Context(), "Received request to add review", "productId", productID, "user", req.User)
	ack, err := h.service.AddReview(r.Context(), productID, review)
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, fmt.Sprintf("Failed to add review to product %s", productID))
		return
	}
	if ack.MatchedCount == 0 {
		mLogger.WarnContext(r.Context(), "Review targeted an unknown product", "productId", productID)
	} else {
		mLogger.InfoContext(r.Context(), "Review added successfully", "productId", productID)
	}
	web.RespondJSON(w, mLogger, http.StatusOK, ack)
}

// AveragePriceByCategory lists price statistics per category, highest average first.
func (h *Handler) AveragePriceByCategory(w http.ResponseWriter, r *http.Request) {
	mLogger := h.logger
	mLogger.DebugContext(r.Context(), "Received request to aggregate prices")
	list, err := h.service.AveragePriceByCategory(r.Context())
	if err != nil {
		h.respondServiceError(w, r, mLogger, err, "Failed to aggregate prices")
		return
	}
	mLogger.DebugContext(r.Context(), "Successfully aggregated prices", "count", len(list))
	web.RespondJSON(w, mLogger, http.StatusOK, list)
}

// HealthCheck is a simple health check endpoint.
func (h *Handler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// Readiness reports 200 once the store answers a ping.
func (h *Handler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()
	if err := h.service.Ping(ctx); err != nil {
		h.logger.WarnContext(r.Context(), "Store is not ready", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// respondServiceError maps catalog errors onto HTTP statuses.
func (h *Handler) respondServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error, message string) {
	var shapeErr *perrors.DataShapeError
	switch {
	case errors.Is(err, perrors.ErrInvalidArgument):
		logger.WarnContext(r.Context(), "Invalid argument", "error", err)
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, perrors.ErrConnection):
		logger.ErrorContext(r.Context(), "Catalog store unreachable", "error", err)
		web.RespondError(w, logger, http.StatusServiceUnavailable, "Catalog store unavailable")
	case errors.As(err, &shapeErr):
		logger.ErrorContext(r.Context(), "Unexpected document shape", "productId", shapeErr.ProductID, "field", shapeErr.Field, "error", err)
		web.RespondError(w, logger, http.StatusUnprocessableEntity, shapeErr.Error())
	default:
		logger.ErrorContext(r.Context(), message, "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, message)
	}
}
