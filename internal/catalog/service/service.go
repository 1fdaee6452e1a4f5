// Package service provides the catalog operations exposed to transports.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	perrors "github.com/abgdnv/fleximart/internal/catalog/errors"
	"github.com/abgdnv/fleximart/internal/catalog/store"
	"github.com/abgdnv/fleximart/pkg/messaging"
	"github.com/abgdnv/fleximart/pkg/messaging/events"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
)

// DefaultMinAvgRating is used when a caller does not choose a rating threshold.
const DefaultMinAvgRating = 4.0

// CatalogService defines the catalog queries.
// Inputs are shape-checked, then forwarded to the store in a single round trip.
type CatalogService interface {
	// FindByCategoryUnderPrice lists products of a category priced strictly below maxPrice.
	// Returns an empty slice if no product matches.
	FindByCategoryUnderPrice(ctx context.Context, category string, maxPrice float64) ([]ProductSummaryDto, error)

	// AverageRatingByProduct lists reviewed products whose mean rating is at least minAvgRating.
	AverageRatingByProduct(ctx context.Context, minAvgRating float64) ([]ProductRatingDto, error)

	// AddReview appends a review to a product. An unknown product yields a zero-count acknowledgement.
	AddReview(ctx context.Context, productID string, review ReviewDto) (*UpdateAckDto, error)

	// AveragePriceByCategory lists mean price and product count per category, highest mean first.
	AveragePriceByCategory(ctx context.Context) ([]CategoryPriceDto, error)

	// Ping reports whether the store is reachable.
	Ping(ctx context.Context) error
}

// Service implements CatalogService.
type Service struct {
	repository   store.CatalogStore
	validate     *validator.Validate
	now          func() time.Time
	reviewsAdded metric.Int64Counter
	storeErrors  metric.Int64Counter
	publisher    messaging.Publisher
}

// Option customises a Service.
type Option func(*Service)

// WithPublisher emits a ReviewAddedEvent after every review appended to an existing product.
func WithPublisher(p messaging.Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// NewService creates a new instance of CatalogService with the provided store.
func NewService(repo store.CatalogStore, opts ...Option) *Service {
	meter := otel.Meter("catalog-service")
	reviewsAdded, err := meter.Int64Counter("catalog_reviews_added", metric.WithDescription("Reviews appended, by whether the product existed"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_reviews_added counter: %v", err))
	}
	storeErrors, err := meter.Int64Counter("catalog_store_errors", metric.WithDescription("Failed store round trips by operation and error kind"))
	if err != nil {
		panic(fmt.Sprintf("failed to create catalog_store_errors counter: %v", err))
	}
	s := &Service{
		repository:   repo,
		validate:     validator.New(),
		now:          time.Now,
		reviewsAdded: reviewsAdded,
		storeErrors:  storeErrors,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProductSummaryDto is a row of FindByCategoryUnderPrice.
type ProductSummaryDto struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int64   `json:"stock"`
}

// ProductRatingDto is a row of AverageRatingByProduct.
type ProductRatingDto struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	AvgRating float64 `json:"avgRating"`
}

// CategoryPriceDto is a row of AveragePriceByCategory.
type CategoryPriceDto struct {
	Category     string  `json:"category"`
	AvgPrice     float64 `json:"avgPrice"`
	ProductCount int64   `json:"productCount"`
}

// ReviewDto is a review to append. Rating range is the caller's responsibility.
// A zero Date is replaced with the current UTC time.
type ReviewDto struct {
	User    string    `json:"user"    validate:"required"`
	Rating  float64   `json:"rating"`
	Comment string    `json:"comment"`
	Date    time.Time `json:"date"`
}

// UpdateAckDto reports the outcome of AddReview.
type UpdateAckDto struct {
	MatchedCount  int64 `json:"matchedCount"`
	ModifiedCount int64 `json:"modifiedCount"`
}

type categoryQuery struct {
	Category string  `validate:"required"`
	MaxPrice float64 `validate:"gte=0"`
}

type ratingQuery struct {
	MinAvgRating float64 `validate:"gte=0"`
}

type reviewCommand struct {
	ProductID string `validate:"required"`
	Review    ReviewDto
}

// FindByCategoryUnderPrice validates the query and returns the matching products.
func (s *Service) FindByCategoryUnderPrice(ctx context.Context, category string, maxPrice float64) ([]ProductSummaryDto, error) {
	if err := s.check(categoryQuery{Category: category, MaxPrice: maxPrice}); err != nil {
		return nil, err
	}
	products, err := s.repository.FindByCategoryUnderPrice(ctx, category, maxPrice)
	if err != nil {
		s.recordStoreError(ctx, "find_by_category_under_price", err)
		return nil, fmt.Errorf("failed to fetch products of category %q under %v: %w", category, maxPrice, err)
	}
	dtos := make([]ProductSummaryDto, len(products))
	for i, p := range products {
		dtos[i] = ProductSummaryDto{Name: p.Name, Price: p.Price, Stock: p.Stock}
	}
	return dtos, nil
}

// AverageRatingByProduct validates the threshold and returns products rated at or above it.
func (s *Service) AverageRatingByProduct(ctx context.Context, minAvgRating float64) ([]ProductRatingDto, error) {
	if err := s.check(ratingQuery{MinAvgRating: minAvgRating}); err != nil {
		return nil, err
	}
	ratings, err := s.repository.AverageRatingByProduct(ctx, minAvgRating)
	if err != nil {
		s.recordStoreError(ctx, "average_rating_by_product", err)
		return nil, fmt.Errorf("failed to aggregate ratings: %w", err)
	}
	dtos := make([]ProductRatingDto, len(ratings))
	for i, r := range ratings {
		dtos[i] = ProductRatingDto{ProductID: r.ProductID, Name: r.Name, AvgRating: r.AvgRating}
	}
	return dtos, nil
}

// AddReview validates the review and appends it to the product.
func (s *Service) AddReview(ctx context.Context, productID string, review ReviewDto) (*UpdateAckDto, error) {
	if err := s.check(reviewCommand{ProductID: productID, Review: review}); err != nil {
		return nil, err
	}
	date := review.Date
	if date.IsZero() {
		date = s.now()
	}
	stored := store.Review{
		UserID:  review.User,
		Rating:  review.Rating,
		Comment: review.Comment,
		Date:    date.UTC(),
	}
	ack, err := s.repository.AddReview(ctx, productID, stored)
	if err != nil {
		s.recordStoreError(ctx, "add_review", err)
		return nil, fmt.Errorf("failed to add review to product %s: %w", productID, err)
	}
	s.reviewsAdded.Add(ctx, 1, metric.WithAttributes(attribute.Bool("matched", ack.MatchedCount > 0)))
	if ack.MatchedCount > 0 {
		s.publishReviewAdded(ctx, productID, stored)
	}
	return &UpdateAckDto{MatchedCount: ack.MatchedCount, ModifiedCount: ack.ModifiedCount}, nil
}

// AveragePriceByCategory returns category price statistics in store order.
func (s *Service) AveragePriceByCategory(ctx context.Context) ([]CategoryPriceDto, error) {
	prices, err := s.repository.AveragePriceByCategory(ctx)
	if err != nil {
		s.recordStoreError(ctx, "average_price_by_category", err)
		return nil, fmt.Errorf("failed to aggregate prices: %w", err)
	}
	dtos := make([]CategoryPriceDto, len(prices))
	for i, p := range prices {
		dtos[i] = CategoryPriceDto{Category: p.Category, AvgPrice: p.AvgPrice, ProductCount: p.ProductCount}
	}
	return dtos, nil
}

// Ping reports whether the store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	return s.repository.Ping(ctx)
}

// publishReviewAdded emits a ReviewAddedEvent. The review is already stored, so a
// failed publish is logged and not returned.
func (s *Service) publishReviewAdded(ctx context.Context, productID string, review store.Review) {
	if s.publisher == nil {
		return
	}
	carrier := make(propagation.MapCarrier)
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	event := events.ReviewAddedEvent{
		Carrier:   carrier,
		ProductID: productID,
		UserID:    review.UserID,
		Rating:    review.Rating,
		AddedAt:   review.Date,
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		slog.ErrorContext(ctx, "Failed to publish ReviewAddedEvent", "productId", productID, "error", err)
	}
}

// recordStoreError counts a failed round trip under its error kind.
func (s *Service) recordStoreError(ctx context.Context, operation string, err error) {
	kind := "other"
	var shapeErr *perrors.DataShapeError
	switch {
	case errors.Is(err, perrors.ErrConnection):
		kind = "connection"
	case errors.As(err, &shapeErr):
		kind = "data_shape"
	}
	s.storeErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("kind", kind),
	))
}

// check runs struct validation and tags failures with ErrInvalidArgument.
func (s *Service) check(v any) error {
	if err := s.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %w", perrors.ErrInvalidArgument, err)
	}
	return nil
}
