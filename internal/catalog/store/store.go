// Package store provides the query façade over the products collection.
package store

import (
	"context"
	"time"
)

// CatalogStore is the set of queries the catalog runs against the document store.
// Each method is a single round trip; nothing is cached, retried or locked locally.
type CatalogStore interface {
	// FindByCategoryUnderPrice returns name, price and stock of every product in category
	// whose price is strictly below maxPrice. Order is whatever the store returns.
	// Returns an empty slice if no product matches.
	FindByCategoryUnderPrice(ctx context.Context, category string, maxPrice float64) ([]ProductSummary, error)

	// AverageRatingByProduct returns products whose mean review rating is at least minAvgRating.
	// Products without reviews are never returned.
	AverageRatingByProduct(ctx context.Context, minAvgRating float64) ([]ProductRating, error)

	// AddReview appends review to the reviews of the product identified by productID.
	// An unknown productID yields a zero-count acknowledgement, not an error.
	AddReview(ctx context.Context, productID string, review Review) (UpdateAck, error)

	// AveragePriceByCategory returns mean price and product count per category,
	// ordered by mean price descending.
	AveragePriceByCategory(ctx context.Context) ([]CategoryPrice, error)

	// Ping checks that the store is reachable.
	Ping(ctx context.Context) error
}

// Product mirrors a document of the products collection.
type Product struct {
	ProductID string   `bson:"product_id"`
	Name      string   `bson:"name"`
	Category  string   `bson:"category"`
	Price     float64  `bson:"price"`
	Stock     int64    `bson:"stock"`
	Reviews   []Review `bson:"reviews,omitempty"`
}

// Review is a single entry of Product.Reviews.
type Review struct {
	UserID  string    `bson:"user_id"`
	Rating  float64   `bson:"rating"`
	Comment string    `bson:"comment"`
	Date    time.Time `bson:"date"`
}

// ProductSummary is the projection returned by FindByCategoryUnderPrice.
type ProductSummary struct {
	Name  string
	Price float64
	Stock int64
}

// ProductRating is a row of AverageRatingByProduct.
type ProductRating struct {
	ProductID string
	Name      string
	AvgRating float64
}

// CategoryPrice is a row of AveragePriceByCategory.
type CategoryPrice struct {
	Category     string
	AvgPrice     float64
	ProductCount int64
}

// UpdateAck reports how many documents an update matched and modified.
type UpdateAck struct {
	MatchedCount  int64
	ModifiedCount int64
}
