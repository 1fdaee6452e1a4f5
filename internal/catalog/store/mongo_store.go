package store

import (
	"context"
	"errors"
	"fmt"

	perrors "github.com/abgdnv/fleximart/internal/catalog/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"
)

// Server error codes that mean the store refused our credentials.
const (
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
	// codeBadValue is returned by $push when the target field is not an array.
	codeBadValue = 2
)

// MongoStore implements CatalogStore on top of a MongoDB collection.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore creates a CatalogStore backed by the named collection of db.
func NewMongoStore(db *mongo.Database, collection string) *MongoStore {
	return &MongoStore{
		coll: db.Collection(collection),
	}
}

// FindByCategoryUnderPrice runs find({category: C, price: {$lt: P}}, {name, price, stock, _id: 0}).
func (m *MongoStore) FindByCategoryUnderPrice(ctx context.Context, category string, maxPrice float64) ([]ProductSummary, error) {
	opts := options.Find().SetProjection(summaryProjection())
	cursor, err := m.coll.Find(ctx, categoryUnderPriceFilter(category, maxPrice), opts)
	if err != nil {
		return nil, classify("failed to find products by category", err)
	}
	defer func() { _ = cursor.Close(context.WithoutCancel(ctx)) }()

	products := make([]ProductSummary, 0)
	for cursor.Next(ctx) {
		var doc summaryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, &perrors.DataShapeError{Field: "projection", Err: err}
		}
		summary, err := doc.toSummary()
		if err != nil {
			return nil, err
		}
		products = append(products, summary)
	}
	if err := cursor.Err(); err != nil {
		return nil, classify("failed to read products by category", err)
	}
	return products, nil
}

// AverageRatingByProduct runs the unwind/group/match pipeline over reviews.
func (m *MongoStore) AverageRatingByProduct(ctx context.Context, minAvgRating float64) ([]ProductRating, error) {
	cursor, err := m.coll.Aggregate(ctx, averageRatingPipeline(minAvgRating))
	if err != nil {
		return nil, classify("failed to aggregate ratings", err)
	}
	defer func() { _ = cursor.Close(context.WithoutCancel(ctx)) }()

	ratings := make([]ProductRating, 0)
	for cursor.Next(ctx) {
		var doc ratingDoc
		if err := cursor.Decode(&doc); err != nil {
			productID, _ := cursor.Current.Lookup("_id").StringValueOK()
			return nil, &perrors.DataShapeError{ProductID: productID, Field: fieldName, Err: err}
		}
		rating, err := doc.toRating()
		if err != nil {
			return nil, err
		}
		ratings = append(ratings, rating)
	}
	if err := cursor.Err(); err != nil {
		return nil, classify("failed to read ratings", err)
	}
	return ratings, nil
}

// AddReview runs updateOne({product_id: id}, {$push: {reviews: review}}).
func (m *MongoStore) AddReview(ctx context.Context, productID string, review Review) (UpdateAck, error) {
	res, err := m.coll.UpdateOne(ctx, productIDFilter(productID), pushReviewUpdate(review))
	if err != nil {
		var we mongo.WriteException
		if errors.As(err, &we) && we.HasErrorCode(codeBadValue) {
			return UpdateAck{}, &perrors.DataShapeError{ProductID: productID, Field: fieldReviews, Err: err}
		}
		return UpdateAck{}, classify(fmt.Sprintf("failed to add review to product %s", productID), err)
	}
	return UpdateAck{
		MatchedCount:  res.MatchedCount,
		ModifiedCount: res.ModifiedCount,
	}, nil
}

// AveragePriceByCategory runs the group/sort pipeline over categories.
func (m *MongoStore) AveragePriceByCategory(ctx context.Context) ([]CategoryPrice, error) {
	cursor, err := m.coll.Aggregate(ctx, averagePricePipeline())
	if err != nil {
		return nil, classify("failed to aggregate prices", err)
	}
	defer func() { _ = cursor.Close(context.WithoutCancel(ctx)) }()

	prices := make([]CategoryPrice, 0)
	for cursor.Next(ctx) {
		var doc categoryPriceDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, &perrors.DataShapeError{Field: fieldCategory, Err: err}
		}
		if doc.AvgPrice == nil {
			return nil, &perrors.DataShapeError{Field: fieldPrice, Err: fmt.Errorf("category %q has no numeric price", doc.Category)}
		}
		prices = append(prices, CategoryPrice{
			Category:     doc.Category,
			AvgPrice:     *doc.AvgPrice,
			ProductCount: doc.ProductCount,
		})
	}
	if err := cursor.Err(); err != nil {
		return nil, classify("failed to read prices", err)
	}
	return prices, nil
}

// Ping checks that the primary is reachable.
func (m *MongoStore) Ping(ctx context.Context) error {
	if err := m.coll.Database().Client().Ping(ctx, readpref.Primary()); err != nil {
		return classify("failed to ping store", err)
	}
	return nil
}

func (d summaryDoc) toSummary() (ProductSummary, error) {
	switch {
	case d.Name == nil:
		return ProductSummary{}, &perrors.DataShapeError{Field: fieldName, Err: errors.New("missing")}
	case d.Price == nil:
		return ProductSummary{}, &perrors.DataShapeError{Field: fieldPrice, Err: fmt.Errorf("missing for product %q", *d.Name)}
	case d.Stock == nil:
		return ProductSummary{}, &perrors.DataShapeError{Field: fieldStock, Err: fmt.Errorf("missing for product %q", *d.Name)}
	}
	return ProductSummary{Name: *d.Name, Price: *d.Price, Stock: *d.Stock}, nil
}

func (d ratingDoc) toRating() (ProductRating, error) {
	if d.ProductID == nil {
		return ProductRating{}, &perrors.DataShapeError{Field: fieldProductID, Err: errors.New("reviewed product has no identifier")}
	}
	if d.InvalidRatings > 0 || d.AvgRating == nil {
		return ProductRating{}, &perrors.DataShapeError{
			ProductID: *d.ProductID,
			Field:     fieldReviews + "." + fieldRating,
			Err:       fmt.Errorf("%d review(s) without a numeric rating", d.InvalidRatings),
		}
	}
	return ProductRating{ProductID: *d.ProductID, Name: d.Name, AvgRating: *d.AvgRating}, nil
}

// classify wraps err with ErrConnection when it stems from reaching the store.
func classify(msg string, err error) error {
	if isConnectionError(err) {
		return fmt.Errorf("%s: %w: %w", msg, perrors.ErrConnection, err)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func isConnectionError(err error) bool {
	if mongo.IsNetworkError(err) || mongo.IsTimeout(err) {
		return true
	}
	if errors.Is(err, mongo.ErrClientDisconnected) || errors.Is(err, topology.ErrServerSelectionTimeout) {
		return true
	}
	var selErr topology.ServerSelectionError
	if errors.As(err, &selErr) {
		return true
	}
	var connErr topology.ConnectionError
	if errors.As(err, &connErr) {
		return true
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr.Code == codeUnauthorized || cmdErr.Code == codeAuthenticationFailed
	}
	return false
}
