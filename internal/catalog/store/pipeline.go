package store

import (
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Field names of the products collection.
const (
	fieldProductID = "product_id"
	fieldName      = "name"
	fieldCategory  = "category"
	fieldPrice     = "price"
	fieldStock     = "stock"
	fieldReviews   = "reviews"
	fieldRating    = "rating"
)

// categoryUnderPriceFilter matches {category: C, price: {$lt: P}}.
func categoryUnderPriceFilter(category string, maxPrice float64) bson.D {
	return bson.D{
		{Key: fieldCategory, Value: category},
		{Key: fieldPrice, Value: bson.D{{Key: "$lt", Value: maxPrice}}},
	}
}

// summaryProjection keeps name, price and stock and suppresses _id.
func summaryProjection() bson.D {
	return bson.D{
		{Key: fieldName, Value: 1},
		{Key: fieldPrice, Value: 1},
		{Key: fieldStock, Value: 1},
		{Key: "_id", Value: 0},
	}
}

// averageRatingPipeline unwinds reviews, groups them back by product and keeps
// groups whose mean rating reaches minAvgRating. Groups containing a
// non-numeric rating are kept as well so the caller can report them:
// $avg silently skips such values.
func averageRatingPipeline(minAvgRating float64) mongo.Pipeline {
	rating := "$" + fieldReviews + "." + fieldRating
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$" + fieldReviews}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + fieldProductID},
			{Key: "name", Value: bson.D{{Key: "$first", Value: "$" + fieldName}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: rating}}},
			{Key: "invalidRatings", Value: bson.D{{Key: "$sum", Value: bson.D{{Key: "$cond", Value: bson.A{
				bson.D{{Key: "$isNumber", Value: rating}}, 0, 1,
			}}}}}},
		}}},
		{{Key: "$match", Value: bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "avgRating", Value: bson.D{{Key: "$gte", Value: minAvgRating}}}},
			bson.D{{Key: "invalidRatings", Value: bson.D{{Key: "$gt", Value: 0}}}},
		}}}}},
	}
}

// averagePricePipeline groups products by category and sorts by mean price, highest first.
func averagePricePipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + fieldCategory},
			{Key: "avg_price", Value: bson.D{{Key: "$avg", Value: "$" + fieldPrice}}},
			{Key: "product_count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "avg_price", Value: -1}}}},
	}
}

// productIDFilter matches a single product by its business key.
func productIDFilter(productID string) bson.D {
	return bson.D{{Key: fieldProductID, Value: productID}}
}

// pushReviewUpdate appends review to the end of the reviews array.
func pushReviewUpdate(review Review) bson.D {
	return bson.D{{Key: "$push", Value: bson.D{{Key: fieldReviews, Value: review}}}}
}

// summaryDoc is the decoded projection. Pointers distinguish missing fields from zero values.
type summaryDoc struct {
	Name  *string  `bson:"name"`
	Price *float64 `bson:"price"`
	Stock *int64   `bson:"stock"`
}

type ratingDoc struct {
	ProductID      *string  `bson:"_id"`
	Name           string   `bson:"name"`
	AvgRating      *float64 `bson:"avgRating"`
	InvalidRatings int64    `bson:"invalidRatings"`
}

type categoryPriceDoc struct {
	Category     string   `bson:"_id"`
	AvgPrice     *float64 `bson:"avg_price"`
	ProductCount int64    `bson:"product_count"`
}
