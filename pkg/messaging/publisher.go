// Package messaging defines the events the catalog emits and the publisher contract.
package messaging

import (
	"context"
)

const (
	// CatalogStream captures every catalog.> subject.
	CatalogStream = "CATALOG"
	// ReviewsAddedSubject carries a ReviewAddedEvent per appended review.
	ReviewsAddedSubject = "catalog.reviews.added"
)

// CatalogSubjects lists the subjects bound to CatalogStream.
var CatalogSubjects = []string{"catalog.>"}

type Event interface {
	Subject() string
	Payload() ([]byte, error)
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
