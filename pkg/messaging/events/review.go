package events

import (
	"encoding/json"
	"time"

	"github.com/abgdnv/fleximart/pkg/messaging"
)

// ReviewAddedEvent is emitted after a review was appended to an existing product.
// Carrier holds the propagated trace context.
type ReviewAddedEvent struct {
	Carrier   map[string]string `json:"carrier,omitempty"`
	ProductID string            `json:"product_id"`
	UserID    string            `json:"user_id"`
	Rating    float64           `json:"rating"`
	AddedAt   time.Time         `json:"added_at"`
}

func (e ReviewAddedEvent) Subject() string {
	return messaging.ReviewsAddedSubject
}

func (e ReviewAddedEvent) Payload() ([]byte, error) {
	return json.Marshal(e)
}
