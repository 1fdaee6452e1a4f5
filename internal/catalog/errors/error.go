// Package errors provides custom error types for catalog operations.
package errors

import (
	"errors"
	"fmt"
)

// ErrConnection marks transport, authentication and timeout failures reaching the store.
var ErrConnection = errors.New("catalog store unreachable")

// ErrInvalidArgument marks input rejected before any request was sent to the store.
var ErrInvalidArgument = errors.New("invalid argument")

// DataShapeError reports a stored document that does not have the shape the catalog assumes,
// e.g. a review without a numeric rating.
type DataShapeError struct {
	ProductID string // empty when the offending document could not be identified
	Field     string
	Err       error
}

func (e *DataShapeError) Error() string {
	if e.ProductID == "" {
		return fmt.Sprintf("unexpected shape of field %q: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("product %s: unexpected shape of field %q: %v", e.ProductID, e.Field, e.Err)
}

func (e *DataShapeError) Unwrap() error {
	return e.Err
}
