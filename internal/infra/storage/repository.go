package storage

import (
	"context"
	"errors"
)

var (
	// ErrWatermarkNotFound is returned when no watermark has been saved yet
	ErrWatermarkNotFound = errors.New("watermark not found")
)

// WatermarkRepository persists the single serialized watermark value.
// Implementations store the string opaquely; formatting belongs to the caller.
type WatermarkRepository interface {
	// Load returns the stored value or ErrWatermarkNotFound
	Load(ctx context.Context) (string, error)

	// Save replaces the stored value
	Save(ctx context.Context, value string) error

	// Delete removes the stored value; deleting nothing is not an error
	Delete(ctx context.Context) error
}
