package data

import (
	"context"
)

// Provider defines the interface for accessing data that seeds the execution
// context before the first evaluation.
type Provider interface {
	// GetData returns a map of property names to values. The map must be
	// safe for the caller to modify.
	GetData(ctx context.Context) (map[string]any, error)
}
