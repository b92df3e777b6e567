package data

import (
	"context"
	"maps"
)

// StaticProvider is a simple provider that returns a predefined map of data.
// It is used to seed the execution context with values from the config file.
type StaticProvider struct {
	data map[string]any
}

// NewStaticProvider creates a new StaticProvider with the provided data map
func NewStaticProvider(data map[string]any) *StaticProvider {
	if data == nil {
		data = make(map[string]any)
	}
	return &StaticProvider{
		data: data,
	}
}

func (p *StaticProvider) String() string {
	return "data.StaticProvider"
}

// GetData returns a shallow clone of the static data, regardless of the context
func (p *StaticProvider) GetData(_ context.Context) (map[string]any, error) {
	return maps.Clone(p.data), nil
}
