package data

import (
	"context"
	"fmt"
	"maps"
)

// CompositeProvider merges the data of several providers. Later providers
// override keys from earlier ones; nested maps are replaced, not merged.
type CompositeProvider struct {
	providers []Provider
}

// NewCompositeProvider creates a CompositeProvider that queries providers in order.
// Nil providers are skipped.
func NewCompositeProvider(providers ...Provider) *CompositeProvider {
	return &CompositeProvider{providers: providers}
}

func (p *CompositeProvider) String() string {
	return fmt.Sprintf("data.CompositeProvider{providers: %d}", len(p.providers))
}

// GetData implements Provider.
func (p *CompositeProvider) GetData(ctx context.Context) (map[string]any, error) {
	result := make(map[string]any)
	for i, provider := range p.providers {
		if provider == nil {
			continue
		}
		data, err := provider.GetData(ctx)
		if err != nil {
			return nil, fmt.Errorf("error from provider %d: %w", i, err)
		}
		maps.Copy(result, data)
	}
	return result, nil
}
