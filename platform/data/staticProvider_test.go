package data

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticProvider(t *testing.T) {
	t.Parallel()

	t.Run("nil map", func(t *testing.T) {
		provider := NewStaticProvider(nil)
		got, err := provider.GetData(context.Background())
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("returns a clone", func(t *testing.T) {
		original := map[string]any{"greeting": "hello", "count": 3}
		provider := NewStaticProvider(original)

		got, err := provider.GetData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, original, got)

		got["greeting"] = "changed"
		again, err := provider.GetData(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "hello", again["greeting"])
	})

	t.Run("string", func(t *testing.T) {
		assert.Equal(t, "data.StaticProvider", NewStaticProvider(nil).String())
	})
}
