package helpers

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	t.Parallel()

	t.Run("nil handler gets a default", func(t *testing.T) {
		handler, logger := SetupLogger(nil, "goja", "Evaluator")
		require.NotNil(t, handler)
		require.NotNil(t, logger)
	})

	t.Run("custom handler is kept and grouped", func(t *testing.T) {
		var buf bytes.Buffer
		custom := slog.NewTextHandler(&buf, nil)

		handler, logger := SetupLogger(custom, "goja", "Evaluator")
		assert.Equal(t, custom, handler)

		logger.Info("hello", "key", "value")
		assert.Contains(t, buf.String(), "Evaluator.key=value")
	})

	t.Run("empty group name", func(t *testing.T) {
		var buf bytes.Buffer
		custom := slog.NewTextHandler(&buf, nil)

		_, logger := SetupLogger(custom, "goja", "")
		logger.Info("hello", "key", "value")
		assert.Contains(t, buf.String(), " key=value")
	})
}
