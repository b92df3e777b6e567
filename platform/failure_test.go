package platform

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvalFailure(t *testing.T) {
	t.Parallel()

	t.Run("error is first line", func(t *testing.T) {
		f := &EvalFailure{Description: "ReferenceError: foo is not defined\n\tat anonymous (<eval>:3:1(3))\n"}
		assert.Equal(t, "ReferenceError: foo is not defined", f.Error())
	})

	t.Run("nil failure", func(t *testing.T) {
		var f *EvalFailure
		assert.Equal(t, "<nil>", f.Error())
		assert.NoError(t, f.Unwrap())
		assert.Equal(t, 0, f.Depth())
	})

	t.Run("chain", func(t *testing.T) {
		f := NewEvalFailure("Error: outer", "TypeError: middle", "RangeError: inner")
		require.Equal(t, 3, f.Depth())
		assert.Equal(t, "TypeError: middle", f.Cause.Description)
		assert.Equal(t, "RangeError: inner", f.Cause.Cause.Description)
		assert.Nil(t, f.Cause.Cause.Cause)

		next := errors.Unwrap(f)
		require.NotNil(t, next)
		assert.Equal(t, "TypeError: middle", next.Error())
	})

	t.Run("errors.As through wrapping", func(t *testing.T) {
		f := NewEvalFailure("SyntaxError: Unexpected identifier")
		wrapped := fmt.Errorf("compiler failed: %w", f)

		var got *EvalFailure
		require.ErrorAs(t, wrapped, &got)
		assert.Same(t, f, got)
	})
}
