package httpeval

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpcreech/http-eval/platform"
)

func TestAsError(t *testing.T) {
	t.Parallel()

	failure := platform.NewEvalFailure("ReferenceError: foo is not defined\n\tat <eval>:1:1(1)", "Error: root")

	tests := []struct {
		name   string
		err    error
		kind   Kind
		status int
		body   string
	}{
		{
			name:   "validation",
			err:    NewValidationError(http.StatusNotFound, "Cannot GET /"),
			kind:   KindValidation,
			status: http.StatusNotFound,
			body:   `{"error":"Cannot GET /"}`,
		},
		{
			name:   "configuration",
			err:    fmt.Errorf("guard: %w", NewConfigurationError("bad socket")),
			kind:   KindConfiguration,
			status: http.StatusInternalServerError,
			body:   `{"error":"bad socket"}`,
		},
		{
			name:   "evaluation failure",
			err:    fmt.Errorf("eval: %w", failure),
			kind:   KindEvaluation,
			status: http.StatusBadRequest,
			body: `{"error":"Error in eval","cause":{"error":"ReferenceError: foo is not defined\n\tat <eval>:1:1(1)",` +
				`"cause":{"error":"Error: root"}}}`,
		},
		{
			name:   "evaluation error without failure",
			err:    &Error{Kind: KindEvaluation, StatusCode: http.StatusBadRequest, Message: "Error in eval"},
			kind:   KindEvaluation,
			status: http.StatusBadRequest,
			body:   `{"error":"Error in eval"}`,
		},
		{
			name:   "internal",
			err:    errors.New("disk on fire"),
			kind:   KindInternal,
			status: http.StatusInternalServerError,
			body:   `{"error":"Internal error: disk on fire"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			he := asError(tt.err)
			assert.Equal(t, tt.kind, he.Kind)
			assert.Equal(t, tt.status, he.StatusCode)

			b, err := json.Marshal(he.render())
			require.NoError(t, err)
			assert.JSONEq(t, tt.body, string(b))
		})
	}
}

func TestErrorChain(t *testing.T) {
	t.Parallel()

	failure := platform.NewEvalFailure("TypeError: x\n\tat f", "Error: y")
	he := NewEvaluationError(failure)

	assert.Equal(t, "Error in eval: TypeError: x", he.Error())
	require.ErrorIs(t, he, failure)

	var got *platform.EvalFailure
	require.ErrorAs(t, he, &got)
	assert.Equal(t, 2, got.Depth())
}

func TestKindString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "validation", KindValidation.String())
	assert.Equal(t, "evaluation", KindEvaluation.String())
	assert.Equal(t, "configuration", KindConfiguration.String())
	assert.Equal(t, "internal", KindInternal.String())
}
