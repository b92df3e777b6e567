package mocks

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/data"
	"github.com/bpcreech/http-eval/platform/script"
)

func TestInterfaces(t *testing.T) {
	t.Parallel()
	var _ platform.Evaluator = (*Evaluator)(nil)
	var _ platform.EvaluatorResponse = (*EvaluatorResponse)(nil)
}

func TestEvaluatorResponseType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		val  any
		want data.Types
	}{
		{name: "nil", val: nil, want: data.NONE},
		{name: "bool", val: true, want: data.BOOL},
		{name: "int", val: 1, want: data.INT},
		{name: "float", val: 1.5, want: data.FLOAT},
		{name: "list", val: []any{}, want: data.LIST},
		{name: "map", val: map[string]any{}, want: data.MAP},
		{name: "string", val: "s", want: data.STRING},
		{name: "explicit", val: data.UNDEFINED, want: data.UNDEFINED},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m := new(EvaluatorResponse)
			m.On("Type").Return(tt.val)
			assert.Equal(t, tt.want, m.Type())
		})
	}

	t.Run("unknown panics", func(t *testing.T) {
		t.Parallel()
		m := new(EvaluatorResponse)
		m.On("Type").Return(struct{}{})
		assert.Panics(t, func() { m.Type() })
	})
}

func TestRunner(t *testing.T) {
	t.Parallel()

	resp := new(EvaluatorResponse)
	resp.On("Interface").Return("ok")

	r := new(Runner)
	r.On("Eval", mock.Anything, "good", script.Async).Return(resp, nil)
	r.On("Eval", mock.Anything, "bad", script.Sync).Return(nil, errors.New("boom"))

	got, err := r.Eval(context.Background(), "good", script.Async)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Interface())

	got, err = r.Eval(context.Background(), "bad", script.Sync)
	require.Error(t, err)
	assert.Nil(t, got)
	r.AssertExpectations(t)
}
