package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/script"
)

// Evaluator is a mock implementation of platform.Evaluator for testing purposes.
type Evaluator struct {
	mock.Mock
}

// Eval is a mock implementation of the Eval method.
func (m *Evaluator) Eval(ctx context.Context, unit *script.ExecutableUnit) (platform.EvaluatorResponse, error) {
	args := m.Called(ctx, unit)
	resp, _ := args.Get(0).(platform.EvaluatorResponse)
	return resp, args.Error(1)
}

// Runner is a mock of anything that compiles and evaluates source text in one
// step, such as engines.Machine.
type Runner struct {
	mock.Mock
}

// Eval is a mock implementation of the Eval method.
func (m *Runner) Eval(ctx context.Context, source string, mode script.Mode) (platform.EvaluatorResponse, error) {
	args := m.Called(ctx, source, mode)
	resp, _ := args.Get(0).(platform.EvaluatorResponse)
	return resp, args.Error(1)
}
