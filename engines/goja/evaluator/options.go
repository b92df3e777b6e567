package evaluator

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bpcreech/http-eval/internal/eventloop"
	"github.com/bpcreech/http-eval/platform/data"
)

// FunctionalOption is a function that configures an Evaluator instance
type FunctionalOption func(*Evaluator) error

// WithLoop runs the evaluator on an existing loop. The caller keeps ownership
// and must stop it; without this option the evaluator creates and owns one.
func WithLoop(loop *eventloop.Loop) FunctionalOption {
	return func(e *Evaluator) error {
		if loop == nil {
			return fmt.Errorf("loop cannot be nil")
		}
		e.loop = loop
		return nil
	}
}

// WithDataProvider seeds the execution context with the provider's data
// when the evaluator is created.
func WithDataProvider(provider data.Provider) FunctionalOption {
	return func(e *Evaluator) error {
		if provider == nil {
			return fmt.Errorf("data provider cannot be nil")
		}
		e.provider = provider
		return nil
	}
}

// WithMaxCallStackSize limits recursion depth; exceeding it fails the evaluation.
func WithMaxCallStackSize(size int) FunctionalOption {
	return func(e *Evaluator) error {
		if size <= 0 {
			return fmt.Errorf("max call stack size must be positive, got %d", size)
		}
		e.maxCallStackSize = size
		return nil
	}
}

// WithLogHandler creates an option to set the log handler for the evaluator.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(e *Evaluator) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		e.logHandler = handler
		e.logger = nil
		return nil
	}
}

// WithLogger creates an option to set a specific logger for the evaluator.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(e *Evaluator) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		e.logger = logger
		e.logHandler = nil
		return nil
	}
}

func (e *Evaluator) applyDefaults() {
	if e.logHandler == nil && e.logger == nil {
		e.logHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	if e.maxCallStackSize == 0 {
		e.maxCallStackSize = defaultMaxCallStackSize
	}
}
