package evaluator

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/bpcreech/http-eval/internal/eventloop"
	"github.com/bpcreech/http-eval/platform/data"
)

// FunctionalOption is a function that configures an Evaluator instance
type FunctionalOption func(*Evaluator) error

// WithLoop runs the evaluator on an existing loop, which the caller keeps
// ownership of. Without it the evaluator creates and owns a loop.
func WithLoop(loop *eventloop.Loop) FunctionalOption {
	return func(e *Evaluator) error {
		if loop == nil {
			return fmt.Errorf("loop cannot be nil")
		}
		e.loop = loop
		return nil
	}
}

// WithDataProvider seeds the ctx map with the provider's data.
func WithDataProvider(provider data.Provider) FunctionalOption {
	return func(e *Evaluator) error {
		if provider == nil {
			return fmt.Errorf("data provider cannot be nil")
		}
		e.provider = provider
		return nil
	}
}

// WithMaxDuration cancels a snippet that runs longer than d. Zero means unlimited.
func WithMaxDuration(d time.Duration) FunctionalOption {
	return func(e *Evaluator) error {
		if d < 0 {
			return fmt.Errorf("max duration cannot be negative")
		}
		e.maxDuration = d
		return nil
	}
}

// WithLogHandler sets the log handler for the evaluator.
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

// WithLogger sets a specific logger for the evaluator.
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
}
