package eventloop

import (
	"fmt"
	"log/slog"
)

// FunctionalOption is a function that configures a Loop instance
type FunctionalOption func(*Loop) error

// WithLogHandler creates an option to set the log handler for the loop.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(l *Loop) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		l.logHandler = handler
		l.logger = nil
		return nil
	}
}

// WithLogger creates an option to set a specific logger for the loop.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(l *Loop) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		l.logger = logger
		l.logHandler = nil
		return nil
	}
}

// WithPanicHandler sets a callback invoked on the loop goroutine when a job panics.
// The loop keeps running after the callback returns.
func WithPanicHandler(fn func(recovered any)) FunctionalOption {
	return func(l *Loop) error {
		if fn == nil {
			return fmt.Errorf("panic handler cannot be nil")
		}
		l.onPanic = fn
		return nil
	}
}
