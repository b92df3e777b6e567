package compiler

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bpcreech/http-eval/platform/script"
)

// FunctionalOption is a function that configures a Compiler instance
type FunctionalOption func(*Compiler) error

// WithMode sets whether snippets are wrapped as plain or async function bodies.
func WithMode(mode script.Mode) FunctionalOption {
	return func(c *Compiler) error {
		switch mode {
		case script.Sync, script.Async:
			c.mode = mode
			return nil
		default:
			return fmt.Errorf("unknown evaluation mode: %d", mode)
		}
	}
}

// WithSourceName sets the file name reported in stack traces.
func WithSourceName(name string) FunctionalOption {
	return func(c *Compiler) error {
		if name == "" {
			return fmt.Errorf("source name cannot be empty")
		}
		c.sourceName = name
		return nil
	}
}

// WithLogHandler creates an option to set the log handler for the JavaScript compiler.
// This is the preferred option for logging configuration as it provides
// more flexibility through the slog.Handler interface.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(c *Compiler) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		// Clear logger if handler is explicitly set
		c.logger = nil
		return nil
	}
}

// WithLogger creates an option to set a specific logger for the JavaScript compiler.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(c *Compiler) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		// Clear handler if logger is explicitly set
		c.logHandler = nil
		return nil
	}
}

// validate checks if the compiler configuration is valid
func (c *Compiler) validate() error {
	if c.logHandler == nil && c.logger == nil {
		return fmt.Errorf("either log handler or logger must be specified")
	}
	return nil
}

// applyDefaults sets the default values for a compiler
func (c *Compiler) applyDefaults() {
	if c.logHandler == nil && c.logger == nil {
		c.logHandler = slog.NewTextHandler(os.Stderr, nil)
	}
	if c.sourceName == "" {
		c.sourceName = defaultSourceName
	}
}
