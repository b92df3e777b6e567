package compiler

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bpcreech/http-eval/platform/script"
)

// FunctionalOption is a function that configures a Compiler instance
type FunctionalOption func(*Compiler) error

// WithGlobals declares names that are bound only at eval time, in addition
// to Risor's builtins and ctx.
func WithGlobals(globals []string) FunctionalOption {
	return func(c *Compiler) error {
		c.extra = append(c.extra, globals...)
		return nil
	}
}

// WithMode records the evaluation mode on compiled content.
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

// WithLogHandler sets the log handler for the compiler.
func WithLogHandler(handler slog.Handler) FunctionalOption {
	return func(c *Compiler) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.logHandler = handler
		c.logger = nil
		return nil
	}
}

// WithLogger sets a specific logger for the compiler.
func WithLogger(logger *slog.Logger) FunctionalOption {
	return func(c *Compiler) error {
		if logger == nil {
			return fmt.Errorf("logger cannot be nil")
		}
		c.logger = logger
		c.logHandler = nil
		return nil
	}
}

func (c *Compiler) applyDefaults() {
	if c.logHandler == nil && c.logger == nil {
		c.logHandler = slog.NewTextHandler(os.Stderr, nil)
	}
}
