package engines

import (
	"fmt"
	"log/slog"

	"github.com/bpcreech/http-eval/internal/eventloop"
	"github.com/bpcreech/http-eval/platform/data"
)

// Config holds everything needed to build a Machine
type Config struct {
	handler      slog.Handler
	dataProvider data.Provider
	loop         *eventloop.Loop
}

// Option is a function that modifies Config
type Option func(*Config) error

// WithLogHandler sets the log handler shared by the compilers and evaluator
func WithLogHandler(handler slog.Handler) Option {
	return func(c *Config) error {
		if handler == nil {
			return fmt.Errorf("log handler cannot be nil")
		}
		c.handler = handler
		return nil
	}
}

// WithDataProvider seeds the execution context
func WithDataProvider(provider data.Provider) Option {
	return func(c *Config) error {
		if provider == nil {
			return fmt.Errorf("data provider cannot be nil")
		}
		c.dataProvider = provider
		return nil
	}
}

// WithLoop runs the evaluator on an existing loop instead of a private one
func WithLoop(loop *eventloop.Loop) Option {
	return func(c *Config) error {
		if loop == nil {
			return fmt.Errorf("loop cannot be nil")
		}
		c.loop = loop
		return nil
	}
}
