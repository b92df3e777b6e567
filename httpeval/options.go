package httpeval

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/bpcreech/http-eval/internal/observability"
)

const (
	// DefaultEvalPath is the only path that accepts evaluation requests.
	DefaultEvalPath = "/run"

	// DefaultMaxRequestSize caps the request body.
	DefaultMaxRequestSize int64 = 1 << 20
)

// Option configures a Handler.
type Option func(*Handler) error

// WithLogHandler sets the slog handler. It clears any logger set by WithLogger.
func WithLogHandler(handler slog.Handler) Option {
	return func(h *Handler) error {
		if handler == nil {
			return errors.New("log handler cannot be nil")
		}
		h.logHandler = handler
		h.logger = nil
		return nil
	}
}

// WithLogger sets the logger. It clears any handler set by WithLogHandler.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		h.logger = logger
		h.logHandler = nil
		return nil
	}
}

// WithEvalPath changes the evaluation path from DefaultEvalPath.
func WithEvalPath(path string) Option {
	return func(h *Handler) error {
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("eval path must start with '/', got %q", path)
		}
		h.evalPath = path
		return nil
	}
}

// WithMaxRequestSize caps the request body at n bytes.
func WithMaxRequestSize(n int64) Option {
	return func(h *Handler) error {
		if n <= 0 {
			return fmt.Errorf("max request size must be positive, got %d", n)
		}
		h.maxRequestSize = n
		return nil
	}
}

// WithIgnoreInsecureSocketPermission disables the socket permission check.
// It has no effect when WithGuard is also given.
func WithIgnoreInsecureSocketPermission(ignore bool) Option {
	return func(h *Handler) error {
		h.ignoreInsecure = ignore
		return nil
	}
}

// WithGuard supplies the socket permission guard.
func WithGuard(g *Guard) Option {
	return func(h *Handler) error {
		if g == nil {
			return errors.New("guard cannot be nil")
		}
		h.guard = g
		return nil
	}
}

// WithMetrics records request and evaluation metrics on m.
func WithMetrics(m *observability.MetricsCollector) Option {
	return func(h *Handler) error {
		h.metrics = m
		return nil
	}
}

// WithTracer sets the tracer used for request and evaluation spans.
func WithTracer(t trace.Tracer) Option {
	return func(h *Handler) error {
		if t == nil {
			return errors.New("tracer cannot be nil")
		}
		h.tracer = t
		return nil
	}
}

// WithEngineName sets the engine label on metrics and spans. By default it
// is taken from the runner when the runner reports one.
func WithEngineName(name string) Option {
	return func(h *Handler) error {
		h.engine = name
		return nil
	}
}
