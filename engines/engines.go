// Package engines builds the compiler and evaluator pair for a script engine.
package engines

import (
	"context"
	"fmt"
	"log/slog"

	gojaCompiler "github.com/bpcreech/http-eval/engines/goja/compiler"
	gojaEvaluator "github.com/bpcreech/http-eval/engines/goja/evaluator"
	risorCompiler "github.com/bpcreech/http-eval/engines/risor/compiler"
	risorEvaluator "github.com/bpcreech/http-eval/engines/risor/evaluator"
	starlarkCompiler "github.com/bpcreech/http-eval/engines/starlark/compiler"
	starlarkEvaluator "github.com/bpcreech/http-eval/engines/starlark/evaluator"
	"github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/script"
	"github.com/bpcreech/http-eval/platform/script/loader"
)

// closingEvaluator is what every engine evaluator implements.
type closingEvaluator interface {
	platform.Evaluator
	Close(ctx context.Context) error
}

// Machine holds one compiler per mode and the single evaluator that owns the
// execution context. Compilers are stateless and safe for concurrent use.
type Machine struct {
	engine    types.Type
	compilers map[script.Mode]script.Compiler
	evaluator closingEvaluator

	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates the Machine for engine.
func New(ctx context.Context, engine types.Type, opts ...Option) (*Machine, error) {
	cfg := &Config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, fmt.Errorf("error applying option: %w", err)
		}
	}
	handler, logger := helpers.SetupLogger(cfg.handler, "engines", "Machine")

	m := &Machine{
		engine:     engine,
		compilers:  make(map[script.Mode]script.Compiler, 2),
		logHandler: handler,
		logger:     logger.With("engine", engine),
	}

	var err error
	switch engine {
	case types.Goja:
		err = m.buildGoja(ctx, cfg)
	case types.Starlark:
		err = m.buildStarlark(ctx, cfg)
	case types.Risor:
		err = m.buildRisor(ctx, cfg)
	default:
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownEngine, engine)
	}
	if err != nil {
		return nil, err
	}

	m.logger.Debug("Machine ready")
	return m, nil
}

func (m *Machine) buildGoja(ctx context.Context, cfg *Config) error {
	for _, mode := range []script.Mode{script.Sync, script.Async} {
		c, err := gojaCompiler.New(
			gojaCompiler.WithMode(mode),
			gojaCompiler.WithLogHandler(m.logHandler),
		)
		if err != nil {
			return fmt.Errorf("failed to create javascript compiler: %w", err)
		}
		m.compilers[mode] = c
	}

	opts := []gojaEvaluator.FunctionalOption{gojaEvaluator.WithLogHandler(m.logHandler)}
	if cfg.dataProvider != nil {
		opts = append(opts, gojaEvaluator.WithDataProvider(cfg.dataProvider))
	}
	if cfg.loop != nil {
		opts = append(opts, gojaEvaluator.WithLoop(cfg.loop))
	}
	e, err := gojaEvaluator.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create javascript evaluator: %w", err)
	}
	m.evaluator = e
	return nil
}

func (m *Machine) buildStarlark(ctx context.Context, cfg *Config) error {
	for _, mode := range []script.Mode{script.Sync, script.Async} {
		c, err := starlarkCompiler.New(
			starlarkCompiler.WithCtxGlobal(),
			starlarkCompiler.WithMode(mode),
			starlarkCompiler.WithLogHandler(m.logHandler),
		)
		if err != nil {
			return fmt.Errorf("failed to create starlark compiler: %w", err)
		}
		m.compilers[mode] = c
	}

	opts := []starlarkEvaluator.FunctionalOption{starlarkEvaluator.WithLogHandler(m.logHandler)}
	if cfg.dataProvider != nil {
		opts = append(opts, starlarkEvaluator.WithDataProvider(cfg.dataProvider))
	}
	if cfg.loop != nil {
		opts = append(opts, starlarkEvaluator.WithLoop(cfg.loop))
	}
	e, err := starlarkEvaluator.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create starlark evaluator: %w", err)
	}
	m.evaluator = e
	return nil
}

func (m *Machine) buildRisor(ctx context.Context, cfg *Config) error {
	for _, mode := range []script.Mode{script.Sync, script.Async} {
		c, err := risorCompiler.New(
			risorCompiler.WithMode(mode),
			risorCompiler.WithLogHandler(m.logHandler),
		)
		if err != nil {
			return fmt.Errorf("failed to create risor compiler: %w", err)
		}
		m.compilers[mode] = c
	}

	opts := []risorEvaluator.FunctionalOption{risorEvaluator.WithLogHandler(m.logHandler)}
	if cfg.dataProvider != nil {
		opts = append(opts, risorEvaluator.WithDataProvider(cfg.dataProvider))
	}
	if cfg.loop != nil {
		opts = append(opts, risorEvaluator.WithLoop(cfg.loop))
	}
	e, err := risorEvaluator.New(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to create risor evaluator: %w", err)
	}
	m.evaluator = e
	return nil
}

func (m *Machine) String() string {
	return fmt.Sprintf("engines.Machine{engine: %s}", m.engine)
}

// Engine returns the engine type.
func (m *Machine) Engine() types.Type {
	return m.engine
}

// Compiler returns the compiler for mode.
func (m *Machine) Compiler(mode script.Mode) (script.Compiler, error) {
	c, ok := m.compilers[mode]
	if !ok {
		return nil, fmt.Errorf("no compiler for mode %s", mode)
	}
	return c, nil
}

// Evaluator returns the evaluator that owns the execution context.
func (m *Machine) Evaluator() platform.Evaluator {
	return m.evaluator
}

// Prepare compiles source for mode into a fresh executable unit. Empty source
// fails with loader.ErrScriptNotAvailable; syntax errors carry a
// *platform.EvalFailure.
func (m *Machine) Prepare(source string, mode script.Mode) (*script.ExecutableUnit, error) {
	c, err := m.Compiler(mode)
	if err != nil {
		return nil, err
	}
	ldr, err := loader.NewFromString(source)
	if err != nil {
		return nil, err
	}
	return script.NewExecutableUnit(m.logHandler, "", ldr, c)
}

// Eval compiles and runs source in one step.
func (m *Machine) Eval(ctx context.Context, source string, mode script.Mode) (platform.EvaluatorResponse, error) {
	unit, err := m.Prepare(source, mode)
	if err != nil {
		return nil, err
	}
	return m.evaluator.Eval(ctx, unit)
}

// Close releases the evaluator.
func (m *Machine) Close(ctx context.Context) error {
	return m.evaluator.Close(ctx)
}
