package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	starlarkLib "go.starlark.net/starlark"

	"github.com/bpcreech/http-eval/engines/starlark/internal"
	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/internal/eventloop"
	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/constants"
	"github.com/bpcreech/http-eval/platform/data"
	"github.com/bpcreech/http-eval/platform/script"
)

// Completion value globals, in order of preference.
const (
	resultGlobal   = "_"
	fallbackGlobal = "result"
)

// Evaluator is an abstraction layer for evaluating code on the Starlark engine.
// Every snippet sees the same ctx dict; it is only touched on the loop.
type Evaluator struct {
	loop     *eventloop.Loop
	ownsLoop bool
	provider data.Provider
	maxSteps uint64

	// loop-owned
	universe starlarkLib.StringDict

	logHandler slog.Handler
	logger     *slog.Logger
}

type outcome struct {
	result *execResult
	err    error
}

// New creates a new Evaluator and its ctx dict.
func New(ctx context.Context, opts ...FunctionalOption) (*Evaluator, error) {
	e := &Evaluator{}
	e.applyDefaults()

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, fmt.Errorf("error applying evaluator option: %w", err)
		}
	}

	if e.logger != nil {
		e.logHandler = e.logger.Handler()
	} else {
		e.logHandler, e.logger = helpers.SetupLogger(e.logHandler, "starlark", "Evaluator")
	}

	seed, err := e.loadInputData(ctx)
	if err != nil {
		return nil, err
	}

	if e.loop == nil {
		loop, err := eventloop.New(eventloop.WithLogHandler(e.logHandler))
		if err != nil {
			return nil, fmt.Errorf("failed to start event loop: %w", err)
		}
		e.loop = loop
		e.ownsLoop = true
	}

	var initErr error
	if err := e.loop.Do(ctx, func() { initErr = e.init(seed) }); err != nil {
		return nil, fmt.Errorf("failed to initialise ctx: %w", err)
	}
	if initErr != nil {
		return nil, initErr
	}

	return e, nil
}

func (e *Evaluator) String() string {
	return "starlark.Evaluator"
}

// loadInputData retrieves the seed for the ctx dict from the data provider.
func (e *Evaluator) loadInputData(ctx context.Context) (map[string]any, error) {
	logger := e.logger.WithGroup("loadInputData")
	if e.provider == nil {
		return map[string]any{}, nil
	}

	inputData, err := e.provider.GetData(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "failed to get input data from provider", "error", err)
		return nil, fmt.Errorf("failed to get seed data from provider: %w", err)
	}
	logger.DebugContext(ctx, "input data loaded from provider", "keys", len(inputData))
	return inputData, nil
}

// init runs on the loop.
func (e *Evaluator) init(seed map[string]any) error {
	ctxDict, err := internal.ConvertToDict(seed)
	if err != nil {
		return fmt.Errorf("failed to convert seed data: %w", err)
	}

	universe := internal.StarlarkModules()
	universe[constants.Ctx] = ctxDict

	e.universe = universe
	return nil
}

// Eval runs unit on the loop against the shared ctx dict. Starlark cannot
// suspend, so sync and async units behave the same.
func (e *Evaluator) Eval(ctx context.Context, unit *script.ExecutableUnit) (platform.EvaluatorResponse, error) {
	prog, err := e.program(unit)
	if err != nil {
		return nil, err
	}

	exeID := unit.GetID()
	logger := e.logger.WithGroup("Eval").With("exeID", exeID)
	if reqID := constants.RequestIDFrom(ctx); reqID != "" {
		logger = logger.With("requestID", reqID)
	}

	done := make(chan outcome, 1)
	if err := e.loop.Submit(func() { done <- e.exec(logger, prog, exeID) }); err != nil {
		return nil, fmt.Errorf("failed to schedule evaluation: %w", err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			logger.DebugContext(ctx, "Evaluation failed", "error", out.err)
			return nil, out.err
		}
		logger.DebugContext(ctx, "Evaluation complete", "type", out.result.Type())
		return out.result, nil
	case <-ctx.Done():
		logger.WarnContext(ctx, "Caller stopped waiting; evaluation continues on the loop")
		return nil, fmt.Errorf("evaluation abandoned: %w", ctx.Err())
	}
}

func (e *Evaluator) program(unit *script.ExecutableUnit) (*starlarkLib.Program, error) {
	if unit == nil || unit.GetContent() == nil {
		return nil, ErrExecUnitNil
	}
	if unit.GetEngineType() != engineTypes.Starlark {
		return nil, fmt.Errorf("%w: %s", ErrWrongEngine, unit.GetEngineType())
	}

	bytecode := unit.GetContent().GetByteCode()
	if bytecode == nil {
		return nil, ErrBytecodeNil
	}
	prog, ok := bytecode.(*starlarkLib.Program)
	if !ok {
		return nil, fmt.Errorf("%w: expected *starlark.Program, got %T", ErrInvalidBytecode, bytecode)
	}
	if prog == nil {
		return nil, ErrBytecodeNil
	}
	return prog, nil
}

// exec runs on the loop.
func (e *Evaluator) exec(logger *slog.Logger, prog *starlarkLib.Program, exeID string) outcome {
	logger = logger.WithGroup("exec")
	startTime := time.Now()

	thread := &starlarkLib.Thread{
		Name: exeID,
		Print: func(thread *starlarkLib.Thread, msg string) {
			logger.Info(msg, "source", "print", "starlark-thread", thread.Name)
		},
	}
	if e.maxSteps > 0 {
		thread.SetMaxExecutionSteps(e.maxSteps)
	}

	finalGlobals, err := prog.Init(thread, e.universe)
	execTime := time.Since(startTime)
	if err != nil {
		return outcome{err: failureFrom(err)}
	}

	mainVal, ok := finalGlobals[resultGlobal]
	if !ok {
		mainVal, ok = finalGlobals[fallbackGlobal]
	}
	if !ok {
		mainVal = nil
	}

	return outcome{result: newEvalResult(e.logHandler, mainVal, execTime, exeID)}
}

// Close stops the loop when the evaluator owns it.
func (e *Evaluator) Close(ctx context.Context) error {
	if e.ownsLoop {
		return e.loop.Stop(ctx)
	}
	return nil
}
