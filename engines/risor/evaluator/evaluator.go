package evaluator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"
	"github.com/risor-io/risor/object"

	"github.com/bpcreech/http-eval/engines/risor/internal"
	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/internal/eventloop"
	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/constants"
	"github.com/bpcreech/http-eval/platform/data"
	"github.com/bpcreech/http-eval/platform/script"
)

// Evaluator runs Risor bytecode against one ctx map shared by every snippet.
// Each snippet gets a fresh VM, so only ctx outlives it.
type Evaluator struct {
	loop        *eventloop.Loop
	ownsLoop    bool
	provider    data.Provider
	maxDuration time.Duration

	// loop-owned
	ctxMap *object.Map

	logHandler slog.Handler
	logger     *slog.Logger
}

type outcome struct {
	result *execResult
	err    error
}

// New creates a new Evaluator and its ctx map.
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
		e.logHandler, e.logger = helpers.SetupLogger(e.logHandler, "risor", "Evaluator")
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
	if err := e.loop.Do(ctx, func() { e.ctxMap, initErr = internal.NewContextMap(seed) }); err != nil {
		return nil, fmt.Errorf("failed to initialise ctx: %w", err)
	}
	if initErr != nil {
		return nil, fmt.Errorf("failed to convert seed data: %w", initErr)
	}

	return e, nil
}

func (e *Evaluator) String() string {
	return "risor.Evaluator"
}

// loadInputData retrieves the seed for the ctx map from the data provider.
func (e *Evaluator) loadInputData(ctx context.Context) (map[string]any, error) {
	if e.provider == nil {
		return nil, nil
	}
	inputData, err := e.provider.GetData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get seed data from provider: %w", err)
	}
	e.logger.DebugContext(ctx, "Seed data loaded", "keys", len(inputData))
	return inputData, nil
}

// Eval runs unit on the loop against the shared ctx map. Risor cannot
// suspend, so sync and async units behave the same.
func (e *Evaluator) Eval(ctx context.Context, unit *script.ExecutableUnit) (platform.EvaluatorResponse, error) {
	code, err := e.bytecode(unit)
	if err != nil {
		return nil, err
	}

	exeID := unit.GetID()
	logger := e.logger.WithGroup("Eval").With("exeID", exeID)
	if reqID := constants.RequestIDFrom(ctx); reqID != "" {
		logger = logger.With("requestID", reqID)
	}

	done := make(chan outcome, 1)
	job := func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Evaluation panicked", "panic", r)
				done <- outcome{err: fmt.Errorf("%w: %v", ErrEvalPanicked, r)}
			}
		}()
		done <- e.exec(code, exeID)
	}
	if err := e.loop.Submit(job); err != nil {
		return nil, fmt.Errorf("failed to schedule evaluation: %w", err)
	}

	select {
	case out := <-done:
		if out.err != nil {
			logger.DebugContext(ctx, "Evaluation failed", "error", out.err)
			return nil, out.err
		}
		logger.DebugContext(ctx, "Evaluation complete", "type", out.result.Type(), "execTime", out.result.GetExecTime())
		return out.result, nil
	case <-ctx.Done():
		logger.WarnContext(ctx, "Caller stopped waiting; evaluation continues on the loop")
		return nil, fmt.Errorf("evaluation abandoned: %w", ctx.Err())
	}
}

func (e *Evaluator) bytecode(unit *script.ExecutableUnit) (*risorCompiler.Code, error) {
	if unit == nil || unit.GetContent() == nil {
		return nil, ErrExecUnitNil
	}
	if unit.GetEngineType() != engineTypes.Risor {
		return nil, fmt.Errorf("%w: %s", ErrWrongEngine, unit.GetEngineType())
	}

	bytecode := unit.GetContent().GetByteCode()
	if bytecode == nil {
		return nil, ErrBytecodeNil
	}
	code, ok := bytecode.(*risorCompiler.Code)
	if !ok {
		return nil, fmt.Errorf("%w: expected *compiler.Code, got %T", ErrInvalidBytecode, bytecode)
	}
	if code == nil {
		return nil, ErrBytecodeNil
	}
	return code, nil
}

// exec runs on the loop. The caller's context is not used: an abandoned
// evaluation still runs to completion, bounded only by maxDuration.
func (e *Evaluator) exec(code *risorCompiler.Code, exeID string) outcome {
	runCtx := context.Background()
	if e.maxDuration > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, e.maxDuration)
		defer cancel()
	}

	start := time.Now()
	obj, err := risorLib.EvalCode(runCtx, code, internal.ConvertToRisorOptions(constants.Ctx, e.ctxMap)...)
	execTime := time.Since(start)
	if err != nil {
		return outcome{err: failureFrom(err)}
	}
	if internal.TypeOf(obj) == data.ERROR {
		return outcome{err: failureFromObject(obj)}
	}

	return outcome{result: newEvalResult(e.logHandler, obj, execTime, exeID)}
}

// Close stops the loop when the evaluator owns it.
func (e *Evaluator) Close(ctx context.Context) error {
	if e.ownsLoop {
		return e.loop.Stop(ctx)
	}
	return nil
}
