package evaluator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dop251/goja"

	"github.com/bpcreech/http-eval/engines/goja/internal"
	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/internal/eventloop"
	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/constants"
	"github.com/bpcreech/http-eval/platform/data"
	"github.com/bpcreech/http-eval/platform/script"
)

const defaultMaxCallStackSize = 10000

// Evaluator runs JavaScript snippets against one long-lived execution
// context. The runtime, the context object and all timers are confined to
// the event loop; Eval may be called from any goroutine.
type Evaluator struct {
	loop             *eventloop.Loop
	ownsLoop         bool
	provider         data.Provider
	maxCallStackSize int

	// loop-owned
	vm   *goja.Runtime
	this *goja.Object
	host *internal.Host

	logHandler slog.Handler
	logger     *slog.Logger
}

type outcome struct {
	result *execResult
	err    error
}

// New creates the runtime and the execution context on the loop.
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
		e.logHandler, e.logger = helpers.SetupLogger(e.logHandler, "goja", "Evaluator")
	}

	seed, err := e.loadSeed(ctx)
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
		return nil, fmt.Errorf("failed to initialise runtime: %w", err)
	}
	if initErr != nil {
		return nil, initErr
	}

	return e, nil
}

func (e *Evaluator) String() string {
	return "goja.Evaluator"
}

func (e *Evaluator) loadSeed(ctx context.Context) (map[string]any, error) {
	if e.provider == nil {
		return nil, nil
	}
	seed, err := e.provider.GetData(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get seed data from provider: %w", err)
	}
	e.logger.DebugContext(ctx, "Seed data loaded", "keys", len(seed))
	return seed, nil
}

// init runs on the loop.
func (e *Evaluator) init(seed map[string]any) error {
	vm := goja.New()
	vm.SetMaxCallStackSize(e.maxCallStackSize)

	host := internal.NewHost(e.loop, e.logger.WithGroup("host"))
	if err := host.Register(vm); err != nil {
		return fmt.Errorf("failed to register host globals: %w", err)
	}

	this := vm.NewObject()
	if len(seed) > 0 {
		parsed, err := parseJSON(vm, seed)
		if err != nil {
			return fmt.Errorf("failed to seed execution context: %w", err)
		}
		this = parsed
	}

	e.vm = vm
	e.this = this
	e.host = host
	return nil
}

// parseJSON builds a plain JS object from seed, so later mutations behave
// exactly like properties set by scripts.
func parseJSON(vm *goja.Runtime, seed map[string]any) (*goja.Object, error) {
	raw, err := json.Marshal(seed)
	if err != nil {
		return nil, err
	}
	parse, ok := goja.AssertFunction(vm.Get("JSON").ToObject(vm).Get("parse"))
	if !ok {
		return nil, fmt.Errorf("JSON.parse is not a function")
	}
	v, err := parse(goja.Undefined(), vm.ToValue(string(raw)))
	if err != nil {
		return nil, err
	}
	return v.ToObject(vm), nil
}

// Eval runs unit with the execution context as `this` and waits for the
// result. Async units are awaited without blocking the loop, so other
// evaluations and timers proceed in the meantime.
func (e *Evaluator) Eval(ctx context.Context, unit *script.ExecutableUnit) (platform.EvaluatorResponse, error) {
	prog, err := e.program(unit)
	if err != nil {
		return nil, err
	}

	exeID := unit.GetID()
	mode := unit.GetMode()
	logger := e.logger.WithGroup("Eval").With("exeID", exeID, "mode", mode.String())
	if reqID := constants.RequestIDFrom(ctx); reqID != "" {
		logger = logger.With("requestID", reqID)
	}

	done := make(chan outcome, 1)
	if err := e.loop.Submit(func() { e.run(prog, mode, exeID, done) }); err != nil {
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

func (e *Evaluator) program(unit *script.ExecutableUnit) (*goja.Program, error) {
	if unit == nil || unit.GetContent() == nil {
		return nil, ErrExecUnitNil
	}
	if unit.GetEngineType() != engineTypes.Goja {
		return nil, fmt.Errorf("%w: %s", ErrWrongEngine, unit.GetEngineType())
	}

	bytecode := unit.GetContent().GetByteCode()
	if bytecode == nil {
		return nil, ErrBytecodeNil
	}
	prog, ok := bytecode.(*goja.Program)
	if !ok {
		return nil, fmt.Errorf("%w: expected *goja.Program, got %T", ErrInvalidBytecode, bytecode)
	}
	if prog == nil {
		return nil, ErrBytecodeNil
	}
	return prog, nil
}

// settler delivers the first outcome of an evaluation and drops the rest.
// It is only used on the loop.
type settler struct {
	done   chan<- outcome
	sent   bool
	logger *slog.Logger
}

func (s *settler) send(out outcome) {
	if s.sent {
		return
	}
	s.sent = true
	s.done <- out
}

// recover is deferred by everything that may settle an evaluation, so a
// panic on the loop still answers the caller.
func (s *settler) recover() {
	if r := recover(); r != nil {
		s.logger.Error("Evaluation panicked", "panic", r)
		s.send(outcome{err: fmt.Errorf("%w: %v", ErrEvalPanicked, r)})
	}
}

// run executes on the loop and settles done exactly once.
func (e *Evaluator) run(prog *goja.Program, mode script.Mode, exeID string, done chan<- outcome) {
	s := &settler{done: done, logger: e.logger.With("exeID", exeID)}
	defer s.recover()
	start := time.Now()

	fnVal, err := e.vm.RunProgram(prog)
	if err != nil {
		s.send(outcome{err: internal.FailureFromError(e.vm, err)})
		return
	}
	fn, ok := goja.AssertFunction(fnVal)
	if !ok {
		s.send(outcome{err: ErrNotCallable})
		return
	}

	ret, err := fn(e.this)
	if err != nil {
		s.send(outcome{err: internal.FailureFromError(e.vm, err)})
		return
	}

	if mode != script.Async {
		s.send(e.complete(ret, start, exeID))
		return
	}
	e.await(ret, start, exeID, s)
}

// await settles s from the promise returned by an async wrapper. Pending
// promises are observed with reactions, so the loop is free until they run.
func (e *Evaluator) await(ret goja.Value, start time.Time, exeID string, s *settler) {
	promise, ok := ret.Export().(*goja.Promise)
	if !ok {
		s.send(e.complete(ret, start, exeID))
		return
	}

	switch promise.State() {
	case goja.PromiseStateFulfilled:
		s.send(e.complete(promise.Result(), start, exeID))
		return
	case goja.PromiseStateRejected:
		s.send(outcome{err: internal.FailureFromValue(e.vm, promise.Result())})
		return
	}

	obj := ret.ToObject(e.vm)
	var thenVal goja.Value
	if exc := e.vm.Try(func() { thenVal = obj.Get("then") }); exc != nil {
		s.send(outcome{err: internal.FailureFromError(e.vm, exc)})
		return
	}
	then, ok := goja.AssertFunction(thenVal)
	if !ok {
		s.send(outcome{err: fmt.Errorf("promise has no then method")})
		return
	}
	onFulfilled := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		defer s.recover()
		s.send(e.complete(call.Argument(0), start, exeID))
		return goja.Undefined()
	})
	onRejected := e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
		defer s.recover()
		s.send(outcome{err: internal.FailureFromValue(e.vm, call.Argument(0))})
		return goja.Undefined()
	})
	if _, err := then(obj, onFulfilled, onRejected); err != nil {
		s.send(outcome{err: fmt.Errorf("failed to observe promise: %w", err)})
	}
}

// complete captures v while still on the loop.
func (e *Evaluator) complete(v goja.Value, start time.Time, exeID string) outcome {
	value, present, err := internal.ToJSON(e.vm, v)
	if err != nil {
		return outcome{err: err}
	}

	kind := internal.TypeOf(v)
	if !present && kind != data.FUNCTION {
		kind = data.UNDEFINED
	}

	inspect := internal.Inspect(e.vm, v, kind)
	return outcome{result: newEvalResult(e.logHandler, kind, value, inspect, time.Since(start), exeID)}
}

// PendingTimers returns the number of script timers that have not fired yet.
func (e *Evaluator) PendingTimers(ctx context.Context) (int, error) {
	var n int
	if err := e.loop.Do(ctx, func() { n = e.host.Pending() }); err != nil {
		return 0, err
	}
	return n, nil
}

// Close cancels pending timers and, when the evaluator created its own loop, stops it.
func (e *Evaluator) Close(ctx context.Context) error {
	if err := e.loop.Do(ctx, func() { e.host.StopAll() }); err != nil {
		e.logger.WarnContext(ctx, "Failed to stop timers", "error", err)
	}
	if e.ownsLoop {
		return e.loop.Stop(ctx)
	}
	return nil
}
