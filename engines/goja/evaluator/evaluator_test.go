package evaluator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/bpcreech/http-eval/engines/goja/compiler"
	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/internal/eventloop"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/data"
	"github.com/bpcreech/http-eval/platform/script"
	"github.com/bpcreech/http-eval/platform/script/loader"
)

func testHandler() slog.Handler {
	return slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn})
}

func newEvaluator(t *testing.T, opts ...FunctionalOption) *Evaluator {
	t.Helper()
	opts = append([]FunctionalOption{WithLogHandler(testHandler())}, opts...)
	e, err := New(context.Background(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		assert.NoError(t, e.Close(ctx))
	})
	return e
}

func newUnit(t *testing.T, src string, mode script.Mode) *script.ExecutableUnit {
	t.Helper()
	c, err := compiler.New(compiler.WithMode(mode), compiler.WithLogHandler(testHandler()))
	require.NoError(t, err)
	ldr, err := loader.NewFromString(src)
	require.NoError(t, err)
	unit, err := script.NewExecutableUnit(testHandler(), "", ldr, c)
	require.NoError(t, err)
	return unit
}

func eval(t *testing.T, e *Evaluator, src string, mode script.Mode) (platform.EvaluatorResponse, error) {
	t.Helper()
	return e.Eval(context.Background(), newUnit(t, src, mode))
}

func mustEval(t *testing.T, e *Evaluator, src string, mode script.Mode) platform.EvaluatorResponse {
	t.Helper()
	res, err := eval(t, e, src, mode)
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func evalFailure(t *testing.T, err error) *platform.EvalFailure {
	t.Helper()
	require.Error(t, err)
	var failure *platform.EvalFailure
	require.ErrorAs(t, err, &failure)
	return failure
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    []FunctionalOption
		wantErr string
	}{
		{name: "nil loop", opts: []FunctionalOption{WithLoop(nil)}, wantErr: "loop cannot be nil"},
		{name: "nil provider", opts: []FunctionalOption{WithDataProvider(nil)}, wantErr: "data provider cannot be nil"},
		{name: "bad stack size", opts: []FunctionalOption{WithMaxCallStackSize(0)}, wantErr: "must be positive"},
		{name: "nil handler", opts: []FunctionalOption{WithLogHandler(nil)}, wantErr: "log handler cannot be nil"},
		{name: "nil logger", opts: []FunctionalOption{WithLogger(nil)}, wantErr: "logger cannot be nil"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(context.Background(), tt.opts...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	t.Run("provider error", func(t *testing.T) {
		t.Parallel()
		p := new(data.MockProvider)
		p.On("GetData", mock.Anything).Return(nil, errors.New("no data"))
		_, err := New(context.Background(), WithDataProvider(p))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no data")
		p.AssertExpectations(t)
	})

	t.Run("shared loop is left running", func(t *testing.T) {
		t.Parallel()
		loop, err := eventloop.New()
		require.NoError(t, err)
		defer func() { assert.NoError(t, loop.Stop(context.Background())) }()

		e, err := New(context.Background(), WithLoop(loop), WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.Equal(t, "goja.Evaluator", e.String())
		require.NoError(t, e.Close(context.Background()))
		require.NoError(t, loop.Do(context.Background(), func() {}))
	})
}

func TestEvalSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		src      string
		wantType data.Types
		want     any
	}{
		{name: "arithmetic", src: "return 1 + 1", wantType: data.INT, want: json.Number("2")},
		{name: "float", src: "return 0.5", wantType: data.FLOAT, want: json.Number("0.5")},
		{name: "string", src: `return "a" + "b"`, wantType: data.STRING, want: "ab"},
		{name: "null", src: "return null", wantType: data.NONE, want: nil},
		{name: "list", src: "return [1, 'two']", wantType: data.LIST, want: []any{json.Number("1"), "two"}},
		{name: "object", src: "return {a: {b: true}}", wantType: data.MAP, want: map[string]any{"a": map[string]any{"b": true}}},
		{name: "no return", src: "1 + 1", wantType: data.UNDEFINED, want: nil},
		{name: "function", src: "return () => 1", wantType: data.FUNCTION, want: nil},
	}

	e := newEvaluator(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res := mustEval(t, e, tt.src, script.Sync)
			assert.Equal(t, tt.wantType, res.Type())
			assert.Equal(t, tt.want, res.Interface())
			assert.NotEmpty(t, res.GetScriptExeID())
			assert.NotEmpty(t, res.GetExecTime())
		})
	}
}

func TestInspect(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t)

	assert.Equal(t, `{"a":1}`, mustEval(t, e, "return {a: 1}", script.Sync).Inspect())
	assert.Equal(t, "undefined", mustEval(t, e, "void 0", script.Sync).Inspect())
	assert.Equal(t, "7", mustEval(t, e, "return 7", script.Sync).Inspect())
}

func TestContextPersists(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t)

	mustEval(t, e, "this.counter = 1", script.Sync)
	mustEval(t, e, "this.counter += 1", script.Sync)
	mustEval(t, e, "this.counter = await Promise.resolve(this.counter * 10)", script.Async)
	assert.Equal(t, json.Number("20"), mustEval(t, e, "return this.counter", script.Sync).Interface())

	res := mustEval(t, e, "return Object.keys(this)", script.Async)
	assert.Equal(t, []any{"counter"}, res.Interface())
}

func TestSeedData(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t, WithDataProvider(data.NewStaticProvider(map[string]any{
		"greeting": "hello",
		"nested":   map[string]any{"n": 1},
	})))

	res := mustEval(t, e, "return this.greeting + ' ' + this.nested.n", script.Sync)
	assert.Equal(t, "hello 1", res.Interface())

	mustEval(t, e, "this.nested.n = 2", script.Sync)
	assert.Equal(t, json.Number("2"), mustEval(t, e, "return this.nested.n", script.Sync).Interface())
}

func TestEvalAsync(t *testing.T) {
	t.Parallel()

	t.Run("already settled", func(t *testing.T) {
		t.Parallel()
		e := newEvaluator(t)
		res := mustEval(t, e, "return await Promise.resolve(5)", script.Async)
		assert.Equal(t, json.Number("5"), res.Interface())
	})

	t.Run("timer", func(t *testing.T) {
		t.Parallel()
		e := newEvaluator(t)
		res := mustEval(t, e, `await new Promise(r => setTimeout(r, 20)); return "slept"`, script.Async)
		assert.Equal(t, "slept", res.Interface())
	})

	t.Run("no return", func(t *testing.T) {
		t.Parallel()
		e := newEvaluator(t)
		res := mustEval(t, e, "await null", script.Async)
		assert.Equal(t, data.UNDEFINED, res.Type())
	})

	t.Run("concurrent sleeps overlap", func(t *testing.T) {
		t.Parallel()
		e := newEvaluator(t)

		// serial would be n*delay; overlapped runs must finish within a quarter
		// of that (750ms), 450ms over the ideal single delay
		const (
			n             = 10
			delay         = 300 * time.Millisecond
			serialDivisor = 4
		)
		src := fmt.Sprintf(`await new Promise(r => setTimeout(r, %d)); return "slept"`, delay.Milliseconds())
		start := time.Now()

		var wg sync.WaitGroup
		results := make([]platform.EvaluatorResponse, n)
		errs := make([]error, n)
		for i := range n {
			unit := newUnit(t, src, script.Async)
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = e.Eval(context.Background(), unit)
			}()
		}
		wg.Wait()
		elapsed := time.Since(start)

		for i := range n {
			require.NoError(t, errs[i])
			assert.Equal(t, "slept", results[i].Interface())
		}
		assert.GreaterOrEqual(t, elapsed, delay)
		assert.Less(t, elapsed, n*delay/serialDivisor, "%d evaluations of %s each should overlap", n, delay)
	})
}

func TestEvalFailures(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t)

	t.Run("reference error", func(t *testing.T) {
		t.Parallel()
		_, err := eval(t, e, "return foo.bar", script.Sync)
		f := evalFailure(t, err)
		assert.True(t, strings.HasPrefix(f.Description, "ReferenceError: foo is not defined"), f.Description)
	})

	t.Run("thrown with cause", func(t *testing.T) {
		t.Parallel()
		_, err := eval(t, e, `throw new Error("outer", {cause: new TypeError("inner")})`, script.Sync)
		f := evalFailure(t, err)
		require.Equal(t, 2, f.Depth())
		assert.True(t, strings.HasPrefix(f.Cause.Description, "TypeError: inner"))
	})

	t.Run("settled rejection", func(t *testing.T) {
		t.Parallel()
		_, err := eval(t, e, `await null; throw new RangeError("nope")`, script.Async)
		f := evalFailure(t, err)
		assert.True(t, strings.HasPrefix(f.Description, "RangeError: nope"), f.Description)
	})

	t.Run("pending rejection", func(t *testing.T) {
		t.Parallel()
		_, err := eval(t, e, `
			await new Promise(r => setTimeout(r, 5));
			throw new Error("late", {cause: new Error("why")});
		`, script.Async)
		f := evalFailure(t, err)
		assert.Equal(t, 2, f.Depth())
		assert.True(t, strings.HasPrefix(f.Description, "Error: late"))
	})

	t.Run("failure leaves context usable", func(t *testing.T) {
		t.Parallel()
		_, err := eval(t, e, "this.partial = 1; undefinedFn()", script.Sync)
		evalFailure(t, err)
		res := mustEval(t, e, "return this.partial", script.Sync)
		assert.Equal(t, json.Number("1"), res.Interface())
	})

	t.Run("unserialisable result", func(t *testing.T) {
		t.Parallel()
		_, err := eval(t, e, "const o = {}; o.o = o; return o", script.Sync)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to serialise result")
	})
}

func TestUnprintableValues(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t)

	tests := []struct {
		name    string
		src     string
		wantErr string
	}{
		{name: "null prototype result", src: "return Object.create(null)"},
		{name: "null prototype thrown", src: "throw Object.create(null)", wantErr: "[object Object]"},
		{name: "throwing toString thrown", src: "throw {toString() { throw 1 }}", wantErr: "[object Object]"},
	}

	prefixes := map[string]struct {
		mode   script.Mode
		prefix string
	}{
		"sync":          {mode: script.Sync},
		"async settled": {mode: script.Async},
		"async pending": {mode: script.Async, prefix: "await new Promise(r => setTimeout(r, 1));\n"},
	}

	for _, tt := range tests {
		for pname, p := range prefixes {
			t.Run(tt.name+"/"+pname, func(t *testing.T) {
				t.Parallel()
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()

				res, err := e.Eval(ctx, newUnit(t, p.prefix+tt.src, p.mode))
				require.NotErrorIs(t, err, context.DeadlineExceeded)
				if tt.wantErr == "" {
					require.NoError(t, err)
					assert.Equal(t, data.MAP, res.Type())
					assert.Equal(t, map[string]any{}, res.Interface())
					assert.Equal(t, "{}", res.Inspect())
					return
				}
				f := evalFailure(t, err)
				assert.Equal(t, tt.wantErr, f.Description)
			})
		}
	}
}

func TestStackOverflow(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t, WithMaxCallStackSize(64))

	_, err := eval(t, e, "function f() { return f() } return f()", script.Sync)
	evalFailure(t, err)

	res := mustEval(t, e, "return 'still alive'", script.Sync)
	assert.Equal(t, "still alive", res.Interface())
}

func TestCallerGivesUp(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	unit := newUnit(t, `await new Promise(r => setTimeout(r, 50)); this.finished = true`, script.Async)
	_, err := e.Eval(ctx, unit)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	assert.Eventually(t, func() bool {
		res, err := eval(t, e, "return this.finished === true", script.Sync)
		return err == nil && res.Interface() == true
	}, time.Second, 10*time.Millisecond)
}

func TestPendingTimers(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t)

	mustEval(t, e, "setTimeout(() => {}, 10000); setInterval(() => {}, 10000)", script.Sync)
	n, err := e.PendingTimers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestEvalInvalidUnits(t *testing.T) {
	t.Parallel()
	e := newEvaluator(t)

	unitWith := func(t *testing.T, engine engineTypes.Type, bytecode any) *script.ExecutableUnit {
		t.Helper()
		content := new(script.MockExecutableContent)
		content.On("GetSource").Return("src")
		content.On("GetEngineType").Return(engine)
		content.On("GetByteCode").Return(bytecode).Maybe()
		c := new(script.MockCompiler)
		c.On("Compile", mock.Anything).Return(content, nil)
		unit, err := script.NewExecutableUnit(testHandler(), "", loader.NewMockLoaderWithContent([]byte("src")), c)
		require.NoError(t, err)
		return unit
	}

	t.Run("nil unit", func(t *testing.T) {
		_, err := e.Eval(context.Background(), nil)
		require.ErrorIs(t, err, ErrExecUnitNil)
	})

	t.Run("wrong engine", func(t *testing.T) {
		_, err := e.Eval(context.Background(), unitWith(t, engineTypes.Starlark, nil))
		require.ErrorIs(t, err, ErrWrongEngine)
	})

	t.Run("nil bytecode", func(t *testing.T) {
		_, err := e.Eval(context.Background(), unitWith(t, engineTypes.Goja, nil))
		require.ErrorIs(t, err, ErrBytecodeNil)
	})

	t.Run("wrong bytecode type", func(t *testing.T) {
		_, err := e.Eval(context.Background(), unitWith(t, engineTypes.Goja, "not a program"))
		require.ErrorIs(t, err, ErrInvalidBytecode)
	})
}

func TestEvalAfterClose(t *testing.T) {
	t.Parallel()

	e, err := New(context.Background(), WithLogHandler(testHandler()))
	require.NoError(t, err)
	require.NoError(t, e.Close(context.Background()))

	_, err = eval(t, e, "return 1", script.Sync)
	require.ErrorIs(t, err, eventloop.ErrLoopStopped)
}
