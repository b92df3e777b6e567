package compiler

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	risorCompiler "github.com/risor-io/risor/compiler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	engineTypes "github.com/bpcreech/http-eval/engines/types"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/script"
)

type errReader struct{}

func (errReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }
func (errReader) Close() error             { return nil }

func newReader(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		c, err := New()
		require.NoError(t, err)
		assert.Equal(t, script.Sync, c.mode)
		assert.Contains(t, c.globals, "ctx")
		assert.Contains(t, c.globals, "len")
		assert.Equal(t, "risor.Compiler{mode: sync}", c.String())
	})

	t.Run("extra globals are not duplicated", func(t *testing.T) {
		t.Parallel()
		c, err := New(WithGlobals([]string{"request", "ctx"}), WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.Contains(t, c.globals, "request")
		count := 0
		for _, g := range c.globals {
			if g == "ctx" {
				count++
			}
		}
		assert.Equal(t, 1, count)
	})

	errs := []struct {
		name    string
		opt     FunctionalOption
		wantErr string
	}{
		{name: "nil handler", opt: WithLogHandler(nil), wantErr: "log handler cannot be nil"},
		{name: "nil logger", opt: WithLogger(nil), wantErr: "logger cannot be nil"},
		{name: "bad mode", opt: WithMode(script.Mode(9)), wantErr: "unknown evaluation mode"},
	}
	for _, tt := range errs {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tt.opt)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	valid := []struct {
		name string
		src  string
	}{
		{name: "expression", src: "1 + 2"},
		{name: "ctx write", src: `ctx["n"] = 3`},
		{name: "function", src: "func double(x) { return x * 2 }\ndouble(ctx[\"n\"])"},
		{name: "builtins", src: `len([1, 2, 3])`},
	}
	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := New(WithMode(script.Async))
			require.NoError(t, err)

			content, err := c.Compile(newReader(tt.src))
			require.NoError(t, err)
			assert.Equal(t, tt.src, content.GetSource())
			assert.Equal(t, engineTypes.Risor, content.GetEngineType())
			assert.Equal(t, script.Async, content.GetMode())

			code, ok := content.GetByteCode().(*risorCompiler.Code)
			require.True(t, ok)
			assert.NotNil(t, code)
		})
	}

	invalid := []struct {
		name string
		src  string
	}{
		{name: "unterminated call", src: `print("hello"`},
		{name: "undefined global", src: `print(undefined_global)`},
		{name: "garbage", src: "func {"},
	}
	for _, tt := range invalid {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := New()
			require.NoError(t, err)

			_, err = c.Compile(newReader(tt.src))
			require.ErrorIs(t, err, ErrValidationFailed)

			var failure *platform.EvalFailure
			require.ErrorAs(t, err, &failure)
			assert.True(t, strings.HasPrefix(failure.Description, "SyntaxError: "), failure.Description)
		})
	}

	t.Run("nil reader", func(t *testing.T) {
		t.Parallel()
		c, err := New()
		require.NoError(t, err)
		_, err = c.Compile(nil)
		require.ErrorIs(t, err, ErrContentNil)
	})

	t.Run("empty script", func(t *testing.T) {
		t.Parallel()
		c, err := New()
		require.NoError(t, err)
		_, err = c.Compile(newReader(""))
		require.ErrorIs(t, err, ErrContentNil)
	})

	t.Run("read failure", func(t *testing.T) {
		t.Parallel()
		c, err := New()
		require.NoError(t, err)
		_, err = c.Compile(errReader{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to read script")
	})
}
