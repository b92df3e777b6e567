package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/dop251/goja"
	"github.com/dop251/goja/ast"

	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/script"
)

const defaultSourceName = "<eval>"

// Snippets become the body of an anonymous function, the same shape the
// Function constructor produces, so `return` and (in async mode) `await`
// are legal at the top level.
const (
	syncPrefix  = "(function anonymous(\n) {\n"
	asyncPrefix = "(async function anonymous(\n) {\n"
	suffix      = "\n})"
)

var errUnbalanced = &platform.EvalFailure{Description: "SyntaxError: Unbalanced braces in function body"}

type Compiler struct {
	mode       script.Mode
	sourceName string
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a JavaScript compiler. Without WithMode it compiles synchronous snippets.
func New(opts ...FunctionalOption) (*Compiler, error) {
	c := &Compiler{}
	c.applyDefaults()

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying compiler option: %w", err)
		}
	}

	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("invalid compiler configuration: %w", err)
	}

	if c.logger != nil {
		c.logHandler = c.logger.Handler()
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "goja", "Compiler")
	}

	return c, nil
}

func (c *Compiler) String() string {
	return fmt.Sprintf("goja.Compiler{mode: %s}", c.mode)
}

// Compile turns the provided snippet into a program. Syntax errors are
// returned as a *platform.EvalFailure wrapped in ErrValidationFailed.
func (c *Compiler) Compile(scriptReader io.ReadCloser) (script.ExecutableContent, error) {
	if scriptReader == nil {
		return nil, ErrContentNil
	}

	scriptBodyBytes, err := io.ReadAll(scriptReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	if err := scriptReader.Close(); err != nil {
		return nil, fmt.Errorf("failed to close reader: %w", err)
	}

	return c.compile(scriptBodyBytes)
}

func (c *Compiler) compile(scriptBodyBytes []byte) (*Executable, error) {
	logger := c.logger.WithGroup("compile")
	if len(scriptBodyBytes) == 0 {
		logger.Error("Compile called with empty script")
		return nil, ErrContentNil
	}

	src := c.wrap(scriptBodyBytes)
	parsed, err := goja.Parse(c.sourceName, src)
	if err != nil {
		logger.Debug("Parsing failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, compileFailure(err))
	}
	if !c.wrapsWhole(parsed, len(src)) {
		logger.Debug("Snippet closes the wrapper function early")
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, errUnbalanced)
	}

	program, err := goja.CompileAST(parsed, false)
	if err != nil {
		logger.Debug("Compilation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, compileFailure(err))
	}
	if program == nil {
		logger.Error("Compilation returned nil program")
		return nil, ErrBytecodeNil
	}

	exe := newExecutable(scriptBodyBytes, c.mode, program)
	if exe == nil {
		return nil, ErrExecCreationFailed
	}

	logger.Debug("Compilation completed", "mode", c.mode)
	return exe, nil
}

func (c *Compiler) wrap(body []byte) string {
	prefix := syncPrefix
	if c.mode == script.Async {
		prefix = asyncPrefix
	}
	return prefix + string(body) + suffix
}

// wrapsWhole reports whether the parsed program is exactly the wrapper: one
// function expression whose closing brace is the one from suffix. A snippet
// that closes the wrapper early parses as more than that.
func (c *Compiler) wrapsWhole(prg *ast.Program, srcLen int) bool {
	if prg == nil || prg.File == nil || len(prg.Body) != 1 {
		return false
	}
	stmt, ok := prg.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return false
	}
	fn, ok := stmt.Expression.(*ast.FunctionLiteral)
	if !ok || fn.Body == nil || fn.Async != (c.mode == script.Async) {
		return false
	}
	closing := int(fn.Body.RightBrace) - prg.File.Base()
	return closing == srcLen-len("})")
}

// compileFailure maps goja's compile-time errors onto an EvalFailure. Both
// syntax and early reference errors already carry their class name as prefix.
func compileFailure(err error) *platform.EvalFailure {
	var syntaxErr *goja.CompilerSyntaxError
	var refErr *goja.CompilerReferenceError
	switch {
	case errors.As(err, &syntaxErr):
		return &platform.EvalFailure{Description: syntaxErr.Error()}
	case errors.As(err, &refErr):
		return &platform.EvalFailure{Description: refErr.Error()}
	default:
		return &platform.EvalFailure{Description: "SyntaxError: " + err.Error()}
	}
}
