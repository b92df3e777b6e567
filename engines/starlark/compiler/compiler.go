package compiler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"go.starlark.net/resolve"
	"go.starlark.net/syntax"

	"github.com/bpcreech/http-eval/engines/starlark/compiler/internal/compile"
	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/script"
)

const sourceName = "<eval>"

type Compiler struct {
	globals    []string
	mode       script.Mode
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a new Starlark Compiler. Global names are declared at parse
// time so that scripts may reference values bound only at eval time.
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
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "starlark", "Compiler")
	}

	return c, nil
}

func (c *Compiler) String() string {
	return "starlark.Compiler"
}

// Compile turns the provided script content into runnable bytecode.
func (c *Compiler) Compile(scriptReader io.ReadCloser) (script.ExecutableContent, error) {
	if scriptReader == nil {
		return nil, ErrContentNil
	}

	scriptBodyBytes, err := io.ReadAll(scriptReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}

	err = scriptReader.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close reader: %w", err)
	}

	return c.compile(scriptBodyBytes)
}

func (c *Compiler) compile(scriptBodyBytes []byte) (*Executable, error) {
	logger := c.logger.WithGroup("compile")
	if len(scriptBodyBytes) == 0 {
		logger.Error("Compile called with nil script")
		return nil, ErrContentNil
	}

	logger.Debug("Starting validation")

	program, err := compile.CompileWithEmptyGlobals(scriptBodyBytes, sourceName, c.globals)
	if err != nil {
		logger.Debug("Compilation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, compileFailure(err))
	}

	logger.Debug("Validation completed")
	return newExecutable(scriptBodyBytes, c.mode, program), nil
}

// compileFailure reports parse and resolve errors alike as a SyntaxError.
func compileFailure(err error) *platform.EvalFailure {
	var syntaxErr syntax.Error
	var resolveErrs resolve.ErrorList
	msg := err.Error()
	switch {
	case errors.As(err, &syntaxErr):
		msg = syntaxErr.Error()
	case errors.As(err, &resolveErrs):
		msg = resolveErrs.Error()
	}
	return &platform.EvalFailure{Description: "SyntaxError: " + msg}
}
