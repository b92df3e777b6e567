package compiler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	risorLib "github.com/risor-io/risor"
	risorCompiler "github.com/risor-io/risor/compiler"
	risorErrors "github.com/risor-io/risor/errz"
	risorParser "github.com/risor-io/risor/parser"

	"github.com/bpcreech/http-eval/internal/helpers"
	"github.com/bpcreech/http-eval/platform"
	"github.com/bpcreech/http-eval/platform/constants"
	"github.com/bpcreech/http-eval/platform/script"
)

// Compiler turns Risor snippets into bytecode. Builtins and ctx are resolved
// at compile time, so a snippet naming anything else is rejected here.
type Compiler struct {
	extra      []string
	globals    []string
	mode       script.Mode
	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a Risor compiler. Without WithMode it compiles synchronous snippets.
func New(opts ...FunctionalOption) (*Compiler, error) {
	c := &Compiler{}
	c.applyDefaults()

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("error applying compiler option: %w", err)
		}
	}

	if c.logger != nil {
		c.logHandler = c.logger.Handler()
	} else {
		c.logHandler, c.logger = helpers.SetupLogger(c.logHandler, "risor", "Compiler")
	}

	globals := risorLib.NewConfig().GlobalNames()
	for _, name := range append([]string{constants.Ctx}, c.extra...) {
		if !slices.Contains(globals, name) {
			globals = append(globals, name)
		}
	}
	c.globals = globals

	return c, nil
}

func (c *Compiler) String() string {
	return fmt.Sprintf("risor.Compiler{mode: %s}", c.mode)
}

// Compile turns the provided snippet into bytecode. Parse and compile errors
// are returned as a *platform.EvalFailure wrapped in ErrValidationFailed.
func (c *Compiler) Compile(scriptReader io.ReadCloser) (script.ExecutableContent, error) {
	if scriptReader == nil {
		return nil, ErrContentNil
	}

	body, err := io.ReadAll(scriptReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	if err := scriptReader.Close(); err != nil {
		return nil, fmt.Errorf("failed to close reader: %w", err)
	}

	return c.compile(string(body))
}

func (c *Compiler) compile(source string) (*Executable, error) {
	logger := c.logger.WithGroup("compile")
	if source == "" {
		logger.Error("Compile called with empty script")
		return nil, ErrContentNil
	}

	ast, err := risorParser.Parse(context.Background(), source)
	if err != nil {
		logger.Debug("Parsing failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, compileFailure(err))
	}

	code, err := risorCompiler.Compile(ast, risorCompiler.WithGlobalNames(c.globals))
	if err != nil {
		logger.Debug("Compilation failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, compileFailure(err))
	}

	logger.Debug("Compilation completed", "mode", c.mode)
	return &Executable{source: source, mode: c.mode, ByteCode: code}, nil
}

// compileFailure reports parse and compile errors alike as a SyntaxError.
// Parser errors also carry a rendering of the offending line.
func compileFailure(err error) *platform.EvalFailure {
	desc := "SyntaxError: " + err.Error()
	var friendly risorErrors.FriendlyError
	if errors.As(err, &friendly) {
		desc += "\n" + friendly.FriendlyErrorMessage()
	}
	return &platform.EvalFailure{Description: desc}
}
