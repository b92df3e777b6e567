package compile

import (
	"errors"
	"fmt"
	"maps"

	starlarkLib "go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/bpcreech/http-eval/engines/starlark/internal"
)

// ErrCompileFailed wraps every parse and resolve error.
var ErrCompileFailed = errors.New("starlark compile error")

// FileOptions returns the dialect every snippet is compiled with. Snippets
// are written like scripts, so top-level control flow, while loops and
// recursion are allowed.
func FileOptions() *syntax.FileOptions {
	return &syntax.FileOptions{
		Set:             true,
		While:           true,
		TopLevelControl: true,
		GlobalReassign:  true,
		Recursion:       true,
	}
}

// compile parses and compiles the script content into a Starlark program
func compile(
	scriptBodyBytes []byte,
	filename string,
	opts *syntax.FileOptions,
	globals starlarkLib.StringDict,
) (*starlarkLib.Program, error) {
	// a nil source makes the parser read filename from disk
	if scriptBodyBytes == nil {
		return nil, fmt.Errorf("%w: no source", ErrCompileFailed)
	}

	if opts == nil {
		opts = &syntax.FileOptions{}
	}

	// standard modules first, then provided globals may override them
	mergedGlobals := internal.StarlarkModules()
	maps.Copy(mergedGlobals, globals)

	f, err := opts.Parse(filename, scriptBodyBytes, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}

	prog, err := starlarkLib.FileProgram(f, mergedGlobals.Has)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCompileFailed, err)
	}

	return prog, nil
}

// CompileWithEmptyGlobals parses and compiles the script content, with custom global names
// which are needed when parsing a script that will eventually have globals injected at eval time.
// The ctx global, for example, only exists once the evaluator binds the execution context.
func CompileWithEmptyGlobals(
	scriptBodyBytes []byte,
	filename string,
	globals []string,
) (*starlarkLib.Program, error) {
	stdModules := internal.StarlarkModules()

	predeclared := make(starlarkLib.StringDict, len(globals))
	for _, name := range globals {
		if stdModules.Has(name) {
			continue
		}
		predeclared[name] = starlarkLib.None
	}

	return compile(scriptBodyBytes, filename, FileOptions(), predeclared)
}
