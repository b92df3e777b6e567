package script

import "io"

// Compiler defines the interface for validating scripts before execution.
// It checks syntax, and may perform parsing and compilation. A valid script
// is returned as ExecutableContent.
//
// Compilation happens before any statement runs, so a script that fails to
// compile never touches the execution context.
type Compiler interface {
	// Compile reads and closes scriptReader, returning the compiled content.
	// Syntax errors are returned wrapped around a *platform.EvalFailure.
	Compile(scriptReader io.ReadCloser) (ExecutableContent, error)
}
