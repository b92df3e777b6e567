package evaluator

import (
	"errors"
	"strings"

	starlarkLib "go.starlark.net/starlark"

	"github.com/bpcreech/http-eval/platform"
)

const maxCauseDepth = 32

// failureFrom converts a runtime error into an EvalFailure. Starlark errors
// carry a call stack, and errors raised by Go builtins are kept as causes.
func failureFrom(err error) *platform.EvalFailure {
	return failureAt(err, 0)
}

func failureAt(err error, depth int) *platform.EvalFailure {
	f := &platform.EvalFailure{Description: describe(err)}
	if depth >= maxCauseDepth {
		return f
	}

	cause := errors.Unwrap(err)
	// a builtin's error is copied into the EvalError message; skip the duplicate
	if evalErr, ok := err.(*starlarkLib.EvalError); ok && cause != nil && cause.Error() == evalErr.Msg {
		cause = errors.Unwrap(cause)
	}
	if cause != nil {
		f.Cause = failureAt(cause, depth+1)
	}
	return f
}

func describe(err error) string {
	if evalErr, ok := err.(*starlarkLib.EvalError); ok {
		desc := "Error: " + evalErr.Msg
		if stack := strings.TrimRight(evalErr.CallStack.String(), "\n"); stack != "" {
			desc += "\n" + stack
		}
		return desc
	}
	return "Error: " + err.Error()
}
