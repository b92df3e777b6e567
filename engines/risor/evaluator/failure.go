package evaluator

import (
	"errors"

	"github.com/risor-io/risor/object"

	"github.com/bpcreech/http-eval/platform"
)

const maxCauseDepth = 32

// failureFrom converts a runtime error into an EvalFailure, keeping wrapped
// errors as causes.
func failureFrom(err error) *platform.EvalFailure {
	return failureAt(err, 0)
}

func failureAt(err error, depth int) *platform.EvalFailure {
	f := &platform.EvalFailure{Description: "Error: " + err.Error()}
	if depth >= maxCauseDepth {
		return f
	}
	cause := errors.Unwrap(err)
	// fmt-wrapped errors repeat their cause's text; keep only distinct links
	for cause != nil && cause.Error() == err.Error() {
		cause = errors.Unwrap(cause)
	}
	if cause != nil {
		f.Cause = failureAt(cause, depth+1)
	}
	return f
}

// failureFromObject reports an error value left as the completion value.
func failureFromObject(obj object.Object) *platform.EvalFailure {
	if err, ok := obj.Interface().(error); ok && err != nil {
		return failureFrom(err)
	}
	return &platform.EvalFailure{Description: "Error: " + obj.Inspect()}
}
