package platform

import (
	"context"

	"github.com/bpcreech/http-eval/platform/data"
	"github.com/bpcreech/http-eval/platform/script"
)

// Evaluator runs compiled snippets against a single long-lived execution context.
type Evaluator interface {
	// Eval runs unit with the execution context bound as its receiver and
	// returns the completion value. Failures of the snippet itself (thrown
	// exceptions, rejected promises) are returned as *EvalFailure; any other
	// error means the evaluator could not run the snippet at all.
	//
	// Eval blocks until the snippet settles or ctx is done. A done ctx stops
	// the wait but not the snippet, which still runs to completion.
	Eval(ctx context.Context, unit *script.ExecutableUnit) (EvaluatorResponse, error)
}

// EvaluatorResponse is the completion value of one evaluation.
type EvaluatorResponse interface {
	// Type of the object.
	Type() data.Types

	// Inspect returns a string representation of the given object.
	Inspect() string

	// Interface converts the given object to a JSON-compatible Go value.
	// It returns nil for both null and undefined; use Type to tell them apart.
	Interface() any

	// GetScriptExeID returns the ID of the script that generated the object.
	GetScriptExeID() string

	// GetExecTime returns the time it took to execute the script
	GetExecTime() string
}
