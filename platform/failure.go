package platform

import "strings"

// EvalFailure describes a compile-time or run-time failure of caller-supplied
// source text. Cause links to the failure that produced this one, mirroring
// the error's own causal chain.
type EvalFailure struct {
	// Description is human readable and starts with the error class name,
	// e.g. "ReferenceError: foo is not defined". It may include a stack.
	Description string

	Cause *EvalFailure
}

// NewEvalFailure builds a failure chain from descriptions, outermost first.
func NewEvalFailure(description string, causes ...string) *EvalFailure {
	f := &EvalFailure{Description: description}
	cur := f
	for _, c := range causes {
		cur.Cause = &EvalFailure{Description: c}
		cur = cur.Cause
	}
	return f
}

// Error returns the first line of the description.
func (f *EvalFailure) Error() string {
	if f == nil {
		return "<nil>"
	}
	line, _, _ := strings.Cut(f.Description, "\n")
	return line
}

// Unwrap returns the cause, so errors.As and errors.Unwrap walk the chain.
func (f *EvalFailure) Unwrap() error {
	if f == nil || f.Cause == nil {
		return nil
	}
	return f.Cause
}

// Depth returns the number of failures in the chain, including f.
func (f *EvalFailure) Depth() int {
	n := 0
	for cur := f; cur != nil; cur = cur.Cause {
		n++
	}
	return n
}
