package compiler

import "errors"

var (
	// ErrContentNil is returned for a missing reader or an empty snippet.
	ErrContentNil = errors.New("no starlark source to compile")
	// ErrValidationFailed wraps the SyntaxError failure of a rejected snippet.
	ErrValidationFailed = errors.New("starlark snippet rejected")
)
