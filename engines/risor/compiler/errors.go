package compiler

import "errors"

var (
	ErrContentNil       = errors.New("no risor source to compile")
	ErrValidationFailed = errors.New("risor snippet rejected")
)
