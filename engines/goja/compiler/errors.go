package compiler

import "errors"

var (
	ErrBytecodeNil        = errors.New("javascript bytecode is nil")
	ErrContentNil         = errors.New("javascript content is nil")
	ErrExecCreationFailed = errors.New("unable to create javascript executable")
	ErrValidationFailed   = errors.New("javascript script validation error")
)
