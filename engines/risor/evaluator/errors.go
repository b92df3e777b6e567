package evaluator

import "errors"

var (
	ErrExecUnitNil     = errors.New("executable unit is nil")
	ErrBytecodeNil     = errors.New("bytecode is nil")
	ErrInvalidBytecode = errors.New("invalid bytecode type")
	ErrWrongEngine     = errors.New("executable unit targets a different engine")
	ErrEvalPanicked    = errors.New("evaluation panicked")
)
