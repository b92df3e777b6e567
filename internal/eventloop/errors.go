package eventloop

import "errors"

var (
	ErrLoopStopped = errors.New("event loop is stopped")
	ErrJobNil      = errors.New("job is nil")
)
