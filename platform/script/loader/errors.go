package loader

import "errors"

// ErrScriptNotAvailable is returned when there is no script to return.
var ErrScriptNotAvailable = errors.New("script not available")
