package types

import (
	"errors"
	"fmt"
	"strings"
)

// Type is the name of a script engine.
type Type string

const (
	// Goja runs JavaScript (ES2020+ with async/await) on the goja runtime.
	Goja Type = "javascript"

	// Starlark runs Starlark, a Python dialect without suspension points.
	Starlark Type = "starlark"

	// Risor runs Risor scripts. Like Starlark it cannot suspend.
	Risor Type = "risor"
)

// ErrUnknownEngine is returned by Parse for names that do not match an engine.
var ErrUnknownEngine = errors.New("unknown engine type")

func (t Type) String() string {
	return string(t)
}

// Parse converts a config value into a Type. Matching is case-insensitive,
// and "js" and "goja" are accepted as aliases for Goja.
func Parse(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", string(Goja), "js", "goja":
		return Goja, nil
	case string(Starlark), "star":
		return Starlark, nil
	case string(Risor):
		return Risor, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownEngine, name)
	}
}
