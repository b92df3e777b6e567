package evaluator

import (
	"fmt"
	"log/slog"
	"time"

	starlarkLib "go.starlark.net/starlark"

	"github.com/bpcreech/http-eval/engines/starlark/internal"
	"github.com/bpcreech/http-eval/platform/data"
)

// execResult is the completion value of a Starlark evaluation. The value is
// converted to Go while still on the loop, because the ctx dict it may share
// structure with keeps changing afterwards.
type execResult struct {
	kind        data.Types
	value       any
	inspect     string
	execTime    time.Duration
	scriptExeID string
	logger      *slog.Logger
}

func newEvalResult(
	handler slog.Handler,
	obj starlarkLib.Value,
	execTime time.Duration,
	versionID string,
) *execResult {
	r := &execResult{
		execTime:    execTime,
		scriptExeID: versionID,
		logger:      slog.New(handler.WithGroup("execResult")),
	}

	if obj == nil {
		r.kind = data.UNDEFINED
		r.inspect = "undefined"
		return r
	}

	r.kind = typeOf(obj)
	r.inspect = obj.String()
	v, err := internal.ConvertStarlarkValueToInterface(obj)
	if err != nil {
		r.logger.Debug("Result has no JSON form", "type", obj.Type(), "error", err)
	}
	r.value = v
	return r
}

func (r *execResult) String() string {
	return fmt.Sprintf(
		"ExecResult{Type: %s, Value: %v, ExecTime: %s, ScriptExeID: %s}",
		r.Type(), r.inspect, r.GetExecTime(), r.GetScriptExeID())
}

func (r *execResult) Type() data.Types {
	return r.kind
}

func (r *execResult) GetScriptExeID() string {
	return r.scriptExeID
}

func (r *execResult) GetExecTime() string {
	return r.execTime.String()
}

func (r *execResult) Inspect() string {
	return r.inspect
}

// Interface returns the Go native type for the Starlark value
func (r *execResult) Interface() any {
	return r.value
}

func typeOf(v starlarkLib.Value) data.Types {
	switch v.Type() {
	case "NoneType":
		return data.NONE
	case "bool":
		return data.BOOL
	case "int":
		return data.INT
	case "float":
		return data.FLOAT
	case "string", "bytes":
		return data.STRING
	case "list", "range":
		return data.LIST
	case "tuple":
		return data.TUPLE
	case "dict":
		return data.MAP
	case "set":
		return data.SET
	case "function", "builtin_function_or_method":
		return data.FUNCTION
	default:
		return data.ERROR
	}
}
