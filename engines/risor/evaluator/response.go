package evaluator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/risor-io/risor/object"

	"github.com/bpcreech/http-eval/engines/risor/internal"
	"github.com/bpcreech/http-eval/platform/data"
)

// execResult is the completion value of a Risor evaluation, converted on the
// loop because ctx may share structure with it.
type execResult struct {
	kind        data.Types
	value       any
	inspect     string
	execTime    time.Duration
	scriptExeID string
	logger      *slog.Logger
}

func newEvalResult(handler slog.Handler, obj object.Object, execTime time.Duration, versionID string) *execResult {
	r := &execResult{
		kind:        internal.TypeOf(obj),
		inspect:     "undefined",
		execTime:    execTime,
		scriptExeID: versionID,
		logger:      slog.New(handler.WithGroup("execResult")),
	}
	if obj == nil {
		return r
	}

	r.inspect = obj.Inspect()
	value, ok := internal.ToJSON(obj)
	if !ok && r.kind != data.FUNCTION {
		r.logger.Debug("Result has no JSON form", "type", obj.Type())
		r.kind = data.UNDEFINED
	}
	r.value = value
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

func (r *execResult) Interface() any {
	return r.value
}
