package evaluator

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bpcreech/http-eval/platform/data"
)

// execResult is the completion value of a JavaScript evaluation, captured on
// the loop goroutine so it can be read from any goroutine afterwards.
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
	kind data.Types,
	value any,
	inspect string,
	execTime time.Duration,
	versionID string,
) *execResult {
	return &execResult{
		kind:        kind,
		value:       value,
		inspect:     inspect,
		execTime:    execTime,
		scriptExeID: versionID,
		logger:      slog.New(handler.WithGroup("execResult")),
	}
}

func (r *execResult) String() string {
	return fmt.Sprintf(
		"ExecResult{Type: %s, Value: %v, ExecTime: %s, ScriptExeID: %s}",
		r.Type(), r.inspect, r.GetExecTime(), r.GetScriptExeID())
}

func (r *execResult) Type() data.Types {
	return r.kind
}

func (r *execResult) Inspect() string {
	return r.inspect
}

// Interface returns the result as decoded from its JSON form; numbers are json.Number.
func (r *execResult) Interface() any {
	return r.value
}

func (r *execResult) GetScriptExeID() string {
	return r.scriptExeID
}

func (r *execResult) GetExecTime() string {
	return r.execTime.String()
}
