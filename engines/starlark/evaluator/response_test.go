package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	starlarkLib "go.starlark.net/starlark"

	"github.com/bpcreech/http-eval/platform/data"
)

func TestExecResult(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		value       starlarkLib.Value
		wantType    data.Types
		wantInspect string
		want        any
	}{
		{name: "nil", value: nil, wantType: data.UNDEFINED, wantInspect: "undefined"},
		{name: "string", value: starlarkLib.String("s"), wantType: data.STRING, wantInspect: `"s"`, want: "s"},
		{name: "float", value: starlarkLib.Float(0.5), wantType: data.FLOAT, wantInspect: "0.5", want: 0.5},
		{name: "list", value: starlarkLib.NewList(nil), wantType: data.LIST, wantInspect: "[]", want: []any{}},
		{name: "set", value: starlarkLib.NewSet(0), wantType: data.SET, wantInspect: "set([])", want: []any{}},
		{name: "builtin", value: starlarkLib.Universe["len"], wantType: data.FUNCTION, wantInspect: "<built-in function len>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := newEvalResult(testHandler(), tt.value, time.Millisecond, "exe-1")
			assert.Equal(t, tt.wantType, r.Type())
			assert.Equal(t, tt.wantInspect, r.Inspect())
			assert.Equal(t, tt.want, r.Interface())
			assert.Equal(t, "exe-1", r.GetScriptExeID())
			assert.Equal(t, "1ms", r.GetExecTime())
			assert.Contains(t, r.String(), string(tt.wantType))
		})
	}
}
