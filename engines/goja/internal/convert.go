package internal

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"github.com/bpcreech/http-eval/platform/data"
)

// Stringify runs the runtime's own JSON.stringify on v. It reports false when
// the value has no JSON form (undefined, functions, symbols) or when
// stringify throws.
func Stringify(vm *goja.Runtime, v goja.Value) (string, bool) {
	s, err := stringify(vm, v)
	if err != nil || s == nil {
		return "", false
	}
	return *s, true
}

func stringify(vm *goja.Runtime, v goja.Value) (*string, error) {
	jsonObj := vm.Get("JSON")
	if jsonObj == nil {
		return nil, fmt.Errorf("JSON global is missing")
	}
	fn, ok := goja.AssertFunction(jsonObj.ToObject(vm).Get("stringify"))
	if !ok {
		return nil, fmt.Errorf("JSON.stringify is not a function")
	}

	out, err := fn(jsonObj, v)
	if err != nil {
		return nil, err
	}
	if out == nil || goja.IsUndefined(out) {
		return nil, nil
	}
	s := out.String()
	return &s, nil
}

// ToJSON converts v to a JSON-compatible Go value the way JSON.stringify
// would serialise it. The second return is false when v has no JSON form.
// Numbers decode as json.Number so they re-encode unchanged.
func ToJSON(vm *goja.Runtime, v goja.Value) (any, bool, error) {
	s, err := stringify(vm, v)
	if err != nil {
		return nil, false, fmt.Errorf("failed to serialise result: %w", err)
	}
	if s == nil {
		return nil, false, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(*s)))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false, fmt.Errorf("failed to decode serialised result: %w", err)
	}
	return out, true, nil
}

// Inspect renders v for logs. Objects and arrays with a JSON form use it,
// anything else its string conversion. Must run on the loop.
func Inspect(vm *goja.Runtime, v goja.Value, kind data.Types) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if kind == data.MAP || kind == data.LIST {
		if s, ok := Stringify(vm, v); ok {
			return s
		}
	}
	if s, ok := String(vm, v); ok {
		return s
	}
	if obj, ok := v.(*goja.Object); ok {
		return "[object " + obj.ClassName() + "]"
	}
	return string(kind)
}

// TypeOf classifies a runtime value.
func TypeOf(v goja.Value) data.Types {
	if v == nil || goja.IsUndefined(v) {
		return data.UNDEFINED
	}
	if goja.IsNull(v) {
		return data.NONE
	}
	if _, ok := goja.AssertFunction(v); ok {
		return data.FUNCTION
	}
	if obj, ok := v.(*goja.Object); ok && obj.ClassName() == "Error" {
		return data.ERROR
	}

	switch exported := v.Export().(type) {
	case bool:
		return data.BOOL
	case int64:
		return data.INT
	case float64:
		if exported == float64(int64(exported)) {
			return data.INT
		}
		return data.FLOAT
	case string:
		return data.STRING
	case []any:
		return data.LIST
	case error:
		return data.ERROR
	case map[string]any:
		return data.MAP
	default:
		return data.MAP
	}
}
