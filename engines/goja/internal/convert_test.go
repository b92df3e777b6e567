package internal

import (
	"encoding/json"
	"testing"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bpcreech/http-eval/platform/data"
)

func TestToJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		src     string
		want    any
		present bool
	}{
		{name: "integer", src: "42", want: json.Number("42"), present: true},
		{name: "float", src: "1.5", want: json.Number("1.5"), present: true},
		{name: "string", src: `"hi"`, want: "hi", present: true},
		{name: "null", src: "null", want: nil, present: true},
		{name: "bool", src: "true", want: true, present: true},
		{name: "object", src: `({a: [1, "x"], b: {c: null}})`, want: map[string]any{
			"a": []any{json.Number("1"), "x"},
			"b": map[string]any{"c": nil},
		}, present: true},
		{name: "functions are dropped from objects", src: `({a: 1, f() {}})`, want: map[string]any{"a": json.Number("1")}, present: true},
		{name: "toJSON is honoured", src: `({toJSON() { return "custom" }})`, want: "custom", present: true},
		{name: "NaN becomes null", src: "NaN", want: nil, present: true},
		{name: "undefined", src: "undefined", present: false},
		{name: "function", src: "(function () {})", present: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vm := goja.New()
			v, err := vm.RunString(tt.src)
			require.NoError(t, err)

			got, present, err := ToJSON(vm, v)
			require.NoError(t, err)
			assert.Equal(t, tt.present, present)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("cyclic value", func(t *testing.T) {
		t.Parallel()
		vm := goja.New()
		v, err := vm.RunString("const o = {}; o.self = o; o")
		require.NoError(t, err)

		_, _, err = ToJSON(vm, v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to serialise result")

		_, ok := Stringify(vm, v)
		assert.False(t, ok)
	})
}

func TestTypeOf(t *testing.T) {
	t.Parallel()

	tests := []struct {
		src  string
		want data.Types
	}{
		{src: "undefined", want: data.UNDEFINED},
		{src: "null", want: data.NONE},
		{src: "true", want: data.BOOL},
		{src: "7", want: data.INT},
		{src: "7.25", want: data.FLOAT},
		{src: `"s"`, want: data.STRING},
		{src: "[1, 2]", want: data.LIST},
		{src: "({a: 1})", want: data.MAP},
		{src: "(() => 1)", want: data.FUNCTION},
		{src: `new TypeError("x")`, want: data.ERROR},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			t.Parallel()
			vm := goja.New()
			v, err := vm.RunString(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, TypeOf(v))
		})
	}

	assert.Equal(t, data.UNDEFINED, TypeOf(nil))
}

func TestInspect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "number", src: "42", want: "42"},
		{name: "object uses JSON", src: `({a: [1, "x"]})`, want: `{"a":[1,"x"]}`},
		{name: "null prototype object", src: "Object.create(null)", want: "{}"},
		{name: "error", src: `new TypeError("x")`, want: "TypeError: x"},
		{name: "throwing toString", src: `({toString() { throw 1 }, toJSON() { return undefined }})`, want: "[object Object]"},
		{name: "undefined", src: "undefined", want: "undefined"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			vm := goja.New()
			v, err := vm.RunString(tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.want, Inspect(vm, v, TypeOf(v)))
		})
	}
}
