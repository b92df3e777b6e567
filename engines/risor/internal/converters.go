package internal

import (
	"bytes"
	"encoding/json"
	"fmt"

	risorLib "github.com/risor-io/risor"
	"github.com/risor-io/risor/object"

	"github.com/bpcreech/http-eval/platform/data"
)

// ConvertToRisorOptions binds ctxMap under ctxKey. The map is passed as a
// Risor object, so every evaluation reads and mutates the same map.
func ConvertToRisorOptions(ctxKey string, ctxMap *object.Map) []risorLib.Option {
	return []risorLib.Option{
		risorLib.WithGlobal(ctxKey, ctxMap),
	}
}

// NewContextMap converts seed data into the map bound as ctx.
func NewContextMap(seed map[string]any) (*object.Map, error) {
	if len(seed) == 0 {
		return object.NewMap(map[string]object.Object{}), nil
	}
	converted := object.FromGoType(seed)
	m, ok := converted.(*object.Map)
	if !ok {
		return nil, fmt.Errorf("seed data converted to %s: %s", converted.Type(), converted.Inspect())
	}
	return m, nil
}

// ToJSON converts obj to a JSON-compatible Go value. The second return is
// false for values with no JSON form, such as functions.
// Numbers decode as json.Number so they re-encode unchanged.
func ToJSON(obj object.Object) (any, bool) {
	if obj == nil {
		return nil, false
	}
	switch TypeOf(obj) {
	case data.FUNCTION, data.ERROR, data.UNDEFINED:
		return nil, false
	}

	v := obj.Interface()
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, false
	}
	return out, true
}

// TypeOf classifies a Risor object. Types without a counterpart keep their
// Risor name.
func TypeOf(obj object.Object) data.Types {
	if obj == nil {
		return data.UNDEFINED
	}
	switch t := string(obj.Type()); t {
	case "nil":
		return data.NONE
	case "bool":
		return data.BOOL
	case "int", "byte":
		return data.INT
	case "float":
		return data.FLOAT
	case "string", "byte_slice":
		return data.STRING
	case "list":
		return data.LIST
	case "map":
		return data.MAP
	case "set":
		return data.SET
	case "function", "builtin", "partial":
		return data.FUNCTION
	case "error":
		return data.ERROR
	default:
		return data.Types(t)
	}
}
