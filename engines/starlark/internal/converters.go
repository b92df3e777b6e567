package internal

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	starlarkLib "go.starlark.net/starlark"
)

// ConvertStarlarkValueToInterface converts a Starlark value to a JSON-compatible Go value.
// Ints that do not fit in an int64 become json.Number, tuples and sets become lists.
func ConvertStarlarkValueToInterface(v starlarkLib.Value) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch v := v.(type) {
	case starlarkLib.NoneType:
		return nil, nil
	case starlarkLib.Bool:
		return bool(v), nil
	case starlarkLib.Int:
		if i, ok := v.Int64(); ok {
			return i, nil
		}
		return json.Number(v.String()), nil
	case starlarkLib.Float:
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, nil
		}
		return f, nil
	case starlarkLib.String:
		return string(v), nil
	case starlarkLib.Bytes:
		return string(v), nil
	case starlarkLib.Indexable:
		// covers *List and Tuple
		list := make([]any, 0, v.Len())
		for i := 0; i < v.Len(); i++ {
			elem, err := ConvertStarlarkValueToInterface(v.Index(i))
			if err != nil {
				return nil, fmt.Errorf("failed to convert list element: %w", err)
			}
			list = append(list, elem)
		}
		return list, nil
	case *starlarkLib.Set:
		list := make([]any, 0, v.Len())
		iter := v.Iterate()
		defer iter.Done()
		var elem starlarkLib.Value
		for iter.Next(&elem) {
			converted, err := ConvertStarlarkValueToInterface(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to convert set element: %w", err)
			}
			list = append(list, converted)
		}
		return list, nil
	case *starlarkLib.Dict:
		dict := make(map[string]any, v.Len())
		for _, item := range v.Items() {
			k, val := item[0], item[1]

			// JSON objects need string keys
			kStr, ok := k.(starlarkLib.String)
			if !ok {
				kStr = starlarkLib.String(k.String())
			}

			vv, err := ConvertStarlarkValueToInterface(val)
			if err != nil {
				return nil, fmt.Errorf("failed to convert dict value for key %s: %w", k, err)
			}
			dict[string(kStr)] = vv
		}
		return dict, nil
	default:
		return nil, fmt.Errorf("unsupported Starlark type %s", v.Type())
	}
}

// ConvertToDict builds a mutable Starlark dict from Go data, used to seed the
// persistent ctx global.
func ConvertToDict(inputData map[string]any) (*starlarkLib.Dict, error) {
	dict := starlarkLib.NewDict(len(inputData))

	// sorted for a stable iteration order inside scripts
	keys := make([]string, 0, len(inputData))
	for k := range inputData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		val, err := ConvertToStarlarkValue(inputData[k])
		if err != nil {
			return nil, fmt.Errorf("failed to convert input value for key %q: %w", k, err)
		}
		if err := dict.SetKey(starlarkLib.String(k), val); err != nil {
			return nil, fmt.Errorf("failed to set ctx dict key %q: %w", k, err)
		}
	}
	return dict, nil
}

// ConvertToStarlarkValue converts a Go value to its Starlark equivalent.
func ConvertToStarlarkValue(v any) (starlarkLib.Value, error) {
	if v == nil {
		return starlarkLib.None, nil
	}

	switch val := v.(type) {
	case bool:
		return starlarkLib.Bool(val), nil
	case int:
		return starlarkLib.MakeInt(val), nil
	case int64:
		return starlarkLib.MakeInt64(val), nil
	case uint64:
		return starlarkLib.MakeUint64(val), nil
	case float64:
		return starlarkLib.Float(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return starlarkLib.MakeInt64(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val, err)
		}
		return starlarkLib.Float(f), nil
	case string:
		return starlarkLib.String(val), nil
	case []any:
		elements := make([]starlarkLib.Value, len(val))
		for i, elem := range val {
			var err error
			elements[i], err = ConvertToStarlarkValue(elem)
			if err != nil {
				return nil, fmt.Errorf("failed to convert list element: %w", err)
			}
		}
		return starlarkLib.NewList(elements), nil
	case []string:
		elements := make([]starlarkLib.Value, len(val))
		for i, s := range val {
			elements[i] = starlarkLib.String(s)
		}
		return starlarkLib.NewList(elements), nil
	case map[string]any:
		return ConvertToDict(val)
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
