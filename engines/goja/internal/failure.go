package internal

import (
	"errors"
	"strings"

	"github.com/dop251/goja"

	"github.com/bpcreech/http-eval/platform"
)

const maxCauseDepth = 32

// FailureFromError converts an error returned by the runtime into an
// EvalFailure, following the thrown value's cause chain. Must run on the loop.
func FailureFromError(vm *goja.Runtime, err error) *platform.EvalFailure {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if f := failureFromValue(vm, exc.Value(), 0); f != nil {
			return f
		}
		return &platform.EvalFailure{Description: strings.TrimRight(exc.String(), "\n")}
	}
	return &platform.EvalFailure{Description: err.Error()}
}

// FailureFromValue converts a thrown or rejected value into an EvalFailure.
func FailureFromValue(vm *goja.Runtime, v goja.Value) *platform.EvalFailure {
	if f := failureFromValue(vm, v, 0); f != nil {
		return f
	}
	return &platform.EvalFailure{Description: "undefined"}
}

func failureFromValue(vm *goja.Runtime, v goja.Value, depth int) *platform.EvalFailure {
	if v == nil {
		return nil
	}

	f := &platform.EvalFailure{Description: describe(vm, v)}
	obj, ok := v.(*goja.Object)
	if !ok || depth >= maxCauseDepth {
		return f
	}

	// only a truthy cause is followed
	cause, ok := get(vm, obj, "cause")
	if !ok || cause == nil || !cause.ToBoolean() {
		return f
	}
	f.Cause = failureFromValue(vm, cause, depth+1)
	return f
}

// describe prefers an error's stack, which starts with "Name: message".
func describe(vm *goja.Runtime, v goja.Value) string {
	if goja.IsUndefined(v) {
		return "undefined"
	}
	obj, isObj := v.(*goja.Object)
	if isObj {
		if stack, ok := get(vm, obj, "stack"); ok && stack != nil && !goja.IsUndefined(stack) && !goja.IsNull(stack) {
			if s, ok := String(vm, stack); ok {
				if s = strings.TrimRight(s, "\n"); s != "" {
					return s
				}
			}
		}
	}
	if s, ok := String(vm, v); ok {
		return s
	}
	if isObj {
		return "[object " + obj.ClassName() + "]"
	}
	return "undefined"
}

// String converts v the way String(v) would. It reports false when the
// conversion throws, e.g. for objects without a prototype.
func String(vm *goja.Runtime, v goja.Value) (s string, ok bool) {
	if exc := vm.Try(func() { s = v.String() }); exc != nil {
		return "", false
	}
	return s, true
}

// get reads a property, reporting false when a getter throws.
func get(vm *goja.Runtime, obj *goja.Object, name string) (v goja.Value, ok bool) {
	if exc := vm.Try(func() { v = obj.Get(name) }); exc != nil {
		return nil, false
	}
	return v, true
}
