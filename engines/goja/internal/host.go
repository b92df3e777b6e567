// Package internal provides the host globals a JavaScript runtime needs to
// behave like a server-side runtime: timers and a console.
package internal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dop251/goja"

	"github.com/bpcreech/http-eval/internal/eventloop"
)

// Host owns the timers created by scripts. All methods, and every function it
// installs into a runtime, must run on the loop goroutine.
type Host struct {
	loop   *eventloop.Loop
	vm     *goja.Runtime
	timers map[int64]*timer
	nextID int64
	logger *slog.Logger
}

type timer struct {
	id       int64
	fn       goja.Callable
	args     []goja.Value
	delay    time.Duration
	interval bool
	handle   *eventloop.Timer
}

// NewHost creates a Host that schedules callbacks on loop.
func NewHost(loop *eventloop.Loop, logger *slog.Logger) *Host {
	return &Host{
		loop:   loop,
		timers: make(map[int64]*timer),
		logger: logger,
	}
}

// Register installs the timer functions and the console object into vm.
func (h *Host) Register(vm *goja.Runtime) error {
	h.vm = vm

	globals := map[string]func(goja.FunctionCall) goja.Value{
		"setTimeout":    h.setTimeout,
		"clearTimeout":  h.clearTimer,
		"setInterval":   h.setInterval,
		"clearInterval": h.clearTimer,
	}
	for name, fn := range globals {
		if err := vm.Set(name, fn); err != nil {
			return fmt.Errorf("failed to register %s: %w", name, err)
		}
	}

	console := vm.NewObject()
	levels := map[string]slog.Level{
		"log":   slog.LevelInfo,
		"info":  slog.LevelInfo,
		"debug": slog.LevelDebug,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	}
	for name, level := range levels {
		if err := console.Set(name, h.consoleFunc(level)); err != nil {
			return fmt.Errorf("failed to register console.%s: %w", name, err)
		}
	}
	if err := vm.Set("console", console); err != nil {
		return fmt.Errorf("failed to register console: %w", err)
	}

	return nil
}

// Pending returns the number of timers that have not fired or been cleared.
func (h *Host) Pending() int {
	return len(h.timers)
}

// StopAll cancels every pending timer.
func (h *Host) StopAll() {
	for id, t := range h.timers {
		t.handle.Stop()
		delete(h.timers, id)
	}
}

func (h *Host) setTimeout(call goja.FunctionCall) goja.Value {
	return h.schedule(call, false)
}

func (h *Host) setInterval(call goja.FunctionCall) goja.Value {
	return h.schedule(call, true)
}

func (h *Host) schedule(call goja.FunctionCall, interval bool) goja.Value {
	fn, ok := goja.AssertFunction(call.Argument(0))
	if !ok {
		panic(h.vm.NewTypeError("The \"callback\" argument must be of type function"))
	}

	var args []goja.Value
	if len(call.Arguments) > 2 {
		args = append(args, call.Arguments[2:]...)
	}

	h.nextID++
	t := &timer{
		id:       h.nextID,
		fn:       fn,
		args:     args,
		delay:    toDelay(call.Argument(1)),
		interval: interval,
	}
	h.timers[t.id] = t
	h.arm(t)

	return h.vm.ToValue(t.id)
}

func (h *Host) arm(t *timer) {
	t.handle = h.loop.AfterFunc(t.delay, func() { h.fire(t) })
}

func (h *Host) fire(t *timer) {
	if _, ok := h.timers[t.id]; !ok {
		return
	}
	if !t.interval {
		delete(h.timers, t.id)
	}

	if _, err := t.fn(goja.Undefined(), t.args...); err != nil {
		h.logger.Error("Uncaught exception in timer callback", "timerID", t.id, "error", err)
	}

	// the callback may have cleared its own interval
	if _, ok := h.timers[t.id]; ok && t.interval {
		h.arm(t)
	}
}

func (h *Host) clearTimer(call goja.FunctionCall) goja.Value {
	arg := call.Argument(0)
	if goja.IsUndefined(arg) || goja.IsNull(arg) {
		return goja.Undefined()
	}
	id := arg.ToInteger()
	if t, ok := h.timers[id]; ok {
		t.handle.Stop()
		delete(h.timers, id)
	}
	return goja.Undefined()
}

func (h *Host) consoleFunc(level slog.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, 0, len(call.Arguments))
		for _, arg := range call.Arguments {
			parts = append(parts, h.format(arg))
		}
		h.logger.Log(context.Background(), level, strings.Join(parts, " "), "source", "console")
		return goja.Undefined()
	}
}

// format renders strings verbatim and objects as JSON when possible.
func (h *Host) format(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) {
		return "undefined"
	}
	if _, isFn := goja.AssertFunction(v); !isFn {
		if obj, ok := v.(*goja.Object); ok {
			if s, ok := Stringify(h.vm, obj); ok {
				return s
			}
		}
	}
	return v.String()
}

// toDelay converts a millisecond argument, treating NaN, negative and
// missing values as zero.
func toDelay(v goja.Value) time.Duration {
	if v == nil || goja.IsUndefined(v) {
		return 0
	}
	ms := v.ToFloat()
	if math.IsNaN(ms) || ms <= 0 {
		return 0
	}
	if ms > math.MaxInt32 {
		ms = 1
	}
	return time.Duration(ms * float64(time.Millisecond))
}
