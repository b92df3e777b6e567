// Package eventloop runs jobs one at a time on a single goroutine.
//
// Everything that is not safe for concurrent use (a script runtime, the
// objects it owns, its timers) is touched only from inside jobs, so callers on
// other goroutines never need their own locking.
package eventloop

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bpcreech/http-eval/internal/helpers"
)

// Loop is a FIFO job queue drained by one goroutine.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	closed  bool
	wake    chan struct{}
	quit    chan struct{}
	stopped chan struct{}

	onPanic func(recovered any)

	logHandler slog.Handler
	logger     *slog.Logger
}

// New creates a loop and starts its goroutine.
func New(opts ...FunctionalOption) (*Loop, error) {
	l := &Loop{
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		stopped: make(chan struct{}),
	}

	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("error applying loop option: %w", err)
		}
	}

	if l.logger != nil {
		l.logHandler = l.logger.Handler()
	} else {
		l.logHandler, l.logger = helpers.SetupLogger(l.logHandler, "eventloop", "Loop")
	}

	go l.run()
	return l, nil
}

func (l *Loop) String() string {
	return "eventloop.Loop"
}

// Submit enqueues job without waiting for it. Jobs run in submission order.
// It is safe to call from any goroutine, including from inside a job.
func (l *Loop) Submit(job func()) error {
	if job == nil {
		return ErrJobNil
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopStopped
	}
	l.queue = append(l.queue, job)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return nil
}

// Do runs job on the loop and waits for it to finish, or for ctx to be done.
// When ctx ends first the job is not cancelled; it still runs when its turn comes.
func (l *Loop) Do(ctx context.Context, job func()) error {
	if job == nil {
		return ErrJobNil
	}

	done := make(chan struct{})
	if err := l.Submit(func() {
		defer close(done)
		job()
	}); err != nil {
		return err
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stopped:
		return ErrLoopStopped
	}
}

// Pending returns the number of jobs waiting to run.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// Stop rejects new jobs, drops queued ones, and waits until the job currently
// running (if any) returns or ctx is done.
func (l *Loop) Stop(ctx context.Context) error {
	l.mu.Lock()
	if !l.closed {
		l.closed = true
		dropped := len(l.queue)
		l.queue = nil
		close(l.quit)
		if dropped > 0 {
			l.logger.Warn("Dropping queued jobs on stop", "count", dropped)
		}
	}
	l.mu.Unlock()

	select {
	case <-l.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc schedules fn to run on the loop after d. It must be called from
// the loop goroutine, and the returned Timer may only be stopped from there.
func (l *Loop) AfterFunc(d time.Duration, fn func()) *Timer {
	tm := &Timer{}
	tm.t = time.AfterFunc(d, func() {
		if err := l.Submit(func() {
			if tm.cancelled {
				return
			}
			tm.fired = true
			fn()
		}); err != nil {
			l.logger.Debug("Timer fired after loop stopped", "error", err)
		}
	})
	return tm
}

func (l *Loop) run() {
	defer close(l.stopped)
	for {
		select {
		case <-l.quit:
			return
		case <-l.wake:
		}

		for {
			l.mu.Lock()
			if len(l.queue) == 0 || l.closed {
				l.mu.Unlock()
				break
			}
			job := l.queue[0]
			l.queue[0] = nil
			l.queue = l.queue[1:]
			l.mu.Unlock()

			l.runJob(job)
		}
	}
}

func (l *Loop) runJob(job func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Job panicked", "panic", r)
			if l.onPanic != nil {
				l.onPanic(r)
			}
		}
	}()
	job()
}

// Timer is a pending AfterFunc callback.
type Timer struct {
	t         *time.Timer
	cancelled bool
	fired     bool
}

// Stop prevents the callback from running if it has not run yet. It reports
// whether the call stopped a pending callback.
func (tm *Timer) Stop() bool {
	if tm.cancelled || tm.fired {
		return false
	}
	tm.cancelled = true
	tm.t.Stop()
	return true
}
