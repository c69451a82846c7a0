// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package coroutine provides this module's coroutine runtime: [Task],
// bound to an executor and resumed with correct executor hand-off, plus
// the composable awaitables ([Yield], [AwaitFuture], [Cancellable],
// [Futex]).
//
// Go has no compiler-generated suspend/resume state machine the way
// C++20 coroutines do; a goroutine already is an independently scheduled,
// cheap-to-park stack. [Task] is therefore a lazily started goroutine
// whose result is delivered through a [code.hybscloud.com/conc/future.Future],
// and "resume on the correct executor" becomes an explicit
// [code.hybscloud.com/conc/executor.Executor.Invoke] hop ([Await] on a
// task bound to another executor, and [Yield]) rather than a
// coroutine-handle transfer. [AwaitFuture], [Cancellable] and [Futex]
// involve no executor. The same-executor fast path ("symmetric
// transfer" in the source) is preserved: [Await] runs the awaitee inline,
// on the caller's own goroutine, whenever the awaitee is unbound or
// already bound to the caller's executor, skipping the Invoke hop
// entirely.
package coroutine

import (
	"context"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/conc/executor"
	"code.hybscloud.com/conc/future"
	"code.hybscloud.com/conc/internal/obslog"
)

// Task is a lazy, move-only-in-spirit handle to a computation that yields
// a T. Construct with [New]; bind an executor with [Task.SetExecutor]
// before the first [Await] or [Task.Start], or leave it unbound to let the
// first awaiter's executor claim it (the spec's "awaitee's executor is
// current or null" rule).
type Task[T any] struct {
	fn       func(context.Context) T
	mu       sync.Mutex
	bound    executor.Executor
	started  atomic.Bool
	future   *future.Future[T]
}

// New creates an unstarted Task wrapping fn.
func New[T any](fn func(context.Context) T) *Task[T] {
	return &Task[T]{fn: fn}
}

// SetExecutor binds t to e. Must be called before the task is first
// started (by [Await] or [Task.Start]); later calls are ignored once
// started.
func (t *Task[T]) SetExecutor(e executor.Executor) *Task[T] {
	t.mu.Lock()
	if !t.started.Load() {
		t.bound = e
	} else {
		t.mu.Unlock()
		obslog.Default.Warning().Log("coroutine: SetExecutor called on an already-started Task")
		return t
	}
	t.mu.Unlock()
	return t
}

func (t *Task[T]) executorOrBind(caller executor.Executor) executor.Executor {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bound == nil {
		t.bound = caller
	}
	return t.bound
}

// Start runs t (binding e if t is unbound) via e.Invoke and returns its
// Future, detaching the task from its caller the way
// Executor::execute(task) does in the source. Calling Start more than
// once returns the same Future without re-running fn.
func (t *Task[T]) Start(ctx context.Context, e executor.Executor) (*future.Future[T], error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.started.CompareAndSwap(false, true) {
		// A concurrent caller already won the race and, since we hold t.mu
		// and it only releases the lock after t.future is set, is done.
		return t.future, nil
	}

	if t.bound == nil {
		t.bound = e
	}
	f, err := executor.Execute(t.bound, func() T { return t.fn(ctx) })
	if err != nil {
		t.started.Store(false)
		return nil, err
	}
	t.future = f
	return f, nil
}

// Await runs t to completion and returns its result, observed from a
// goroutine currently executing on caller (the awaiter's executor; pass
// nil if the calling code isn't itself running on an executor).
//
// If t is unbound, or already bound to caller, Await performs a symmetric
// transfer: it runs t's function inline, on the calling goroutine,
// without an executor hop. Otherwise it starts t on its own bound
// executor and blocks (via its Future) until the result is ready.
func Await[T any](ctx context.Context, caller executor.Executor, t *Task[T]) (T, error) {
	bound := t.executorOrBind(caller)
	if bound == caller {
		t.mu.Lock()
		if t.started.CompareAndSwap(false, true) {
			v := t.fn(ctx)
			t.future = newReadyPromise(v)
			t.mu.Unlock()
			return v, nil
		}
		t.mu.Unlock()
	}
	f, err := t.Start(ctx, bound)
	if err != nil {
		var zero T
		return zero, err
	}
	return f.Get(ctx)
}

func newReadyPromise[T any](v T) *future.Future[T] {
	p := future.New[T](nil)
	p.SetValue(v)
	return p.Future()
}
