// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coroutine

import (
	"context"
	"sync/atomic"
)

// Cancellable adapts an inner awaitable so that a holder of its [Cancel]
// handle can race the inner computation to resume the waiter: exactly one
// of "inner completes" and "Cancel is called" wins, mirroring the
// exactly-once deposit-box handoff the source's futex/cancellable
// awaitables use. The winner is decided by a single CompareAndSwap on
// taken; there is no separate registry to consult, since in this runtime
// the two racing parties already share the Cancellable value directly.
type Cancellable[T any] struct {
	taken  atomic.Bool
	result chan cancelResult[T]
}

type cancelResult[T any] struct {
	value T
	ok    bool
}

// NewCancellable creates an unresolved Cancellable.
func NewCancellable[T any]() *Cancellable[T] {
	return &Cancellable[T]{result: make(chan cancelResult[T], 1)}
}

// Complete delivers v as the inner computation's result, winning the race
// against any concurrent Cancel. Reports whether it won.
func (c *Cancellable[T]) Complete(v T) bool {
	if c.taken.CompareAndSwap(false, true) {
		c.result <- cancelResult[T]{value: v, ok: true}
		return true
	}
	return false
}

// Cancel requests cancellation, winning the race against a concurrent
// Complete. Reports whether it won.
func (c *Cancellable[T]) Cancel() bool {
	if c.taken.CompareAndSwap(false, true) {
		var zero T
		c.result <- cancelResult[T]{value: zero, ok: false}
		return true
	}
	return false
}

// Await blocks until Complete or Cancel wins the race, or ctx is
// cancelled. ok reports whether the value came from Complete (true) or a
// Cancel/ctx cancellation (false).
func (c *Cancellable[T]) Await(ctx context.Context) (value T, ok bool, err error) {
	select {
	case r := <-c.result:
		return r.value, r.ok, nil
	case <-ctx.Done():
		if c.Cancel() {
			var zero T
			return zero, false, ctx.Err()
		}
		r := <-c.result
		return r.value, r.ok, nil
	}
}

// Run starts run on its own goroutine and returns a Cancellable that
// Completes with its result, giving the caller an on_suspend-style
// cancellation handle (the returned *Cancellable[T] itself) inline,
// before run has necessarily finished — the Go equivalent of the
// source's on_suspend(callback) hook, which hands the coroutine's
// cancellation token to the caller synchronously at suspension time.
func Run[T any](run func(context.Context) T) *Cancellable[T] {
	c := NewCancellable[T]()
	go func() {
		c.Complete(run(context.Background()))
	}()
	return c
}
