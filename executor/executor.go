// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package executor provides the executor abstraction every other
// component in this module's concurrency stack schedules work through:
// [Inplace], [AlwaysNewThread], and [Pool] (worker-pool-with-local-queues-
// and-stealing), plus the generic [Execute]/[Submit] helpers built on the
// Executor contract.
package executor

import (
	"errors"

	"code.hybscloud.com/conc/future"
)

// ErrExecutorStopped is returned by Invoke/Submit/Execute once an
// executor has been stopped or closed and will never run fn.
var ErrExecutorStopped = errors.New("executor: stopped")

// ErrExecutorFull is returned by Invoke/Submit/Execute when fn is
// refused because a bounded internal queue is full rather than because
// the executor is shutting down.
var ErrExecutorFull = errors.New("executor: queue full")

// Executor attempts to arrange eventual execution of fn. Invoke returns
// nil if fn was accepted, or a non-nil error (typically [ErrExecutorStopped]
// during shutdown, or [ErrExecutorFull] when a bounded internal queue is
// full) if it was refused.
//
// IsRunningIn reports whether the calling goroutine is currently executing
// a callable this Executor invoked — the Go equivalent of a thread-local
// "runner scope" marker (see [code.hybscloud.com/conc/executor] package
// doc), used to skip redundant rescheduling at composition points.
type Executor interface {
	Invoke(fn func()) error
	IsRunningIn() bool
}

// Submit is fire-and-forget execution: Invoke without a result.
func Submit(e Executor, fn func()) error {
	return e.Invoke(fn)
}

// Execute boxes fn's result into a Promise and invokes it on e, returning
// the associated Future. If e refuses the submission, Execute returns the
// refusal error ([ErrExecutorStopped] or [ErrExecutorFull]) alongside the
// Future anyway: that Future's Promise is never set, so it stays
// permanently unready rather than being nil, matching the source's
// "invalid future" refusal contract.
//
// Execute is a free function, not an Executor method, because Go methods
// cannot introduce the additional type parameter R.
func Execute[R any](e Executor, fn func() R) (*future.Future[R], error) {
	p := future.New[R](nil)
	err := e.Invoke(func() {
		p.SetValue(fn())
	})
	return p.Future(), err
}
