// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conc

import (
	"context"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"

	"code.hybscloud.com/conc/sched"
)

// parkTimeout bounds how long a futex-backed wait blocks before re-checking
// ctx.Done(); context.Context has no OS-level wakeup, so a blocking Push/Pop
// polls its context on this cadence while parked.
const parkTimeout = 20 * time.Millisecond

// spinBudget is how many [spin.Wait] attempts a futex-backed wait makes
// before parking on the scheduler, avoiding a syscall for the common case
// where the slot becomes ready within a few spin-loop iterations.
const spinBudget = 64

// Queue is a fixed-capacity FIFO buffer safe for any mix of producers and
// consumers, built on a per-slot version handshake (see [New] and [Build]).
//
// The zero Queue has no backing storage; it becomes usable the moment
// [Queue.ReserveAndClear] is called on it, which is equivalent to
// Build(New(n)) — the normal route remains Build(New(capacity)).
type Queue[T any] struct {
	_        pad
	pushIdx  atomix.Uint64 // next ticket to claim on push
	_        pad
	popIdx   atomix.Uint64 // next ticket to claim on pop
	_        pad
	pushWait atomix.Int64 // producers currently parked waiting for a slot to free
	_        pad
	popWait  atomix.Int64 // consumers currently parked waiting for a slot to fill
	_        pad

	buffer   []slot[T]
	capacity uint64
	mask     uint64
	waitMode waitMode
	sched    sched.Interface
}

func newQueue[T any](opts Options) *Queue[T] {
	n := uint64(opts.capacity)
	q := &Queue[T]{
		buffer:   make([]slot[T], n),
		capacity: n,
		mask:     n - 1,
		waitMode: opts.waitMode,
		sched:    opts.sched,
	}
	return q
}

// Cap returns the queue's usable capacity.
func (q *Queue[T]) Cap() int {
	return int(q.capacity)
}

// Size returns the current number of queued elements: push_index -
// pop_index, taken without synchronization with in-flight Push/Pop calls,
// so it is a snapshot, not a guarantee.
func (q *Queue[T]) Size() int {
	push := q.pushIdx.LoadAcquire()
	pop := q.popIdx.LoadAcquire()
	if push < pop {
		return 0
	}
	return int(push - pop)
}

// TryPush claims the next ticket and publishes v if its slot is
// immediately free, never waiting. Returns [ErrWouldBlock] if the queue
// is full.
func (q *Queue[T]) TryPush(v T) error {
	for {
		ticket := q.pushIdx.LoadAcquire()
		sl := &q.buffer[ticket&q.mask]
		expected := uint32(2 * (ticket / q.capacity))
		if sl.loadVersion() != expected {
			// Queue full: the slot this ticket would use hasn't been freed.
			return ErrWouldBlock
		}
		if !q.pushIdx.CompareAndSwapAcqRel(ticket, ticket+1) {
			continue // lost the race for this ticket to another producer
		}
		sl.data = v
		sl.storeVersion(expected + 1)
		if q.popWait.LoadAcquire() > 0 {
			q.sched.Wake(&sl.version, 1)
		}
		return nil
	}
}

// Push claims the next ticket and blocks until the slot is free, then
// publishes v. It returns an error only when ctx is cancelled before the
// slot becomes available.
func (q *Queue[T]) Push(ctx context.Context, v T) error {
	ticket := q.pushIdx.AddAcqRel(1) - 1
	sl := &q.buffer[ticket&q.mask]
	expected := uint32(2 * (ticket / q.capacity))
	if err := q.waitForVersion(ctx, sl, expected, &q.pushWait); err != nil {
		return err
	}
	sl.data = v
	sl.storeVersion(expected + 1)
	if q.popWait.LoadAcquire() > 0 {
		q.sched.Wake(&sl.version, 1)
	}
	return nil
}

// TryPop claims the next ticket and returns its value if the slot is
// immediately ready, never waiting. Returns [ErrWouldBlock] if the queue
// is empty.
func (q *Queue[T]) TryPop() (T, error) {
	var zero T
	for {
		ticket := q.popIdx.LoadAcquire()
		sl := &q.buffer[ticket&q.mask]
		expected := uint32(2*(ticket/q.capacity) + 1)
		if sl.loadVersion() != expected {
			// Queue empty: the slot this ticket would read hasn't been filled.
			return zero, ErrWouldBlock
		}
		if !q.popIdx.CompareAndSwapAcqRel(ticket, ticket+1) {
			continue // lost the race for this ticket to another consumer
		}
		v := sl.data
		sl.data = zero
		sl.storeVersion(expected + 1)
		if q.pushWait.LoadAcquire() > 0 {
			q.sched.Wake(&sl.version, 1)
		}
		return v, nil
	}
}

// Pop claims the next ticket and blocks until its slot is filled, then
// returns the value. It returns an error only when ctx is cancelled
// before the slot becomes ready.
func (q *Queue[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	ticket := q.popIdx.AddAcqRel(1) - 1
	sl := &q.buffer[ticket&q.mask]
	expected := uint32(2*(ticket/q.capacity) + 1)
	if err := q.waitForVersion(ctx, sl, expected, &q.popWait); err != nil {
		return zero, err
	}
	v := sl.data
	sl.data = zero
	sl.storeVersion(expected + 1)
	if q.pushWait.LoadAcquire() > 0 {
		q.sched.Wake(&sl.version, 1)
	}
	return v, nil
}

// waitForVersion blocks until sl's version reaches expected, recording the
// wait in waiters so the other side knows whether to Wake. ctx cancellation
// is checked between spin bursts (spin mode) or park attempts (futex mode).
func (q *Queue[T]) waitForVersion(ctx context.Context, sl *slot[T], expected uint32, waiters *atomix.Int64) error {
	if sl.loadVersion() == expected {
		return nil
	}
	sw := spin.Wait{}
	for i := 0; i < spinBudget; i++ {
		if sl.loadVersion() == expected {
			return nil
		}
		sw.Once()
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if q.waitMode == waitModeSpin {
		for sl.loadVersion() != expected {
			if err := ctx.Err(); err != nil {
				return err
			}
			sw.Once()
		}
		return nil
	}

	waiters.AddAcqRel(1)
	defer waiters.AddAcqRel(-1)
	for {
		cur := sl.loadVersion()
		if cur == expected {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		err := q.sched.Wait(&sl.version, cur, parkTimeout)
		if err != nil && err != sched.ErrTimeout {
			return err
		}
	}
}

// PushN claims n consecutive tickets and fills them from fill, which is
// called once per claimed ticket in ticket order. It blocks exactly the
// way [Queue.Push] does for each slot in turn.
func (q *Queue[T]) PushN(ctx context.Context, n int, fill func(i int) T) error {
	start := q.pushIdx.AddAcqRel(uint64(n)) - uint64(n)
	for i := 0; i < n; i++ {
		ticket := start + uint64(i)
		sl := &q.buffer[ticket&q.mask]
		expected := uint32(2 * (ticket / q.capacity))
		if err := q.waitForVersion(ctx, sl, expected, &q.pushWait); err != nil {
			return err
		}
		sl.data = fill(i)
		sl.storeVersion(expected + 1)
		if q.popWait.LoadAcquire() > 0 {
			q.sched.Wake(&sl.version, 1)
		}
	}
	return nil
}

// PopN claims n consecutive tickets and delivers each value to drain, in
// ticket order, blocking per slot exactly the way [Queue.Pop] does.
func (q *Queue[T]) PopN(ctx context.Context, n int, drain func(i int, v T)) error {
	var zero T
	start := q.popIdx.AddAcqRel(uint64(n)) - uint64(n)
	for i := 0; i < n; i++ {
		ticket := start + uint64(i)
		sl := &q.buffer[ticket&q.mask]
		expected := uint32(2*(ticket/q.capacity) + 1)
		if err := q.waitForVersion(ctx, sl, expected, &q.popWait); err != nil {
			return err
		}
		v := sl.data
		sl.data = zero
		sl.storeVersion(expected + 1)
		if q.pushWait.LoadAcquire() > 0 {
			q.sched.Wake(&sl.version, 1)
		}
		drain(i, v)
	}
	return nil
}

// TryPopNExclusivelyUntil is the single-consumer bulk-drain variant: it
// reserves up to maxCount tickets starting at the current pop cursor,
// waits up to timeout for the first not-yet-ready slot, and delivers
// whatever prefix became ready to drain. It returns the number of values
// delivered; a return less than maxCount means the wait timed out with a
// partial (possibly empty) prefix ready.
//
// Only one goroutine may call TryPopNExclusivelyUntil (or any other Pop
// variant) on a given queue at a time; mixing it with concurrent Pop/TryPop
// callers races on the reserved ticket range.
func (q *Queue[T]) TryPopNExclusivelyUntil(timeout time.Duration, maxCount int, drain func(i int, v T)) int {
	var zero T
	start := q.popIdx.LoadAcquire()
	push := q.pushIdx.LoadAcquire()
	avail := push - start
	if int64(avail) < 0 {
		avail = 0
	}
	n := maxCount
	if uint64(n) > avail {
		n = int(avail)
	}

	deadline := time.Now().Add(timeout)
	delivered := 0
	for delivered < maxCount {
		ticket := start + uint64(delivered)
		sl := &q.buffer[ticket&q.mask]
		expected := uint32(2*(ticket/q.capacity) + 1)

		if delivered >= n {
			// Past what was available at reservation time: wait (bounded by
			// the deadline) for this slot specifically, since it's the one
			// try_pop_n_exclusively_until blocks on.
			// Registering in popWait lets the publishing push wake us.
			q.popWait.AddAcqRel(1)
			for sl.loadVersion() != expected {
				remaining := time.Until(deadline)
				if remaining <= 0 {
					break
				}
				_ = q.sched.Wait(&sl.version, sl.loadVersion(), remaining)
			}
			q.popWait.AddAcqRel(-1)
			if sl.loadVersion() != expected {
				break
			}
		} else if sl.loadVersion() != expected {
			break
		}

		v := sl.data
		sl.data = zero
		sl.storeVersion(expected + 1)
		if q.pushWait.LoadAcquire() > 0 {
			q.sched.Wake(&sl.version, 1)
		}
		drain(delivered, v)
		delivered++
	}
	q.popIdx.StoreRelease(start + uint64(delivered))
	return delivered
}

// Clear resets the queue to empty. The caller must ensure no concurrent
// Push/Pop is in flight; Clear does not synchronize with them.
func (q *Queue[T]) Clear() {
	var zero T
	for i := range q.buffer {
		q.buffer[i].data = zero
		q.buffer[i].storeVersion(0)
	}
	q.pushIdx.StoreRelease(0)
	q.popIdx.StoreRelease(0)
	q.pushWait.StoreRelaxed(0)
	q.popWait.StoreRelaxed(0)
}

// ReserveAndClear reallocates the queue's backing storage for capacity n
// (rounded up to a power of two) and resets it to empty. The caller must
// ensure the queue is quiescent: no concurrent Push/Pop/Clear may be in
// flight.
//
// Calling ReserveAndClear on a zero-value Queue makes it fully usable,
// equivalent to Build(New(n)): the zero value's waitMode is already
// waitModeFutex (the zero value of waitMode), but its sched is nil, so
// this also installs [sched.Default] the first time, the same scheduler
// New would have wired in.
func (q *Queue[T]) ReserveAndClear(n int) {
	cap2 := uint64(roundToPow2(n))
	q.buffer = make([]slot[T], cap2)
	q.capacity = cap2
	q.mask = cap2 - 1
	if q.sched == nil {
		q.sched = sched.Default
	}
	q.pushIdx.StoreRelease(0)
	q.popIdx.StoreRelease(0)
	q.pushWait.StoreRelaxed(0)
	q.popWait.StoreRelaxed(0)
}
