// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package future provides a producer/consumer pair for a single value with
// completion notification: [Promise] sets, [Future] observes. Both are
// built on the module's [sched.Interface] spin-then-park wait primitive,
// the same way [code.hybscloud.com/conc.Queue] waits on a slot.
package future

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/spin"

	"code.hybscloud.com/conc/internal/obslog"
	"code.hybscloud.com/conc/sched"
)

const (
	notReady uint32 = 0
	ready    uint32 = 1
)

const spinBudget = 64

// shared is the state a Promise and its Future(s) share: a readiness word
// (the wait address), the value once set, and the callback list.
type shared[T any] struct {
	readyWord uint32
	mu        sync.Mutex
	value     T
	callbacks []func(T)
	sched     sched.Interface
}

// Promise is the single-producer side of a [Future]. Promise is move-only
// in spirit: callers should not copy a Promise value after first use; pass
// *Promise[T] instead.
type Promise[T any] struct {
	*shared[T]
}

// New creates a Promise/Future pair. sch, if non-nil, overrides the
// scheduler used for blocking Get/WaitFor calls; nil means [sched.Default].
func New[T any](sch sched.Interface) *Promise[T] {
	if sch == nil {
		sch = sched.Default
	}
	return &Promise[T]{shared: &shared[T]{sched: sch}}
}

// Future returns the Promise's associated Future. May be called any
// number of times and shared across any number of consumer goroutines.
func (p *Promise[T]) Future() *Future[T] {
	return &Future[T]{shared: p.shared}
}

// SetValue transitions the promise to ready, running every attached
// callback synchronously on the calling goroutine (in registration order),
// then waking any parked Get/WaitFor callers.
//
// Calling SetValue on an already-ready promise is a logic error, not a
// panic: per spec §7/§9, it is logged and ignored rather than aborting the
// process.
func (p *Promise[T]) SetValue(v T) {
	p.mu.Lock()
	if atomic.LoadUint32(&p.readyWord) == ready {
		p.mu.Unlock()
		obslog.Default.Warning().Log("future: SetValue called on an already-ready promise")
		return
	}
	p.value = v
	callbacks := p.callbacks
	p.callbacks = nil
	atomic.StoreUint32(&p.readyWord, ready)
	p.mu.Unlock()

	for _, cb := range callbacks {
		cb(v)
	}
	p.sched.Wake(&p.readyWord, math.MaxInt32)
}

// Clear resets the promise for reuse in a fresh round. The caller must
// ensure no concurrent Get/WaitFor/SetValue is in flight.
func (p *Promise[T]) Clear() {
	var zero T
	p.mu.Lock()
	p.value = zero
	p.callbacks = nil
	atomic.StoreUint32(&p.readyWord, notReady)
	p.mu.Unlock()
}

// Future is the many-consumer side of a [Promise].
type Future[T any] struct {
	*shared[T]
}

// Ready reports whether the value has been set, without blocking.
func (f *Future[T]) Ready() bool {
	return atomic.LoadUint32(&f.readyWord) == ready
}

// Get blocks until the value is set or ctx is cancelled.
func (f *Future[T]) Get(ctx context.Context) (T, error) {
	if err := f.wait(ctx); err != nil {
		var zero T
		return zero, err
	}
	return f.value, nil
}

// WaitFor blocks until the value is set or timeout elapses, returning
// (value, true) on success and (zero, false) on timeout. A negative or
// zero timeout is clamped to a minimal non-blocking check; an overlong
// timeout is clamped to an hour, matching spec §4.3's "clamp without UB"
// requirement without needing a sentinel "infinite" value.
func (f *Future[T]) WaitFor(timeout time.Duration) (T, bool) {
	const maxWait = time.Hour
	if timeout <= 0 {
		timeout = time.Microsecond
	} else if timeout > maxWait {
		timeout = maxWait
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	v, err := f.Get(ctx)
	return v, err == nil
}

// OnFinish registers cb to run with the value once the promise is set. If
// already ready, cb runs inline before OnFinish returns.
func (f *Future[T]) OnFinish(cb func(T)) {
	f.mu.Lock()
	if atomic.LoadUint32(&f.readyWord) == ready {
		v := f.value
		f.mu.Unlock()
		cb(v)
		return
	}
	f.callbacks = append(f.callbacks, cb)
	f.mu.Unlock()
}

func (f *Future[T]) wait(ctx context.Context) error {
	if atomic.LoadUint32(&f.readyWord) == ready {
		return nil
	}
	sw := spin.Wait{}
	for i := 0; i < spinBudget; i++ {
		if atomic.LoadUint32(&f.readyWord) == ready {
			return nil
		}
		sw.Once()
	}
	for {
		cur := atomic.LoadUint32(&f.readyWord)
		if cur == ready {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		const parkTimeout = 20 * time.Millisecond
		err := f.sched.Wait(&f.readyWord, cur, parkTimeout)
		if err != nil && err != sched.ErrTimeout {
			return err
		}
	}
}

// Then chains a callback onto f: the returned Future becomes ready with
// cb's result as soon as f is ready. Then is a free function, not a
// method, because Go methods cannot introduce the additional type
// parameter U.
func Then[T, U any](f *Future[T], cb func(T) U) *Future[U] {
	next := New[U](f.sched)
	f.OnFinish(func(v T) {
		next.SetValue(cb(v))
	})
	return next.Future()
}
