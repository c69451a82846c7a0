// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conc

import "code.hybscloud.com/conc/sched"

// waitMode selects how a blocking Push/Pop parks while its slot is not
// yet ready.
type waitMode int

const (
	// waitModeFutex spins briefly, then parks the goroutine on a
	// [sched.Interface] (OS futex by default). The default.
	waitModeFutex waitMode = iota
	// waitModeSpin never parks; it busy-spins via [code.hybscloud.com/spin]
	// until the slot is ready or the context is cancelled.
	waitModeSpin
)

// Options configures queue creation.
type Options struct {
	capacity int
	waitMode waitMode
	sched    sched.Interface
}

// Builder provides a fluent API for configuring queue capacity and wait
// strategy ahead of [Build].
//
// Example:
//
//	q := conc.Build[Event](conc.New(1024))                 // futex-backed, default
//	q := conc.Build[Event](conc.New(1024).SpinWait())       // busy-spin only
//	q := conc.Build[Event](conc.New(1024).FutexWait(sched.Default))
type Builder struct {
	opts Options
}

// New creates a queue builder with the given capacity.
//
// Capacity rounds up to the next power of 2: capacity=1000 results in an
// actual capacity of 1024. Panics if capacity < 1.
func New(capacity int) *Builder {
	if capacity < 1 {
		panic("conc: capacity must be >= 1")
	}
	return &Builder{opts: Options{
		capacity: roundToPow2(capacity),
		waitMode: waitModeFutex,
		sched:    sched.Default,
	}}
}

// SpinWait configures blocking Push/Pop to busy-spin instead of parking on
// the OS scheduler. Useful for deterministic tests and for runtimes that
// never want to block an OS thread.
func (b *Builder) SpinWait() *Builder {
	b.opts.waitMode = waitModeSpin
	return b
}

// FutexWait configures blocking Push/Pop to park on s after a short spin.
func (b *Builder) FutexWait(s sched.Interface) *Builder {
	b.opts.waitMode = waitModeFutex
	b.opts.sched = s
	return b
}

// Build constructs a [Queue] from a configured [Builder].
//
// Build is a free function, not a [Builder] method, because Go methods
// cannot introduce new type parameters.
func Build[T any](b *Builder) *Queue[T] {
	return newQueue[T](b.opts)
}

// roundToPow2 rounds n up to the next power of 2 (1 for n <= 1).
func roundToPow2(n int) int {
	if n <= 1 {
		return 1
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing between the queue's
// hot cursor fields.
type pad [64]byte
