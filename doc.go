// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package conc provides the bounded FIFO queue at the base of this module's
// concurrency stack: a fixed-capacity slot array with a monotonically
// advancing per-slot version word, safe for any mix of producers and
// consumers.
//
// # Quick start
//
//	q := conc.Build[Event](conc.New(1024))
//
//	// Non-blocking
//	if err := q.TryPush(ev); conc.IsWouldBlock(err) {
//	    // queue full, apply backpressure
//	}
//	ev, err := q.TryPop()
//
//	// Blocking, futex-backed by default
//	_ = q.Push(context.Background(), ev)
//	ev, _ = q.Pop(context.Background())
//
// # Wait strategy
//
// A queue built with [New] parks blocked Push/Pop callers on the OS
// scheduler ([sched.Default]) after a short spin. Call [Builder.SpinWait]
// to keep waiters spinning instead (useful for green-thread runtimes and
// deterministic tests), or [Builder.FutexWait] to supply a specific
// [sched.Interface].
//
// Every queue created through this package is safe for any combination of
// single/multi producers and single/multi consumers; there is no separate
// SPSC/MPSC/SPMC/MPMC type. Callers who know their access pattern gain
// nothing from a narrower type here — the ticket/version handshake costs
// the same fetch-add regardless of arity.
package conc
