// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched

import (
	"runtime"
	"time"
)

// Spin is a syscall-free [Interface] that busy-polls addr with
// runtime.Gosched between checks. It never blocks the OS thread, which makes
// it useful for deterministic tests and for green-thread-style runtimes that
// want to avoid futex(2) entirely (the spec names this as the "green-thread
// futex" alternative to the OS scheduler).
type Spin struct {
	// PollInterval bounds how long Wait sleeps between polls. Zero means
	// runtime.Gosched() only (tight spin).
	PollInterval time.Duration
}

func loadAddr(addr *uint32) uint32 {
	// Plain load is sufficient here: callers already pair Wait/Wake with
	// their own acquire/release fences on the surrounding state (slot
	// version, promise ready word).
	return *addr
}

// Wait busy-polls until *addr != expect or timeout elapses.
func (s Spin) Wait(addr *uint32, expect uint32, timeout time.Duration) error {
	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for loadAddr(addr) == expect {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrTimeout
		}
		if s.PollInterval > 0 {
			time.Sleep(s.PollInterval)
		} else {
			runtime.Gosched()
		}
	}
	return nil
}

// Wake is a no-op: Spin waiters discover state changes by polling, not by
// being signaled.
func (Spin) Wake(*uint32, int) int {
	return 0
}
