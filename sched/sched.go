// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sched abstracts the wait/wake primitive used to park and resume
// a goroutine on a 32-bit word, the way the rest of the module's blocking
// operations (bounded queue slots, future readiness) are built.
//
// The default implementation ([OS]) is backed by the Linux futex(2) syscall
// on Linux, and falls back to a channel-based registry
// on other platforms. A deterministic, syscall-free implementation ([Spin])
// is provided for tests that want single-threaded, allocation-free stepping.
package sched

import (
	"errors"
	"time"
)

// ErrTimeout is returned by Wait when the timeout elapses before a Wake.
var ErrTimeout = errors.New("sched: wait timed out")

// Interface is the wait/wake contract every blocking primitive in this
// module is built on: [conc.Queue] slot waits and [future.Future] readiness
// waits both take one as an optional scheduler.
//
// Wait blocks the calling goroutine while *addr == expect, until either a
// matching Wake call runs, the timeout (if positive) elapses, or addr no
// longer equals expect by the time Wait gets to check it -- in the last
// case Wait returns immediately with a nil error, exactly like futex(2).
// A zero or negative timeout means wait indefinitely.
type Interface interface {
	Wait(addr *uint32, expect uint32, timeout time.Duration) error
	Wake(addr *uint32, count int) int
}

// Default is the scheduler used when a caller does not supply one.
var Default Interface = OS{}
