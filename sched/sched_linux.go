// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build linux

package sched

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	futexWaitPrivate = 0 | 128
	futexWakePrivate = 1 | 128
)

// OS is the default [Interface], backed directly by the Linux futex(2)
// syscall -- the same primitive the spec's slot/promise wait words describe,
// rather than a condition-variable emulation on top of it.
type OS struct{}

// Wait parks the calling goroutine on addr via FUTEX_WAIT.
//
// CAUTION: futex(2) blocks the calling OS thread, not just the goroutine.
// Callers on the hot path should spin first (see [code.hybscloud.com/spin])
// and fall back to Wait only after a bounded number of failed attempts, the
// way Queue and Promise do.
func (OS) Wait(addr *uint32, expect uint32, timeout time.Duration) error {
	var ts *unix.Timespec
	if timeout > 0 {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		ts = &t
	}
	for {
		_, _, errno := unix.Syscall6(unix.SYS_FUTEX,
			uintptr(unsafe.Pointer(addr)),
			futexWaitPrivate,
			uintptr(expect),
			uintptr(unsafe.Pointer(ts)),
			0, 0)
		switch errno {
		case 0, unix.EAGAIN:
			return nil
		case unix.EINTR:
			continue
		case unix.ETIMEDOUT:
			return ErrTimeout
		default:
			return errno
		}
	}
}

// Wake wakes up to count goroutines parked on addr via FUTEX_WAKE.
func (OS) Wake(addr *uint32, count int) int {
	n, _, _ := unix.Syscall6(unix.SYS_FUTEX,
		uintptr(unsafe.Pointer(addr)),
		futexWakePrivate,
		uintptr(count),
		0, 0, 0)
	return int(n)
}
