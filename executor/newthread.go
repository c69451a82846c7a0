// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import "sync"

// AlwaysNewThread runs every invoked callable on a freshly spawned
// goroutine. Used mainly in tests, where isolating each callable's
// execution context matters more than throughput.
type AlwaysNewThread struct {
	mu      sync.Mutex
	running map[uint64]bool
}

// NewAlwaysNewThread creates an AlwaysNewThread executor.
func NewAlwaysNewThread() *AlwaysNewThread {
	return &AlwaysNewThread{running: make(map[uint64]bool)}
}

// Invoke never refuses: it always returns nil, having already spawned fn
// onto a new goroutine before returning.
func (e *AlwaysNewThread) Invoke(fn func()) error {
	go func() {
		gid := goroutineID()
		e.mu.Lock()
		e.running[gid] = true
		e.mu.Unlock()
		defer func() {
			e.mu.Lock()
			delete(e.running, gid)
			e.mu.Unlock()
		}()
		fn()
	}()
	return nil
}

// IsRunningIn reports whether the calling goroutine is one this executor
// spawned and is still running a callable on.
func (e *AlwaysNewThread) IsRunningIn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running[goroutineID()]
}
