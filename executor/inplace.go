// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import "sync"

// Inplace runs every invoked callable on the calling goroutine.
//
// With flatten disabled (the default), Invoke simply calls fn and
// returns — re-entrant Invoke calls from within fn recurse normally,
// growing the Go stack the way any recursive call would.
//
// With flatten enabled, a re-entrant Invoke (one made from inside a
// callable this Inplace is already running, on the same goroutine) is
// queued instead of run immediately; the outermost Invoke drains queued
// work in LIFO order after its own callable returns. This bounds stack
// depth under arbitrarily deep re-entrant submission, at the cost of
// running re-entrant work after, rather than during, the call that
// submitted it.
type Inplace struct {
	flatten bool

	mu      sync.Mutex
	active  map[uint64]bool
	pending map[uint64][]func()
}

// NewInplace creates an Inplace executor. flatten selects the re-entrant
// submission behavior documented on [Inplace].
func NewInplace(flatten bool) *Inplace {
	return &Inplace{
		flatten: flatten,
		active:  make(map[uint64]bool),
		pending: make(map[uint64][]func()),
	}
}

// Invoke never refuses: it always returns nil.
func (e *Inplace) Invoke(fn func()) error {
	gid := goroutineID()

	e.mu.Lock()
	if e.active[gid] {
		if e.flatten {
			e.pending[gid] = append(e.pending[gid], fn)
			e.mu.Unlock()
			return nil
		}
		e.mu.Unlock()
		fn()
		return nil
	}
	e.active[gid] = true
	e.mu.Unlock()

	fn()
	if e.flatten {
		e.drain(gid)
	}

	e.mu.Lock()
	delete(e.active, gid)
	delete(e.pending, gid)
	e.mu.Unlock()
	return nil
}

func (e *Inplace) drain(gid uint64) {
	for {
		e.mu.Lock()
		stack := e.pending[gid]
		if len(stack) == 0 {
			e.mu.Unlock()
			return
		}
		next := stack[len(stack)-1]
		e.pending[gid] = stack[:len(stack)-1]
		e.mu.Unlock()
		next()
	}
}

// IsRunningIn reports whether the calling goroutine is currently inside an
// Invoke call on this Inplace executor.
func (e *Inplace) IsRunningIn() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active[goroutineID()]
}
