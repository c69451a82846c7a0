// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package netio is this module's network I/O service: accept connections,
// receive into pooled buffers, coalesce and dispatch to user callbacks,
// and batch sends per socket, all addressed by a (fd, version) SocketID
// that silently no-ops once its socket has been closed and its slot
// reused (spec's SocketId versioning scheme, §3/§6).
//
// The source drives this over io_uring's SQE/CQE submission ring; this
// package drives the identical state machine (SocketID versioning,
// per-socket receive coalescing, per-socket output batching, buffer
// pooling) over an epoll readiness loop instead — see the module's
// design notes for why io_uring itself was not a viable translation
// target in pure Go.
package netio

import (
	"fmt"
	"sync"
	"sync/atomic"

	"code.hybscloud.com/conc/executor"
)

// SocketID pairs a file descriptor with an 8-bit version. A SocketID
// whose version no longer matches its slot's current version refers to a
// socket that has since been closed and its slot reused; operations
// against it are silent no-ops rather than errors, mirroring spec §6/§3's
// "stale ids are silently discarded".
type SocketID struct {
	FD      int32
	Version uint8
}

func (s SocketID) String() string {
	return fmt.Sprintf("SocketID[%d@%d]", s.FD, s.Version)
}

// socketData is the per-socket slot: its current version, and the
// single-consumer-on-demand receive queue that coalesces inbound reads
// before handing them to the user's OnReceive callback (spec §4.6's
// "single-consumer discipline... enforced by the events counter CAS
// pattern described in §4.7").
type socketData struct {
	mu      sync.Mutex
	version atomic.Uint32
	active  bool
	cord    Cord
	queue   *executor.ExecutionQueue[[]byte]
}

// socketTable is a fixed-capacity direct-indexed table of socketData
// slots, one per possible file descriptor, grounded on the `eventloop`
// poller's direct-indexed `fds [maxFDs]fdInfo` array (an O(1)-lookup
// alternative to a map under the hot accept/receive path).
type socketTable struct {
	mu  sync.RWMutex
	fds []*socketData
}

func (t *socketTable) inRange(fd int32) bool {
	return fd >= 0 && int(fd) < len(t.fds)
}

func newSocketTable(maxFDs int) *socketTable {
	return &socketTable{fds: make([]*socketData, maxFDs)}
}

func (t *socketTable) allocate(fd int32) (SocketID, *socketData) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.inRange(fd) {
		return SocketID{FD: fd}, &socketData{}
	}
	sd := t.fds[fd]
	if sd == nil {
		sd = &socketData{}
		t.fds[fd] = sd
	}
	v := sd.version.Add(1)
	sd.active = true
	return SocketID{FD: fd, Version: uint8(v)}, sd
}

// lookupByFD returns the current SocketID and slot for fd, regardless of
// version, or false if the slot has never been allocated or was
// invalidated.
func (t *socketTable) lookupByFD(fd int32) (SocketID, *socketData, bool) {
	if !t.inRange(fd) {
		return SocketID{}, nil, false
	}
	t.mu.RLock()
	sd := t.fds[fd]
	t.mu.RUnlock()
	if sd == nil || !sd.active {
		return SocketID{}, nil, false
	}
	return SocketID{FD: fd, Version: uint8(sd.version.Load())}, sd, true
}

func (t *socketTable) get(id SocketID) (*socketData, bool) {
	if !t.inRange(id.FD) {
		return nil, false
	}
	t.mu.RLock()
	sd := t.fds[id.FD]
	t.mu.RUnlock()
	if sd == nil || !sd.active || uint8(sd.version.Load()) != id.Version {
		return nil, false
	}
	return sd, true
}

// invalidate bumps the slot's version, making every currently held
// SocketID referencing it stale (spec §5 "Cancellation": "shuts down a
// socket by bumping the version... in-flight sends observing the stale
// version are silently discarded").
func (t *socketTable) invalidate(fd int32) {
	if !t.inRange(fd) {
		return
	}
	t.mu.Lock()
	sd := t.fds[fd]
	t.mu.Unlock()
	if sd != nil {
		sd.mu.Lock()
		sd.active = false
		sd.version.Add(1)
		sd.mu.Unlock()
	}
}
