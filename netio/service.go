// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netio

import (
	"errors"

	"code.hybscloud.com/conc/executor"
)

// ErrUnsupported is returned by [NewService] on platforms without an
// epoll-shaped readiness API. The source's transport (io_uring) is itself
// Linux-only, so this is not a narrower restriction than the system being
// translated.
var ErrUnsupported = errors.New("netio: unsupported platform")

// Options configures a [Service]. Executor is the thread-pool executor
// the per-socket receive consumers run on; the accept/receive dispatch
// loop itself runs on the goroutine that calls [Service.Start] (spec §4.6: "Configuration: executor (must be a thread-pool
// executor)..."; [executor.Pool] is this module's only such executor).
type Options struct {
	Executor      *executor.Pool
	PageAllocator PageAllocator

	// MaxSockets bounds the direct-indexed socket table; file descriptors
	// at or above this value cannot be registered.
	MaxSockets int

	// ReceiveQueueCapacity bounds each socket's per-socket receive
	// coalescing queue (spec §4.7's execution-queue pattern).
	ReceiveQueueCapacity int

	OnAccept  func(SocketID)
	OnReceive func(SocketID, *Cord, bool)
	OnError   func(SocketID, error)
}

func (o *Options) setDefaults() {
	if o.PageAllocator == nil {
		o.PageAllocator = DefaultAllocator(64 * 1024)
	}
	if o.MaxSockets <= 0 {
		o.MaxSockets = 65536
	}
	if o.ReceiveQueueCapacity <= 0 {
		o.ReceiveQueueCapacity = 128
	}
	if o.OnAccept == nil {
		o.OnAccept = func(SocketID) {}
	}
	if o.OnReceive == nil {
		o.OnReceive = func(SocketID, *Cord, bool) {}
	}
	if o.OnError == nil {
		o.OnError = func(SocketID, error) {}
	}
}
