//go:build linux

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netio

import (
	"encoding/binary"
	"sync"

	"golang.org/x/sys/unix"

	"code.hybscloud.com/conc/executor"
	"code.hybscloud.com/conc/internal/obslog"
)

// Service is the epoll-driven translation of the source's io_uring
// NetworkIOService: it accepts connections, reads into pooled buffers,
// coalesces and dispatches to OnReceive, and batches writes per socket
// with EPOLLOUT-driven backpressure.
//
// io_uring's SQE/CQE submission model is inherently asynchronous even for
// a single read or write: the syscall only enqueues the operation, and a
// later CQE reports its outcome, which is why the source needs a
// dedicated reaper to recycle send buffers once their CQE arrives.
// epoll's read(2)/write(2) are synchronous from the calling goroutine's
// point of view, so a send is finished the instant its write call returns
// and this Service has no separate completion-polling loop. Sent buffers
// are not handed back to the PageAllocator (see [Service.Send]).
type Service struct {
	opts Options

	epfd     int
	wakeFD   int
	listenFD int

	sockets *socketTable

	mu      sync.Mutex
	running bool
	done    chan struct{}

	out   map[int32]*outputState
	outMu sync.Mutex
}

type outputState struct {
	mu       sync.Mutex
	pending  [][]byte
	writable bool
}

// NewService creates a Service; call [Service.Start] to begin serving.
func NewService(opts Options) *Service {
	opts.setDefaults()
	return &Service{
		opts:    opts,
		sockets: newSocketTable(opts.MaxSockets),
		out:     make(map[int32]*outputState),
	}
}

// Start creates the epoll instance, registers listenFD for accept events,
// and runs the dispatch loop on the calling goroutine until Stop is
// called. It blocks until the loop exits.
func (s *Service) Start(listenFD int) error {
	epfd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return err
	}
	wakeFD, err := unix.Eventfd(0, unix.EFD_NONBLOCK|unix.EFD_CLOEXEC)
	if err != nil {
		unix.Close(epfd)
		return err
	}

	s.mu.Lock()
	s.epfd = epfd
	s.wakeFD = wakeFD
	s.listenFD = listenFD
	s.running = true
	s.done = make(chan struct{})
	s.mu.Unlock()

	if err := unix.SetNonblock(listenFD, true); err != nil {
		return err
	}
	if err := s.epollAdd(listenFD, unix.EPOLLIN); err != nil {
		return err
	}
	if err := s.epollAdd(wakeFD, unix.EPOLLIN); err != nil {
		return err
	}

	s.loop()
	return nil
}

// Stop signals the dispatch loop to exit and closes the epoll/eventfd
// descriptors. It does not close sockets already accepted; callers own
// their lifecycle via Close.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	epfd, wakeFD := s.epfd, s.wakeFD
	done := s.done
	s.mu.Unlock()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	unix.Write(wakeFD, buf[:])

	<-done
	unix.Close(epfd)
	unix.Close(wakeFD)
}

// Close invalidates id's socket slot, removes it from epoll, and closes
// its file descriptor. Further Send/receive activity against stale
// SocketIDs for this fd is silently discarded.
func (s *Service) Close(id SocketID) error {
	if _, ok := s.sockets.get(id); !ok {
		return nil
	}
	s.sockets.invalidate(id.FD)
	_ = unix.EpollCtl(s.epfd, unix.EPOLL_CTL_DEL, int(id.FD), nil)
	s.outMu.Lock()
	delete(s.out, id.FD)
	s.outMu.Unlock()
	return unix.Close(int(id.FD))
}

// PageAllocator returns the allocator backing receive and send buffers,
// so an OnReceive callback can recycle consumed fragments via
// [Cord.Consume]'s release argument.
func (s *Service) PageAllocator() PageAllocator {
	return s.opts.PageAllocator
}

func (s *Service) epollAdd(fd int, events uint32) error {
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_ADD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
}

func (s *Service) epollMod(fd int, events uint32) error {
	return unix.EpollCtl(s.epfd, unix.EPOLL_CTL_MOD, fd, &unix.EpollEvent{
		Events: events,
		Fd:     int32(fd),
	})
}

func (s *Service) loop() {
	defer close(s.done)
	var events [256]unix.EpollEvent
	for {
		s.mu.Lock()
		running := s.running
		s.mu.Unlock()
		if !running {
			return
		}

		n, err := unix.EpollWait(s.epfd, events[:], -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return
		}
		for i := 0; i < n; i++ {
			fd := events[i].Fd
			switch {
			case int(fd) == s.listenFD:
				s.handleAccept()
			case int(fd) == s.wakeFD:
				var buf [8]byte
				unix.Read(s.wakeFD, buf[:])
			default:
				s.handleSocketEvent(fd, events[i].Events)
			}
		}
	}
}

func (s *Service) handleAccept() {
	for {
		connFD, _, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			return
		}
		id, sd := s.sockets.allocate(int32(connFD))
		sd.queue = executor.NewExecutionQueue[[]byte](s.opts.ReceiveQueueCapacity, s.opts.Executor, func(chunk []byte) {
			s.consumeReceive(id, sd, chunk)
		})
		if err := s.epollAdd(connFD, unix.EPOLLIN); err != nil {
			s.sockets.invalidate(int32(connFD))
			unix.Close(connFD)
			continue
		}
		s.opts.OnAccept(id)
	}
}

func (s *Service) consumeReceive(id SocketID, sd *socketData, chunk []byte) {
	sd.mu.Lock()
	if chunk == nil {
		s.opts.OnReceive(id, &sd.cord, true)
		sd.mu.Unlock()
		return
	}
	sd.cord.Append(chunk)
	s.opts.OnReceive(id, &sd.cord, false)
	sd.mu.Unlock()
}

func (s *Service) handleSocketEvent(fd int32, events uint32) {
	id, sd := s.identify(fd)
	if sd == nil {
		return
	}
	if events&(unix.EPOLLERR|unix.EPOLLHUP) != 0 && events&unix.EPOLLIN == 0 {
		s.reportAndClose(id, "poll", unix.ECONNRESET)
		return
	}
	if events&unix.EPOLLIN != 0 {
		s.handleReceive(id, sd, fd)
	}
	if events&unix.EPOLLOUT != 0 {
		s.flushOutput(id, fd)
	}
}

func (s *Service) identify(fd int32) (SocketID, *socketData) {
	id, sd, ok := s.sockets.lookupByFD(fd)
	if !ok {
		return SocketID{}, nil
	}
	return id, sd
}

func (s *Service) handleReceive(id SocketID, sd *socketData, fd int32) {
	alloc := s.opts.PageAllocator
	for {
		buf := alloc.Get()
		n, err := unix.Read(int(fd), buf)
		if n > 0 {
			// Keep the full backing capacity so a later Cord.Consume release
			// can hand the whole page back to alloc unchanged.
			_ = sd.queue.Execute(buf[:n])
		}
		if n <= 0 {
			alloc.Put(buf)
		}
		if err == unix.EAGAIN {
			return
		}
		if n == 0 || err != nil {
			if n == 0 {
				_ = sd.queue.Execute(nil)
				s.Close(id)
			} else {
				s.reportAndClose(id, "read", err)
			}
			return
		}
	}
}

func (s *Service) reportAndClose(id SocketID, op string, errno error) {
	netErr := &Error{Socket: id, Op: op, Err: errno}
	obslog.Default.Warning().Log(netErr.Error())
	s.opts.OnError(id, netErr)
	s.Close(id)
}

// Send queues data for delivery to id's socket, batching it behind any
// already-pending output and registering for EPOLLOUT if the kernel
// socket buffer can't take it all immediately. A stale id is a silent
// no-op (spec §5 "Cancellation").
//
// Send does not recycle data through [Service.PageAllocator] once
// written: data may not have come from that allocator in the first
// place (a caller is free to send any buffer, not just ones obtained
// from it via a receive callback), and assuming otherwise would hand a
// wrongly-sized buffer back into the pool's free list.
func (s *Service) Send(id SocketID, data []byte) error {
	if _, ok := s.sockets.get(id); !ok {
		return nil
	}
	os := s.outputStateFor(id.FD)
	os.mu.Lock()
	defer os.mu.Unlock()

	if len(os.pending) == 0 {
		n, err := unix.Write(int(id.FD), data)
		if err == nil && n == len(data) {
			return nil
		}
		if err != nil && err != unix.EAGAIN {
			s.reportAndClose(id, "write", err)
			return err
		}
		if n > 0 {
			data = data[n:]
		}
	}
	os.pending = append(os.pending, data)
	if !os.writable {
		os.writable = true
		_ = s.epollMod(int(id.FD), unix.EPOLLIN|unix.EPOLLOUT)
	}
	return nil
}

func (s *Service) outputStateFor(fd int32) *outputState {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	os, ok := s.out[fd]
	if !ok {
		os = &outputState{}
		s.out[fd] = os
	}
	return os
}

func (s *Service) flushOutput(id SocketID, fd int32) {
	os := s.outputStateFor(fd)
	os.mu.Lock()
	defer os.mu.Unlock()

	for len(os.pending) > 0 {
		buf := os.pending[0]
		n, err := unix.Write(int(fd), buf)
		if err == unix.EAGAIN {
			if n > 0 {
				os.pending[0] = buf[n:]
			}
			return
		}
		if err != nil {
			os.pending = os.pending[1:]
			s.reportAndClose(id, "write", err)
			return
		}
		os.pending = os.pending[1:]
	}
	os.writable = false
	_ = s.epollMod(int(fd), unix.EPOLLIN)
}
