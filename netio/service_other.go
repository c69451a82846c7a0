//go:build !linux

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netio

// Service is unavailable on platforms without an epoll-shaped readiness
// API. The source's own transport (io_uring) is itself Linux-only.
type Service struct{}

// NewService returns a Service whose Start always reports
// [ErrUnsupported].
func NewService(opts Options) *Service {
	return &Service{}
}

func (s *Service) Start(listenFD int) error { return ErrUnsupported }

func (s *Service) Stop() {}

func (s *Service) Close(id SocketID) error { return ErrUnsupported }

func (s *Service) Send(id SocketID, data []byte) error { return ErrUnsupported }

func (s *Service) PageAllocator() PageAllocator { return nil }
