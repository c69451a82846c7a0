// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package conc

import "sync/atomic"

// slot is one cell of a [Queue]: a T plus the version word that hands off
// ownership between the producer that claimed ticket T and the consumer
// that will eventually claim the same ticket.
//
// version equals 2*(ticket/capacity) while the slot is free for the next
// producer at that ticket, and 2*(ticket/capacity)+1 while it holds a
// committed value waiting to be consumed. Producer and consumer never
// touch the slot at the same time: the version value they are each
// waiting for differs by exactly one, so only one side ever proceeds.
//
// version is a plain uint32 manipulated with sync/atomic, not the
// [code.hybscloud.com/atomix] wrapper types used for the queue's cursors:
// it must be passed as a raw *uint32 to [sched.Interface.Wait]/Wake (and,
// on Linux, straight into the futex(2) syscall), and atomix's wrapper
// types do not expose the address of the word they wrap.
type slot[T any] struct {
	version uint32
	_       padVersion
	data    T
}

// padVersion pads a slot's hot version word to its own cache line so two
// adjacent slots' handshakes don't false-share.
type padVersion [64 - 4]byte

func (s *slot[T]) loadVersion() uint32 {
	return atomic.LoadUint32(&s.version)
}

func (s *slot[T]) storeVersion(v uint32) {
	atomic.StoreUint32(&s.version, v)
}
