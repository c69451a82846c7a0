// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package future

import "sync/atomic"

// CountDownLatch becomes ready once its count reaches zero. An initial
// count of zero is ready immediately.
type CountDownLatch struct {
	count   atomic.Uint64
	promise *Promise[uint64]
}

// NewCountDownLatch creates a latch requiring n decrements before it
// becomes ready.
func NewCountDownLatch(n uint64) *CountDownLatch {
	l := &CountDownLatch{promise: New[uint64](nil)}
	l.count.Store(n)
	if n == 0 {
		l.promise.SetValue(0)
	}
	return l
}

// CountDown subtracts n from the latch's count. If this call observes the
// count transition through zero, the latch becomes ready. Calls after the
// latch is already ready are no-ops.
func (l *CountDownLatch) CountDown(n uint64) {
	for {
		cur := l.count.Load()
		if cur == 0 {
			return
		}
		next := n
		if n > cur {
			next = cur
		}
		if l.count.CompareAndSwap(cur, cur-next) {
			if cur-next == 0 {
				l.promise.SetValue(0)
			}
			return
		}
	}
}

// Future returns the latch's Future, ready once the count reaches zero.
func (l *CountDownLatch) Future() *Future[uint64] {
	return l.promise.Future()
}
