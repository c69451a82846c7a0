// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import "runtime"

// goroutineID parses the calling goroutine's id out of runtime.Stack, the
// same trick used to implement thread-affinity checks ("is this call
// running on a thread I own") without per-call bookkeeping, the way a
// runner-scope thread-local would in a language that has one.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] < '0' || buf[i] > '9' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}
