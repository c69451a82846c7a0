// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package netio

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is what OnError receives: a peer/OS I/O failure tied to a
// specific socket (spec §7: "Peer/OS I/O errors — surfaced via the
// on_error callback with an Error carrying errno and a text message").
type Error struct {
	Socket SocketID
	Errno  int
	Op     string
	Err    error
}

// Error formats as "Error[<errno>:<strerror>]". When Errno is zero, the
// errno is taken from Err if Err is or wraps a syscall.Errno.
func (e *Error) Error() string {
	errno := e.Errno
	var en syscall.Errno
	if errno == 0 && errors.As(e.Err, &en) {
		errno = int(en)
	}
	return fmt.Sprintf("Error[%d:%v]", errno, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
