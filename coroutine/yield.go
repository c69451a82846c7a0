// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coroutine

import (
	"context"

	"code.hybscloud.com/conc/executor"
)

// Yield suspends the caller and re-enqueues it onto e, giving any other
// work already queued on e a chance to run first. If e is nil, Yield is a
// no-op (await_ready is unconditionally true with no executor bound, per
// the source).
func Yield(ctx context.Context, e executor.Executor) error {
	if e == nil {
		return nil
	}
	done := make(chan struct{})
	if err := e.Invoke(func() { close(done) }); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
