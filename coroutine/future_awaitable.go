// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coroutine

import (
	"context"

	"code.hybscloud.com/conc/future"
)

// AwaitFuture suspends the caller until f is ready, or ctx is cancelled.
// It is a thin adaptation of [future.Future.Get]: the source's
// FutureAwaitable needed its own suspend/resume glue to bridge a
// coroutine frame and a Future; here a Future is already directly
// awaitable by any goroutine, blocking or otherwise, so no adaptation
// type is needed beyond this free function.
func AwaitFuture[T any](ctx context.Context, f *future.Future[T]) (T, error) {
	return f.Get(ctx)
}
