// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coroutine_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conc/coroutine"
)

func TestCancellableCompleteWins(t *testing.T) {
	c := coroutine.NewCancellable[int]()
	require.True(t, c.Complete(9))
	require.False(t, c.Cancel())

	v, ok, err := c.Await(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 9, v)
}

func TestCancellableCancelWins(t *testing.T) {
	c := coroutine.NewCancellable[int]()
	require.True(t, c.Cancel())
	require.False(t, c.Complete(9))

	_, ok, err := c.Await(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCancellableAwaitContextCancellation(t *testing.T) {
	c := coroutine.NewCancellable[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, ok, err := c.Await(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.False(t, ok)
}

func TestRunOnSuspendCancelHandleDeliveredBeforeCompletion(t *testing.T) {
	release := make(chan struct{})
	c := coroutine.Run(func(ctx context.Context) int {
		<-release
		return 5
	})

	// The handle (c itself) is usable immediately, before run has finished.
	require.True(t, c.Cancel())
	close(release)

	v, ok, err := c.Await(context.Background())
	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, v)
}

func TestRunCompletesNormally(t *testing.T) {
	c := coroutine.Run(func(ctx context.Context) int { return 3 })
	v, ok, err := c.Await(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 3, v)
}
