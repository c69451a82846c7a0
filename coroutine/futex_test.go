// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coroutine_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conc/coroutine"
)

func TestFutexWaitReturnsImmediatelyWhenValueAlreadyChanged(t *testing.T) {
	f := coroutine.NewFutex(0)
	f.Store(1)
	woken, err := f.Wait(context.Background(), 0, nil)
	require.NoError(t, err)
	require.True(t, woken)
}

func TestFutexWakeOneWakesAtMostOne(t *testing.T) {
	f := coroutine.NewFutex(0)
	const waiters = 5
	var woken atomic.Int64
	var wg sync.WaitGroup
	wg.Add(waiters)
	ready := make(chan struct{}, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			defer wg.Done()
			w, err := f.Wait(context.Background(), 0, func(cancel func() bool) { ready <- struct{}{} })
			require.NoError(t, err)
			if w {
				woken.Add(1)
			}
		}()
	}
	for i := 0; i < waiters; i++ {
		<-ready
	}
	time.Sleep(5 * time.Millisecond)

	require.Equal(t, 1, f.WakeOne())

	// release the rest so the goroutines don't leak past the test.
	f.WakeAll()
	wg.Wait()
	require.EqualValues(t, waiters, woken.Load())
}

func TestFutexWakeAllWakesEveryWaiter(t *testing.T) {
	f := coroutine.NewFutex(0)
	const waiters = 8
	var wg sync.WaitGroup
	wg.Add(waiters)
	ready := make(chan struct{}, waiters)
	results := make([]bool, waiters)
	for i := 0; i < waiters; i++ {
		i := i
		go func() {
			defer wg.Done()
			w, err := f.Wait(context.Background(), 0, func(cancel func() bool) { ready <- struct{}{} })
			require.NoError(t, err)
			results[i] = w
		}()
	}
	for i := 0; i < waiters; i++ {
		<-ready
	}
	time.Sleep(5 * time.Millisecond)

	require.Equal(t, waiters, f.WakeAll())
	wg.Wait()
	for _, w := range results {
		require.True(t, w)
	}
}

// TestFutexExactlyOneOfWakeOrCancelResumesEachWaiter exercises a hundred
// waiters where wake_one is called until 30 waiters are woken, and the
// remaining 70 cancel via their own context, checking that each waiter is
// resolved by exactly one of the two paths.
func TestFutexExactlyOneOfWakeOrCancelResumesEachWaiter(t *testing.T) {
	f := coroutine.NewFutex(0)
	const total = 100
	const toWake = 30

	var wg sync.WaitGroup
	wg.Add(total)
	ready := make(chan func() bool, total)
	var wokenCount, cancelledCount atomic.Int64

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	for i := 0; i < total; i++ {
		go func() {
			defer wg.Done()
			w, err := f.Wait(ctx, 0, func(c func() bool) { ready <- c })
			if w {
				wokenCount.Add(1)
				require.NoError(t, err)
			} else {
				cancelledCount.Add(1)
			}
		}()
	}

	handles := make([]func() bool, 0, total)
	for i := 0; i < total; i++ {
		handles = append(handles, <-ready)
	}
	time.Sleep(5 * time.Millisecond)

	for i := 0; i < toWake; i++ {
		require.Equal(t, 1, f.WakeOne())
	}

	// Cancel the remainder directly through their own handles (not just
	// ctx, to prove the handle returned by onSuspend is itself sufficient).
	for _, h := range handles {
		h() // no-op for already-woken nodes; cancels the rest
	}
	cancel()

	wg.Wait()
	require.EqualValues(t, toWake, wokenCount.Load())
	require.EqualValues(t, total-toWake, cancelledCount.Load())
}
