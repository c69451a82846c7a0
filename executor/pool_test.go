// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conc/executor"
)

func newTestPool(workers int, stealing bool) *executor.Pool {
	return executor.NewPool(executor.PoolOptions{
		Workers:        workers,
		GlobalCapacity: 64,
		LocalCapacity:  16,
		Stealing:       stealing,
	})
}

func TestPoolRunsSubmittedWork(t *testing.T) {
	p := newTestPool(4, true)
	defer p.Close()

	const n = 500
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		require.Eventually(t, func() bool {
			return p.Invoke(func() {
				count.Add(1)
				wg.Done()
			}) == nil
		}, time.Second, time.Millisecond)
	}
	wg.Wait()
	require.EqualValues(t, n, count.Load())
}

func TestPoolIsRunningInOnlyInsideWorker(t *testing.T) {
	p := newTestPool(2, false)
	defer p.Close()

	require.False(t, p.IsRunningIn())

	result := make(chan bool, 1)
	require.Eventually(t, func() bool {
		return p.Invoke(func() { result <- p.IsRunningIn() }) == nil
	}, time.Second, time.Millisecond)

	select {
	case in := <-result:
		require.True(t, in)
	case <-time.After(time.Second):
		t.Fatal("submitted work never ran")
	}
}

func TestPoolCloseStopsWorkersAndRefusesFurtherInvoke(t *testing.T) {
	p := newTestPool(3, true)
	var ran atomic.Bool
	require.Eventually(t, func() bool {
		return p.Invoke(func() { ran.Store(true) }) == nil
	}, time.Second, time.Millisecond)
	require.Eventually(t, func() bool { return ran.Load() }, time.Second, time.Millisecond)

	p.Close()

	require.ErrorIs(t, p.Invoke(func() {}), executor.ErrExecutorStopped)
}

func TestPoolStopDrainsQueuedWorkBeforeJoining(t *testing.T) {
	p := newTestPool(1, false)

	const n = 50
	var count atomic.Int64
	started := make(chan struct{})
	block := make(chan struct{})
	require.NoError(t, p.Invoke(func() {
		close(started)
		<-block
		count.Add(1)
	}))
	<-started
	for i := 0; i < n-1; i++ {
		require.Eventually(t, func() bool {
			return p.Invoke(func() { count.Add(1) }) == nil
		}, time.Second, time.Millisecond)
	}
	close(block)

	require.NoError(t, p.Stop(context.Background()))
	require.EqualValues(t, n, count.Load())
	require.ErrorIs(t, p.Invoke(func() {}), executor.ErrExecutorStopped)
}

func TestPoolStopReturnsContextErrorOnTimeout(t *testing.T) {
	p := newTestPool(1, false)
	block := make(chan struct{})
	defer close(block)
	require.NoError(t, p.Invoke(func() { <-block }))
	// Queue a second callable that can never run while the first blocks
	// the only worker, so the drain can't complete before ctx expires.
	require.Eventually(t, func() bool {
		return p.Invoke(func() {}) == nil
	}, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Stop(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPoolInvokeRefusesWhenQueueFull(t *testing.T) {
	// A global queue of capacity 2 is full after two pushes while the
	// only worker is blocked.
	p := executor.NewPool(executor.PoolOptions{Workers: 1, GlobalCapacity: 2, LocalCapacity: 2})
	defer p.Close()

	block := make(chan struct{})
	defer close(block)
	started := make(chan struct{})
	require.NoError(t, p.Invoke(func() { close(started); <-block }))
	<-started // the only worker is now blocked, so the global queue is empty again

	require.NoError(t, p.Invoke(func() {}))
	require.NoError(t, p.Invoke(func() {}))
	require.ErrorIs(t, p.Invoke(func() {}), executor.ErrExecutorFull)
}

func TestExecuteOnPool(t *testing.T) {
	p := newTestPool(2, true)
	defer p.Close()

	result, err := executor.Execute(p, func() string { return "done" })
	require.NoError(t, err)
	require.Eventually(t, func() bool { return result.Ready() }, time.Second, time.Millisecond)
}

func TestExecuteOnStoppedPoolReturnsUnreadyFuture(t *testing.T) {
	p := newTestPool(1, false)
	p.Close()

	result, err := executor.Execute(p, func() string { return "done" })
	require.ErrorIs(t, err, executor.ErrExecutorStopped)
	require.NotNil(t, result)
	require.False(t, result.Ready())
}
