// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package future_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conc/future"
)

func TestGetBlocksUntilSetValue(t *testing.T) {
	p := future.New[int](nil)
	f := p.Future()
	require.False(t, f.Ready())

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := f.Get(context.Background())
		require.NoError(t, err)
		require.Equal(t, 5, v)
	}()

	time.Sleep(10 * time.Millisecond)
	p.SetValue(5)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Get never returned after SetValue")
	}
	require.True(t, f.Ready())
}

func TestGetContextCancellation(t *testing.T) {
	p := future.New[int](nil)
	f := p.Future()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Get(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOnFinishBeforeAndAfterReady(t *testing.T) {
	p := future.New[int](nil)
	f := p.Future()

	var before int
	f.OnFinish(func(v int) { before = v })

	p.SetValue(7)
	require.Equal(t, 7, before)

	var after int
	f.OnFinish(func(v int) { after = v })
	require.Equal(t, 7, after)
}

func TestThenChain(t *testing.T) {
	p := future.New[int](nil)
	f1 := future.Then(p.Future(), func(v int) int { return v + 1 })
	f2 := future.Then(f1, func(v int) int { return v * 2 })

	p.SetValue(5)
	v, err := f2.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 12, v)
}

func TestDoubleSetValueIgnored(t *testing.T) {
	p := future.New[int](nil)
	f := p.Future()
	p.SetValue(1)
	require.NotPanics(t, func() { p.SetValue(2) })
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, v)
}

func TestClearAllowsReuse(t *testing.T) {
	p := future.New[int](nil)
	p.SetValue(1)
	p.Clear()
	require.False(t, p.Future().Ready())
	p.SetValue(2)
	v, err := p.Future().Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, v)
}

func TestWaitForTimesOut(t *testing.T) {
	p := future.New[int](nil)
	_, ok := p.Future().WaitFor(10 * time.Millisecond)
	require.False(t, ok)
}

func TestCountDownLatch(t *testing.T) {
	l := future.NewCountDownLatch(3)
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		go func() {
			defer wg.Done()
			l.CountDown(1)
		}()
	}
	wg.Wait()

	v, err := l.Future().Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(0), v)

	l.CountDown(1) // no-op past zero
}

func TestCountDownLatchZeroIsImmediate(t *testing.T) {
	l := future.NewCountDownLatch(0)
	require.True(t, l.Future().Ready())
}
