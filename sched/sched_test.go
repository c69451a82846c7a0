// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sched_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conc/sched"
)

func TestOSWaitWakeOne(t *testing.T) {
	var word uint32
	var woken atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		err := sched.Default.Wait(&word, 0, 0)
		require.NoError(t, err)
		woken.Store(true)
	}()

	// Give the waiter a chance to park before waking it.
	time.Sleep(20 * time.Millisecond)
	atomic.StoreUint32(&word, 1)
	for i := 0; i < 100 && sched.Default.Wake(&word, 1) == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	wg.Wait()
	require.True(t, woken.Load())
}

func TestOSWaitReturnsImmediatelyWhenValueChanged(t *testing.T) {
	var word uint32 = 1
	err := sched.Default.Wait(&word, 0, time.Second)
	require.NoError(t, err)
}

func TestOSWaitTimesOut(t *testing.T) {
	var word uint32
	err := sched.Default.Wait(&word, 0, 10*time.Millisecond)
	require.ErrorIs(t, err, sched.ErrTimeout)
}

func TestSpinWaitWake(t *testing.T) {
	var word uint32
	s := sched.Spin{}
	done := make(chan struct{})
	go func() {
		_ = s.Wait(&word, 0, time.Second)
		close(done)
	}()
	time.Sleep(5 * time.Millisecond)
	atomic.StoreUint32(&word, 1)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("spin waiter never observed the change")
	}
}

func TestSpinWaitTimesOut(t *testing.T) {
	var word uint32
	s := sched.Spin{}
	err := s.Wait(&word, 0, 10*time.Millisecond)
	require.ErrorIs(t, err, sched.ErrTimeout)
}
