// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conc/executor"
)

func TestExecutionQueueDeliversInOrder(t *testing.T) {
	e := executor.NewInplace(false)
	var mu sync.Mutex
	var got []int
	eq := executor.NewExecutionQueue[int](16, e, func(v int) {
		mu.Lock()
		got = append(got, v)
		mu.Unlock()
	})

	for i := 1; i <= 5; i++ {
		require.NoError(t, eq.Execute(i))
	}

	mu.Lock()
	require.Equal(t, []int{1, 2, 3, 4, 5}, got)
	mu.Unlock()
}

func TestExecutionQueueOnPoolDeliversEveryItem(t *testing.T) {
	p := executor.NewPool(executor.PoolOptions{Workers: 2, GlobalCapacity: 64, LocalCapacity: 16})
	defer p.Close()

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	eq := executor.NewExecutionQueue[int](64, p, func(v int) {
		mu.Lock()
		got = append(got, v)
		n := len(got)
		mu.Unlock()
		if n == 50 {
			close(done)
		}
	})

	for i := 0; i < 50; i++ {
		require.Eventually(t, func() bool {
			return eq.Execute(i) == nil
		}, time.Second, time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("execution queue never delivered all items")
	}

	mu.Lock()
	require.Len(t, got, 50)
	mu.Unlock()
}
