// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"code.hybscloud.com/conc/executor"
)

func TestInplaceRunsImmediately(t *testing.T) {
	e := executor.NewInplace(false)
	ran := false
	require.NoError(t, e.Invoke(func() { ran = true }))
	require.True(t, ran)
}

func TestInplaceIsRunningIn(t *testing.T) {
	e := executor.NewInplace(false)
	require.False(t, e.IsRunningIn())
	var observed bool
	_ = e.Invoke(func() { observed = e.IsRunningIn() })
	require.True(t, observed)
	require.False(t, e.IsRunningIn())
}

func TestInplaceFlattenDrainsReentrantLIFO(t *testing.T) {
	e := executor.NewInplace(true)
	var order []int
	_ = e.Invoke(func() {
		order = append(order, 0)
		_ = e.Invoke(func() { order = append(order, 1) })
		_ = e.Invoke(func() { order = append(order, 2) })
	})
	// Outermost call ran first; re-entrant submissions drain LIFO after it.
	require.Equal(t, []int{0, 2, 1}, order)
}

func TestExecuteReturnsFutureResult(t *testing.T) {
	e := executor.NewInplace(false)
	f, err := executor.Execute(e, func() int { return 21 * 2 })
	require.NoError(t, err)
	v, err := f.Get(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, v)
}
