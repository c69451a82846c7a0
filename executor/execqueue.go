// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"code.hybscloud.com/atomix"

	"code.hybscloud.com/conc"
)

// ExecutionQueue is the single-consumer-on-demand idiom this module's
// network I/O service uses for each socket's receive consumer: a bounded
// producer queue plus an events counter
// that schedules exactly one consumer run per 0→1 transition, so an idle
// queue costs nothing and a busy one never has more than one consumer
// scheduled at a time.
type ExecutionQueue[T any] struct {
	q        *conc.Queue[T]
	events   atomix.Int64
	executor Executor
	consume  func(T)
}

// NewExecutionQueue creates an ExecutionQueue of the given capacity. Each
// queued item is eventually passed to consume, called only from a
// goroutine e invoked — never concurrently with itself.
func NewExecutionQueue[T any](capacity int, e Executor, consume func(T)) *ExecutionQueue[T] {
	return &ExecutionQueue[T]{
		q:        conc.Build[T](conc.New(capacity)),
		executor: e,
		consume:  consume,
	}
}

// Execute pushes item onto the queue and, if it is the first item since
// the consumer last went idle, schedules a consumer run on the executor.
// Returns [conc.ErrWouldBlock] if the queue is full, or the executor's
// refusal error if scheduling the consumer failed (in which case the
// events counter is restored so a later Execute can retry scheduling).
func (q *ExecutionQueue[T]) Execute(item T) error {
	if err := q.q.TryPush(item); err != nil {
		return err
	}
	if q.events.AddAcqRel(1) == 1 {
		if err := q.executor.Invoke(q.runConsumer); err != nil {
			q.events.CompareAndSwapAcqRel(1, 0)
			return err
		}
	}
	return nil
}

func (q *ExecutionQueue[T]) runConsumer() {
	for {
		// Observe events before draining: an Execute that lands after this
		// load changes the count, so the CAS below fails and we drain again.
		last := q.events.LoadAcquire()
		for {
			item, err := q.q.TryPop()
			if err != nil {
				break
			}
			q.consume(item)
		}
		if q.events.CompareAndSwapAcqRel(last, 0) {
			return
		}
		// Lost the race to a concurrent Execute that observed a nonzero
		// events count and therefore did not schedule a new consumer;
		// keep draining on its behalf instead of exiting.
	}
}
