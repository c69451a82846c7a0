// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package executor

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/conc"
	"code.hybscloud.com/conc/internal/obslog"
)

// globalPopTimeout is how long an idle worker with stealing enabled
// sleeps after finding its local queue and the global queue empty and
// nothing to steal, before it looks again. The sleep claims no global
// ticket. With stealing disabled, an idle worker instead blocks on the
// global queue until work arrives or the pool shuts down.
const globalPopTimeout = 5 * time.Millisecond

// drainPollInterval is how often [Pool.Stop] re-checks whether every
// queue has drained.
const drainPollInterval = time.Millisecond

// PoolOptions configures a [Pool].
type PoolOptions struct {
	// Workers is the number of worker goroutines. Must be >= 1.
	Workers int
	// GlobalCapacity is the global queue's capacity.
	GlobalCapacity int
	// LocalCapacity is each worker's local queue capacity.
	LocalCapacity int
	// Stealing enables work stealing from a random peer when a worker's
	// local and the global queue are both empty.
	Stealing bool
	// BalanceInterval, if positive, runs a periodic balancer that moves
	// queued work from overloaded to underloaded local queues.
	BalanceInterval time.Duration
}

type poolWorker struct {
	local *conc.Queue[func()]
}

// Pool is the worker-pool executor: N worker goroutines, a bounded global
// queue, and per-worker bounded local queues, optionally with work
// stealing and periodic load balancing. Every queue is a
// [code.hybscloud.com/conc.Queue].
type Pool struct {
	opts    PoolOptions
	global  *conc.Queue[func()]
	workers []poolWorker

	mu        sync.RWMutex
	workerIdx map[uint64]int
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	rngMu     sync.Mutex
	rng       *rand.Rand
	stopped   atomic.Bool
}

// NewPool creates and starts a Pool: it spawns opts.Workers worker
// goroutines, and a balancer goroutine if opts.BalanceInterval > 0.
func NewPool(opts PoolOptions) *Pool {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		opts:      opts,
		global:    conc.Build[func()](conc.New(opts.GlobalCapacity)),
		workers:   make([]poolWorker, opts.Workers),
		workerIdx: make(map[uint64]int),
		ctx:       ctx,
		cancel:    cancel,
		rng:       rand.New(rand.NewSource(1)),
	}
	for i := range p.workers {
		p.workers[i] = poolWorker{local: conc.Build[func()](conc.New(opts.LocalCapacity))}
	}
	p.wg.Add(opts.Workers)
	for i := range p.workers {
		go p.runWorker(i)
	}
	if opts.BalanceInterval > 0 {
		p.wg.Add(1)
		go p.runBalancer()
	}
	return p
}

// Invoke pushes fn onto the calling goroutine's local queue if it is one
// of this Pool's workers, otherwise onto the global queue. Returns
// [ErrExecutorStopped] once [Pool.Stop] or [Pool.Close] has been called
// (even mid-drain: no new work is accepted once shutdown begins), or
// [ErrExecutorFull] if the target queue is full.
func (p *Pool) Invoke(fn func()) error {
	if p.stopped.Load() {
		return ErrExecutorStopped
	}
	p.mu.RLock()
	idx, isWorker := p.workerIdx[goroutineID()]
	p.mu.RUnlock()
	var err error
	if isWorker {
		err = p.workers[idx].local.TryPush(fn)
	} else {
		err = p.global.TryPush(fn)
	}
	if conc.IsWouldBlock(err) {
		return ErrExecutorFull
	}
	return err
}

// IsRunningIn reports whether the calling goroutine is one of this Pool's
// workers.
func (p *Pool) IsRunningIn() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.workerIdx[goroutineID()]
	return ok
}

// Stop drains the pool gracefully: it refuses any further Invoke, then
// waits for every already-queued callable to run before cancelling the
// workers and balancer and joining them. If ctx is done before the drain
// completes, Stop cancels the workers and returns ctx's error immediately
// without joining — a currently-running callable may still be mid-flight,
// and blocking past ctx's deadline for it to finish would defeat the
// point of passing ctx at all. A second Stop/Close call is a no-op.
// Matches spec §4.2.4's "stop: publish a sentinel empty task per worker;
// join" — implemented here as "refuse new work, poll every queue for
// empty, then join" rather than literal per-worker sentinels, since a
// fixed sentinel count can be consumed unevenly once work stealing
// redistributes it (see DESIGN.md).
func (p *Pool) Stop(ctx context.Context) error {
	if !p.stopped.CompareAndSwap(false, true) {
		return nil
	}
	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()
	for !p.drained() {
		select {
		case <-ctx.Done():
			p.cancel()
			return ctx.Err()
		case <-ticker.C:
		}
	}
	p.cancel()
	p.wg.Wait()
	return nil
}

// Close stops the pool immediately: it refuses any further Invoke, cancels
// the workers and balancer right away, and joins them without waiting for
// queued-but-not-yet-run work to drain — that work is discarded. The
// immediate counterpart to the graceful [Pool.Stop].
func (p *Pool) Close() {
	if !p.stopped.CompareAndSwap(false, true) {
		p.wg.Wait()
		return
	}
	p.cancel()
	p.wg.Wait()
}

// drained reports whether the global queue and every worker's local
// queue are currently empty.
func (p *Pool) drained() bool {
	if p.global.Size() != 0 {
		return false
	}
	for i := range p.workers {
		if p.workers[i].local.Size() != 0 {
			return false
		}
	}
	return true
}

func (p *Pool) registerWorker(idx int) (gid uint64) {
	gid = goroutineID()
	p.mu.Lock()
	p.workerIdx[gid] = idx
	p.mu.Unlock()
	return gid
}

func (p *Pool) unregisterWorker(gid uint64) {
	p.mu.Lock()
	delete(p.workerIdx, gid)
	p.mu.Unlock()
}

func (p *Pool) runWorker(idx int) {
	defer p.wg.Done()
	gid := p.registerWorker(idx)
	defer p.unregisterWorker(gid)

	w := p.workers[idx]
	for {
		if fn, err := w.local.TryPop(); err == nil {
			p.runCallable(fn)
			continue
		}
		if p.ctx.Err() != nil {
			return
		}

		fn, err := p.global.TryPop()
		if err == nil {
			p.runCallable(fn)
			continue
		}

		if p.opts.Stealing {
			if fn, ok := p.steal(idx); ok {
				p.runCallable(fn)
				continue
			}
			select {
			case <-p.ctx.Done():
				return
			case <-time.After(globalPopTimeout):
			}
			continue
		}

		fn, err = p.global.Pop(p.ctx)
		if err != nil {
			continue
		}
		p.runCallable(fn)
	}
}

// runCallable runs fn. A callable that panics is a programming error too
// deep for this worker to recover from safely — the analogue of the
// source's unhandled_exception aborting the process — so runCallable logs
// it at FATAL, which itself terminates the process (see [obslog.Logger]),
// rather than silently swallowing the panic and leaving the pool's
// bookkeeping (the worker registry, the calling code's Future) in an
// undefined state.
func (p *Pool) runCallable(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			obslog.Default.Fatal().Logf("executor: worker callable panicked: %v", r)
		}
	}()
	fn()
}

// steal attempts to take roughly half of a random peer's local queue,
// running the first stolen task itself and re-queuing the rest onto its
// own local queue.
func (p *Pool) steal(idx int) (func(), bool) {
	n := len(p.workers)
	if n <= 1 {
		return nil, false
	}
	p.rngMu.Lock()
	peer := (idx + 1 + p.rng.Intn(n-1)) % n
	p.rngMu.Unlock()

	src := p.workers[peer].local
	size := src.Size()
	if size == 0 {
		return nil, false
	}
	toSteal := size / 2
	if toSteal == 0 {
		toSteal = 1
	}

	var first func()
	taken := 0
	for taken < toSteal {
		fn, err := src.TryPop()
		if err != nil {
			break
		}
		if taken == 0 {
			first = fn
		} else {
			_ = p.workers[idx].local.TryPush(fn)
		}
		taken++
	}
	if taken == 0 {
		return nil, false
	}
	return first, true
}

func (p *Pool) runBalancer() {
	defer p.wg.Done()
	ticker := time.NewTicker(p.opts.BalanceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.rebalanceOnce()
		}
	}
}

// rebalanceOnce moves queued work from workers whose local queue is
// above the mean toward the single most underloaded worker, one item at
// a time, stopping early if a target queue fills or a source empties.
func (p *Pool) rebalanceOnce() {
	n := len(p.workers)
	if n <= 1 {
		return
	}
	sizes := make([]int, n)
	total := 0
	for i := range p.workers {
		sizes[i] = p.workers[i].local.Size()
		total += sizes[i]
	}
	avg := total / n

	for i := range p.workers {
		if sizes[i] <= avg {
			continue
		}
		move := (sizes[i] - avg) / 2
		for j := 0; j < move; j++ {
			target := p.leastLoaded(sizes, i)
			if target < 0 {
				break
			}
			fn, err := p.workers[i].local.TryPop()
			if err != nil {
				break
			}
			if err := p.workers[target].local.TryPush(fn); err != nil {
				_ = p.workers[i].local.TryPush(fn) // target full, put it back
				break
			}
			sizes[i]--
			sizes[target]++
		}
	}
}

// leastLoaded returns the index (other than exclude) with the smallest
// recorded size, or -1 if every other worker is at least as loaded as
// exclude.
func (p *Pool) leastLoaded(sizes []int, exclude int) int {
	best := -1
	for i, s := range sizes {
		if i == exclude {
			continue
		}
		if best < 0 || s < sizes[best] {
			best = i
		}
	}
	if best >= 0 && sizes[best] >= sizes[exclude] {
		return -1
	}
	return best
}
