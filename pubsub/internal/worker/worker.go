package worker

import (
	"context"
	"errors"
	"sync"
)

var ErrClosed = errors.New("worker: pool closed")

// Pool runs submitted callbacks on a fixed number of goroutines. With a
// single worker, callbacks run in submission order.
type Pool struct {
	ch      chan job
	once    sync.Once
	wg      sync.WaitGroup
	mu      sync.RWMutex
	closed  bool
	onPanic func(any)
}

type job struct {
	ctx context.Context
	fn  func(context.Context)
}

// New starts size workers reading from a queue of the given depth. onPanic,
// when non-nil, receives values recovered from panicking callbacks; the
// worker keeps running afterwards.
func New(size int, queue int, onPanic func(any)) *Pool {
	if size <= 0 {
		size = 1
	}
	if queue < 0 {
		queue = 0
	}
	p := &Pool{
		ch:      make(chan job, queue),
		onPanic: onPanic,
	}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.ch {
		p.exec(j)
	}
}

func (p *Pool) exec(j job) {
	if p.onPanic != nil {
		defer func() {
			if r := recover(); r != nil {
				p.onPanic(r)
			}
		}()
	}
	j.fn(j.ctx)
}

// Submit blocks until a worker accepts fn, ctx is done or the pool is closed.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context)) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.ch <- job{ctx: ctx, fn: fn}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting work; queued callbacks still run.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		close(p.ch)
	})
}

func (p *Pool) Wait() {
	p.wg.Wait()
}
