package dispatch

import (
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned when work is submitted to a closed pool.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool is a fixed-size set of workers for blocking native calls. Each
// worker is locked to its OS thread for the lifetime of the pool, since the
// work it hosts blocks inside foreign code.
type Pool struct {
	work chan func()
	wg   sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts size workers. Sizes below one are raised to one.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	p := &Pool{work: make(chan func(), size)}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	runtime.LockOSThread()
	for fn := range p.work {
		fn()
	}
}

// Submit hands fn to a worker. It blocks while all workers are busy and the
// queue is full; once accepted, fn runs to completion. There is no
// cancellation at this layer.
func (p *Pool) Submit(fn func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.work <- fn
	return nil
}

// Close stops accepting work and waits for in-flight and queued work to
// finish.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.wg.Wait()
		return
	}
	p.closed = true
	close(p.work)
	p.mu.Unlock()
	p.wg.Wait()
}
