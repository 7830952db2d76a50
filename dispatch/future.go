package dispatch

import (
	"fmt"
	"sync"
)

// Future is the read side of a one-shot deferred result. It is fulfilled
// exactly once; observers registered with WhenComplete run on the future's
// loop, in registration order, regardless of which goroutine fulfilled it.
type Future[T any] struct {
	loop   *Loop
	signal chan struct{}

	mu        sync.Mutex
	done      bool
	value     T
	err       error
	callbacks []func(T, error)
}

// Promise is the write side of a Future.
type Promise[T any] struct {
	future *Future[T]
}

// NewPromise creates a promise whose future delivers completions on loop.
func NewPromise[T any](loop *Loop) *Promise[T] {
	return &Promise[T]{future: &Future[T]{
		loop:   loop,
		signal: make(chan struct{}),
	}}
}

// Future returns the read side.
func (p *Promise[T]) Future() *Future[T] { return p.future }

// Resolve fulfils the future with a value. Fulfilment attempts after the
// first are no-ops.
func (p *Promise[T]) Resolve(v T) { p.future.fulfill(v, nil) }

// Reject fulfils the future with an error. Fulfilment attempts after the
// first are no-ops.
func (p *Promise[T]) Reject(err error) {
	var zero T
	p.future.fulfill(zero, err)
}

func (f *Future[T]) fulfill(v T, err error) {
	f.mu.Lock()
	if f.done {
		f.mu.Unlock()
		return
	}
	f.done = true
	f.value, f.err = v, err
	callbacks := f.callbacks
	f.callbacks = nil
	f.mu.Unlock()

	close(f.signal)
	for _, cb := range callbacks {
		cb := cb
		f.loop.Submit(func() { cb(v, err) })
	}
}

// WhenComplete registers an observer. It runs on the loop; if the future is
// already fulfilled it is scheduled immediately.
func (f *Future[T]) WhenComplete(fn func(T, error)) {
	f.mu.Lock()
	if !f.done {
		f.callbacks = append(f.callbacks, fn)
		f.mu.Unlock()
		return
	}
	v, err := f.value, f.err
	f.mu.Unlock()
	f.loop.Submit(func() { fn(v, err) })
}

// Await blocks until the future is fulfilled and returns its outcome. It
// must not be called from the loop goroutine.
func (f *Future[T]) Await() (T, error) {
	<-f.signal
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.value, f.err
}

// Map derives a future by transforming a successful value on the loop.
// Errors pass through untouched.
func Map[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	p := NewPromise[U](f.loop)
	f.WhenComplete(func(v T, err error) {
		if err != nil {
			p.Reject(err)
			return
		}
		u, err := fn(v)
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(u)
	})
	return p.Future()
}

// Then chains a future-returning continuation, flattening the result. The
// continuation runs on the loop.
func Then[T, U any](f *Future[T], fn func(T) *Future[U]) *Future[U] {
	p := NewPromise[U](f.loop)
	f.WhenComplete(func(v T, err error) {
		if err != nil {
			p.Reject(err)
			return
		}
		fn(v).WhenComplete(func(u U, err error) {
			if err != nil {
				p.Reject(err)
				return
			}
			p.Resolve(u)
		})
	})
	return p.Future()
}

// Run schedules blocking work onto the pool and returns a future fulfilled
// with its outcome on loop. The promise exists before dispatch; a panic in
// work becomes a failed future instead of a dead worker.
func Run[T any](loop *Loop, pool *Pool, work func() (T, error)) *Future[T] {
	p := NewPromise[T](loop)
	err := pool.Submit(func() {
		defer func() {
			if r := recover(); r != nil {
				p.Reject(fmt.Errorf("worker panic: %v", r))
			}
		}()
		v, err := work()
		if err != nil {
			p.Reject(err)
			return
		}
		p.Resolve(v)
	})
	if err != nil {
		p.Reject(err)
	}
	return p.Future()
}
