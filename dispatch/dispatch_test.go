package dispatch

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHarness(t *testing.T) (*Loop, *Pool) {
	t.Helper()
	loop := NewLoop()
	pool := NewPool(4)
	t.Cleanup(func() {
		pool.Close()
		loop.Close()
	})
	return loop, pool
}

func TestRunDeliversResult(t *testing.T) {
	loop, pool := newHarness(t)

	v, err := Run(loop, pool, func() (int, error) { return 42, nil }).Await()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestRunDeliversFailure(t *testing.T) {
	loop, pool := newHarness(t)
	boom := errors.New("boom")

	_, err := Run(loop, pool, func() (int, error) { return 0, boom }).Await()
	assert.ErrorIs(t, err, boom)
}

func TestRunContainsPanic(t *testing.T) {
	loop, pool := newHarness(t)

	_, err := Run(loop, pool, func() (int, error) { panic("native call exploded") }).Await()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "native call exploded")

	// The worker survives and keeps serving.
	v, err := Run(loop, pool, func() (int, error) { return 7, nil }).Await()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestFulfilledExactlyOnce(t *testing.T) {
	loop, _ := newHarness(t)

	p := NewPromise[int](loop)
	p.Resolve(1)
	p.Resolve(2)
	p.Reject(errors.New("late"))

	v, err := p.Future().Await()
	require.NoError(t, err)
	assert.Equal(t, 1, v, "later fulfilment attempts are no-ops")
}

func TestWhenCompleteAfterFulfilment(t *testing.T) {
	loop, _ := newHarness(t)

	p := NewPromise[string](loop)
	p.Resolve("done")

	got := make(chan string, 1)
	p.Future().WhenComplete(func(v string, err error) {
		require.NoError(t, err)
		got <- v
	})
	assert.Equal(t, "done", <-got)
}

func TestObserversRunOnLoopWithoutOverlap(t *testing.T) {
	loop, pool := newHarness(t)

	const n = 64
	var active, overlaps, seen int32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		Run(loop, pool, func() (int, error) { return i, nil }).WhenComplete(func(int, error) {
			if !atomic.CompareAndSwapInt32(&active, 0, 1) {
				atomic.AddInt32(&overlaps, 1)
			}
			atomic.AddInt32(&seen, 1)
			atomic.StoreInt32(&active, 0)
			wg.Done()
		})
	}
	wg.Wait()

	assert.Zero(t, atomic.LoadInt32(&overlaps), "completions must never observe concurrent execution")
	assert.Equal(t, int32(n), atomic.LoadInt32(&seen))
}

func TestObserverOrder(t *testing.T) {
	loop, pool := newHarness(t)

	var mu sync.Mutex
	var order []int
	done := make(chan struct{})

	f := Run(loop, pool, func() (int, error) { return 0, nil })
	for i := 0; i < 3; i++ {
		i := i
		f.WhenComplete(func(int, error) {
			mu.Lock()
			order = append(order, i)
			if len(order) == 3 {
				close(done)
			}
			mu.Unlock()
		})
	}
	<-done
	assert.Equal(t, []int{0, 1, 2}, order)
}

func TestMap(t *testing.T) {
	loop, pool := newHarness(t)

	f := Run(loop, pool, func() (int, error) { return 21, nil })
	v, err := Map(f, func(n int) (int, error) { return n * 2, nil }).Await()
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestMapPropagatesError(t *testing.T) {
	loop, pool := newHarness(t)
	boom := errors.New("boom")

	f := Run(loop, pool, func() (int, error) { return 0, boom })
	called := false
	_, err := Map(f, func(n int) (string, error) {
		called = true
		return "", nil
	}).Await()
	assert.ErrorIs(t, err, boom)
	assert.False(t, called, "transform skipped on failure")
}

func TestThenChainsSequentially(t *testing.T) {
	loop, pool := newHarness(t)

	first := Run(loop, pool, func() (int, error) { return 10, nil })
	v, err := Then(first, func(n int) *Future[int] {
		return Run(loop, pool, func() (int, error) { return n + 5, nil })
	}).Await()
	require.NoError(t, err)
	assert.Equal(t, 15, v)
}

func TestSubmitToClosedPoolFailsFuture(t *testing.T) {
	loop := NewLoop()
	t.Cleanup(loop.Close)
	pool := NewPool(1)
	pool.Close()

	_, err := Run(loop, pool, func() (int, error) { return 1, nil }).Await()
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestLoopRunsInSubmissionOrder(t *testing.T) {
	loop := NewLoop()

	var order []int
	for i := 0; i < 100; i++ {
		i := i
		loop.Submit(func() { order = append(order, i) })
	}
	loop.Close()

	require.Len(t, order, 100)
	for i, v := range order {
		require.Equal(t, i, v)
	}
}

func TestLoopCloseDrainsQueuedWork(t *testing.T) {
	loop := NewLoop()

	var ran int32
	for i := 0; i < 50; i++ {
		loop.Submit(func() { atomic.AddInt32(&ran, 1) })
	}
	loop.Close()
	assert.Equal(t, int32(50), atomic.LoadInt32(&ran))
}

func TestPoolRunsAllSubmittedWork(t *testing.T) {
	pool := NewPool(3)

	var ran int32
	for i := 0; i < 100; i++ {
		require.NoError(t, pool.Submit(func() { atomic.AddInt32(&ran, 1) }))
	}
	pool.Close()
	assert.Equal(t, int32(100), atomic.LoadInt32(&ran))
}
