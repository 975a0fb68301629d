package container

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deadlockTimeout = 5 * time.Second

// waitAll fails the test if wg does not finish in time.
func waitAll(t *testing.T, wg *sync.WaitGroup) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(deadlockTimeout):
		t.Fatal("resolution did not finish: deadlock")
	}
}

func TestConcurrent_FactoryRunsOnce(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	release := make(chan struct{})
	c := mustBuild(t, NewProvider().Factory("shared", func(Resolver) (any, error) {
		calls.Add(1)
		<-release
		return &struct{ n int }{n: 1}, nil
	}))

	const n = 32
	results := make([]any, n)
	errs := make([]error, n)

	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.Get("shared")
		}()
	}

	// let the callers pile up behind the first build
	time.Sleep(20 * time.Millisecond)
	close(release)
	waitAll(t, &wg)

	assert.EqualValues(t, 1, calls.Load())
	for i := range n {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
}

func TestConcurrent_WaitersShareTheError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	started := make(chan struct{})
	release := make(chan struct{})
	c := mustBuild(t, NewProvider().Factory("bad", func(Resolver) (any, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return nil, errBoom
	}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = c.Get("bad")
	}()
	<-started

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[1] = c.Get("bad")
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	waitAll(t, &wg)

	assert.Same(t, errBoom, errs[0])
	assert.Same(t, errBoom, errs[1])
	assert.False(t, c.Resolved("bad"))
}

func TestConcurrent_UnrelatedKeysBuildInParallel(t *testing.T) {
	t.Parallel()

	// each factory waits for the other to start; serialising them would hang
	aStarted, bStarted := make(chan struct{}), make(chan struct{})
	c := mustBuild(t, NewProvider().
		Factory("a", func(Resolver) (any, error) {
			close(aStarted)
			<-bStarted
			return "a", nil
		}).
		Factory("b", func(Resolver) (any, error) {
			close(bStarted)
			<-aStarted
			return "b", nil
		}))

	var wg sync.WaitGroup
	for _, k := range []string{"a", "b"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(k)
			assert.NoError(t, err)
			assert.Equal(t, k, v)
		}()
	}
	waitAll(t, &wg)
}

func TestConcurrent_CrossGoroutineCycleDoesNotDeadlock(t *testing.T) {
	t.Parallel()

	// A and B each start on their own goroutine, wait for the other to be
	// under construction, then ask for it.
	aStarted, bStarted := make(chan struct{}), make(chan struct{})
	c := mustBuild(t, NewProvider().
		Factory("A", func(r Resolver) (any, error) {
			close(aStarted)
			<-bStarted
			return r.Resolve("B")
		}).
		Factory("B", func(r Resolver) (any, error) {
			close(bStarted)
			<-aStarted
			return r.Resolve("A")
		}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, k := range []string{"A", "B"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = c.Get(k)
		}()
	}
	waitAll(t, &wg)

	for _, err := range errs {
		var cyc *CyclicDependencyError
		require.True(t, errors.As(err, &cyc), "got %v", err)
		assert.True(t, cyc.Runtime)
		assert.Len(t, cyc.Path, 3)
		assert.Equal(t, cyc.Path[0], cyc.Path[2])
	}
	assert.False(t, c.Resolved("A"))
	assert.False(t, c.Resolved("B"))

	c.mu.RLock()
	assert.Empty(t, c.flights)
	c.mu.RUnlock()
}

func TestConcurrent_CycleThroughNestedBuildDoesNotDeadlock(t *testing.T) {
	t.Parallel()

	// goroutine 1 builds A, which asks for X. goroutine 2 builds X -> Y,
	// and Y asks for A. X itself is not the build that is blocked.
	aStarted, yWaiting := make(chan struct{}), make(chan struct{})
	c := mustBuild(t, NewProvider().
		Factory("A", func(r Resolver) (any, error) {
			close(aStarted)
			<-yWaiting
			time.Sleep(20 * time.Millisecond)
			return r.Resolve("X")
		}).
		Factory("X", func(r Resolver) (any, error) {
			return r.Resolve("Y")
		}).
		Factory("Y", func(r Resolver) (any, error) {
			close(yWaiting)
			return r.Resolve("A")
		}))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, errs[0] = c.Get("A")
	}()
	go func() {
		defer wg.Done()
		<-aStarted
		_, errs[1] = c.Get("X")
	}()
	waitAll(t, &wg)

	for _, err := range errs {
		var cyc *CyclicDependencyError
		require.True(t, errors.As(err, &cyc), "got %v", err)
		assert.True(t, cyc.Runtime)
		assert.Len(t, cyc.Path, 4)
		assert.Equal(t, cyc.Path[0], cyc.Path[3])
		assert.ElementsMatch(t, []string{"A", "X", "Y"}, cyc.Path[:3])
	}
	for _, k := range []string{"A", "X", "Y"} {
		assert.False(t, c.Resolved(k), k)
	}

	c.mu.RLock()
	assert.Empty(t, c.flights)
	c.mu.RUnlock()
}

func TestConcurrent_DependencyBuiltOnceForManyDependents(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	p := NewProvider().Factory("base", func(Resolver) (any, error) {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return 1, nil
	})
	keys := []string{"d1", "d2", "d3", "d4", "d5", "d6"}
	for _, k := range keys {
		p.Factory(k, func(r Resolver) (any, error) {
			v, err := ResolveAs[int](r, "base")
			return v + 1, err
		}, "base")
	}
	c := mustBuild(t, p)

	var wg sync.WaitGroup
	for _, k := range keys {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := c.Get(k)
			assert.NoError(t, err)
			assert.Equal(t, 2, v)
		}()
	}
	waitAll(t, &wg)
	assert.EqualValues(t, 1, calls.Load())
}

// ── Panics ───────────────────────────────────────────────────────────────────

func TestPanic_ClearsInProgressMarker(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	c := mustBuild(t, NewProvider().Factory("fragile", func(Resolver) (any, error) {
		if calls.Add(1) == 1 {
			panic("first call explodes")
		}
		return "recovered", nil
	}))

	assert.PanicsWithValue(t, "first call explodes", func() { _, _ = c.Get("fragile") })

	v, err := c.Get("fragile")
	require.NoError(t, err)
	assert.Equal(t, "recovered", v)
}

func TestPanic_WaitersReceivePanicError(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	c := mustBuild(t, NewProvider().Factory("fragile", func(Resolver) (any, error) {
		close(started)
		<-release
		panic("boom")
	}))

	panicked := make(chan any, 1)
	go func() {
		defer func() { panicked <- recover() }()
		_, _ = c.Get("fragile")
	}()
	<-started

	waitErr := make(chan error, 1)
	go func() {
		_, err := c.Get("fragile")
		waitErr <- err
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)

	select {
	case err := <-waitErr:
		var pe *PanicError
		require.True(t, errors.As(err, &pe), "got %v", err)
		assert.Equal(t, "fragile", pe.Key)
		assert.Equal(t, "boom", pe.Value)
	case <-time.After(deadlockTimeout):
		t.Fatal("waiter never woke up")
	}
	assert.Equal(t, "boom", <-panicked)
}
