package container

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// flight tracks a key whose factory and extensions are running. Other callers
// asking for the same key wait on done instead of building it again.
type flight struct {
	key  string
	done chan struct{}

	// set before done is closed
	value any
	err   error

	// task is the resolution chain whose goroutine runs this flight.
	task *task
}

// task is one goroutine's chain of nested builds. Only the innermost build
// of a chain can be blocked. Guarded by Container.mu.
type task struct {
	waitingOn *flight // flight the chain is blocked on
	blocked   *scope  // scope of the build that is blocked
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container resolves keys from a Registry, building each key at most once and
// caching the result for its own lifetime.
//
// Containers are independent values: two containers built from the same
// providers share nothing. All methods are safe for concurrent use.
type Container struct {
	id       string
	registry *Registry
	log      logrus.FieldLogger
	metrics  *Metrics
	verify   bool

	mu      sync.RWMutex
	cache   map[string]any
	flights map[string]*flight

	// key → declared cycle path, or an empty slice when there is none
	cycles sync.Map
}

// Build merges providers in order and returns a container over the result.
// If any merge fails, Build returns the error and no container.
//
//	c, err := container.Build([]container.ServiceProvider{
//	    &ConfigProvider{},
//	    &DatabaseProvider{},
//	}, container.WithLogger(log))
func Build(providers []ServiceProvider, opts ...Option) (*Container, error) {
	r := NewRegistry()
	for _, p := range providers {
		if p == nil {
			continue
		}
		if err := r.Merge(p); err != nil {
			return nil, err
		}
	}
	return New(r, opts...), nil
}

// New returns a container over r. r must not be merged into afterwards.
func New(r *Registry, opts ...Option) *Container {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	id := uuid.NewString()
	c := &Container{
		id:       id,
		registry: r,
		log:      o.logger.WithField("container", id),
		metrics:  o.metrics,
		verify:   o.verify,
		cache:    make(map[string]any),
		flights:  make(map[string]*flight),
	}
	c.log.WithField("keys", len(r.bindings)).Debug("container built")
	return c
}

// ID returns the identifier assigned to the container when it was built.
func (c *Container) ID() string { return c.id }

// Registry returns the registry the container resolves from.
func (c *Container) Registry() *Registry { return c.registry }

// ── Resolution ────────────────────────────────────────────────────────────────

// Get returns the value of key, building it on first use. It returns a
// *NotFoundError when key has neither a factory nor an extension. A key with
// only extensions may resolve to Absent, which is not an error.
//
// Get starts a new resolution chain. Factories and extensions must use the
// Resolver passed to them instead: a cycle that goes through a Get made
// inside a build cannot be detected and deadlocks.
func (c *Container) Get(key string) (any, error) {
	return c.resolve(key, nil)
}

// Resolve is Get; it makes Container a Resolver.
func (c *Container) Resolve(key string) (any, error) {
	return c.resolve(key, nil)
}

// Has reports whether key has a factory or at least one extension. It does not
// build anything.
func (c *Container) Has(key string) bool {
	return c.registry.Has(key)
}

// Resolved reports whether key has been built and cached.
func (c *Container) Resolved(key string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.cache[key]
	return ok
}

func (c *Container) resolve(key string, parent *scope) (any, error) {
	if !c.registry.Has(key) {
		c.metrics.observe(OutcomeNotFound)
		return nil, &NotFoundError{Key: key}
	}

	c.mu.RLock()
	v, ok := c.cache[key]
	c.mu.RUnlock()
	if ok {
		c.metrics.observe(OutcomeHit)
		return v, nil
	}

	if path := c.DeclaredCycle(key); path != nil {
		return nil, c.cycle(key, path, false)
	}

	c.mu.Lock()
	if v, ok := c.cache[key]; ok {
		c.mu.Unlock()
		c.metrics.observe(OutcomeHit)
		return v, nil
	}

	if f, ok := c.flights[key]; ok {
		if path := parent.waitCycle(f); path != nil {
			c.mu.Unlock()
			return nil, c.cycle(key, path, true)
		}
		if parent != nil {
			parent.task.waitingOn, parent.task.blocked = f, parent
		}
		c.mu.Unlock()

		<-f.done

		if parent != nil {
			c.mu.Lock()
			parent.task.waitingOn, parent.task.blocked = nil, nil
			c.mu.Unlock()
		}
		c.metrics.observe(OutcomeWaited)
		return f.value, f.err
	}

	t := &task{}
	if parent != nil {
		t = parent.task
	}
	f := &flight{key: key, done: make(chan struct{}), task: t}
	c.flights[key] = f
	c.mu.Unlock()

	return c.build(f, c.newScope(parent, f))
}

// build runs the factory and extensions of f.key and completes the flight,
// whatever the outcome.
func (c *Container) build(f *flight, sc *scope) (value any, err error) {
	start := time.Now()
	c.metrics.startBuild()

	completed := false
	defer func() {
		c.metrics.endBuild(f.key, time.Since(start))
		if completed {
			return
		}
		r := recover()
		c.finish(f, nil, &PanicError{Key: f.key, Value: r})
		if r != nil {
			panic(r)
		}
	}()

	value, err = c.run(f.key, sc)
	completed = true
	c.finish(f, value, err)

	entry := c.log.WithFields(logrus.Fields{"key": f.key, "duration": time.Since(start)})
	if err != nil {
		c.metrics.observe(OutcomeFailed)
		entry.WithError(err).Debug("resolution failed")
		return nil, err
	}
	c.metrics.observe(OutcomeBuilt)
	entry.Debug("resolved")

	if c.verify {
		c.verifyDependencies(f.key, sc)
	}
	return value, nil
}

// run produces the value of key: the factory's output (or Absent) folded
// through every extension in order.
func (c *Container) run(key string, sc *scope) (any, error) {
	b := c.registry.bindings[key]

	value := Absent
	if b.build != nil {
		v, err := b.build.build(sc, nil)
		if err != nil {
			return nil, err
		}
		value = v
	}

	for _, ext := range b.extenders {
		v, err := ext.build(sc, value)
		if err != nil {
			return nil, err
		}
		value = v
	}
	return value, nil
}

// finish caches a successful value, clears the in-progress marker and wakes
// any waiters.
func (c *Container) finish(f *flight, value any, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err == nil {
		c.cache[f.key] = value
	}
	delete(c.flights, f.key)
	f.value, f.err = value, err
	close(f.done)
}

func (c *Container) cycle(key string, path []string, atRuntime bool) error {
	c.metrics.observe(OutcomeCycle)
	c.log.WithFields(logrus.Fields{
		"key":     key,
		"path":    strings.Join(path, " -> "),
		"runtime": atRuntime,
	}).Warn("dependency cycle")
	return &CyclicDependencyError{Path: path, Runtime: atRuntime}
}

// DeclaredCycle returns the declared dependency cycle through key, or nil.
// Results are memoized since the ledger never changes after build.
func (c *Container) DeclaredCycle(key string) []string {
	if cached, ok := c.cycles.Load(key); ok {
		path := cached.([]string)
		if len(path) == 0 {
			return nil
		}
		return append([]string(nil), path...)
	}

	path := c.registry.ledger.FindCycle(key)
	if path == nil {
		c.cycles.Store(key, []string{})
		return nil
	}
	c.cycles.Store(key, path)
	return append([]string(nil), path...)
}

func (c *Container) verifyDependencies(key string, sc *scope) {
	declared := make(map[string]struct{})
	for _, d := range c.registry.ledger.DependenciesOf(key) {
		declared[d] = struct{}{}
	}
	for _, got := range sc.requestedKeys() {
		if _, ok := declared[got]; ok {
			continue
		}
		c.log.WithFields(logrus.Fields{
			"key":        key,
			"dependency": got,
		}).Warn("undeclared dependency resolved")
	}
}

// ── Warm-up ───────────────────────────────────────────────────────────────────

// Warm resolves keys concurrently, or every known key when none are given,
// and returns the first error. Cancelling ctx stops keys that have not
// started yet; builds already running always complete.
func (c *Container) Warm(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		keys = c.registry.KnownKeys()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, key := range keys {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			_, err := c.Get(key)
			return err
		})
	}
	return g.Wait()
}

// ── Inspection ────────────────────────────────────────────────────────────────

// EntryInfo describes one key of a container.
type EntryInfo struct {
	Key          string   `json:"key"`
	Factory      bool     `json:"factory"`
	Extensions   int      `json:"extensions"`
	Dependencies []string `json:"dependencies,omitempty"`
	Resolved     bool     `json:"resolved"`
}

// Keys returns every known key, sorted.
func (c *Container) Keys() []string {
	return c.registry.KnownKeys()
}

// Entry describes key; ok is false for unknown keys.
func (c *Container) Entry(key string) (EntryInfo, bool) {
	b, ok := c.registry.bindings[key]
	if !ok {
		return EntryInfo{}, false
	}
	return EntryInfo{
		Key:          key,
		Factory:      b.factory != nil,
		Extensions:   len(b.extensions),
		Dependencies: c.registry.ledger.DependenciesOf(key),
		Resolved:     c.Resolved(key),
	}, true
}

// Entries describes every known key, sorted by key.
func (c *Container) Entries() []EntryInfo {
	keys := c.registry.KnownKeys()
	out := make([]EntryInfo, 0, len(keys))
	for _, k := range keys {
		info, _ := c.Entry(k)
		out = append(out, info)
	}
	return out
}
