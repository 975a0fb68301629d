package container

import (
	"sort"
	"sync"
)

// scope is the Resolver handed to a factory or extension. It remembers the
// flights owned by the resolution that invoked it, so that asking for one of
// them again is reported as a cycle instead of waiting forever.
//
// A scope belongs to the goroutine running the factory. Factories that hand
// the Resolver to other goroutines still get correct values, but cross-
// goroutine cycles started from those goroutines are not detected.
type scope struct {
	c     *Container
	task  *task
	chain []*flight

	mu        sync.Mutex
	requested map[string]struct{}
}

func (c *Container) newScope(parent *scope, f *flight) *scope {
	s := &scope{c: c, task: f.task}
	if parent != nil {
		s.chain = make([]*flight, len(parent.chain), len(parent.chain)+1)
		copy(s.chain, parent.chain)
	}
	s.chain = append(s.chain, f)
	return s
}

func (s *scope) Resolve(key string) (any, error) {
	s.mu.Lock()
	if s.requested == nil {
		s.requested = make(map[string]struct{})
	}
	s.requested[key] = struct{}{}
	s.mu.Unlock()

	return s.c.resolve(key, s)
}

func (s *scope) Has(key string) bool {
	return s.c.Has(key)
}

func (s *scope) owns(f *flight) int {
	for i, owned := range s.chain {
		if owned == f {
			return i
		}
	}
	return -1
}

// waitCycle reports whether waiting on f would deadlock: either f is owned by
// this scope, or the chain building f is (through a sequence of waits)
// blocked on a flight this scope owns. It returns the cycle path, or nil.
// Must be called with Container.mu held.
func (s *scope) waitCycle(f *flight) []string {
	if s == nil {
		return nil
	}

	var waits []string
	for w := f; w != nil; {
		if i := s.owns(w); i >= 0 {
			path := make([]string, 0, len(s.chain)-i+len(waits)+1)
			for _, owned := range s.chain[i:] {
				path = append(path, owned.key)
			}
			path = append(path, waits...)
			return append(path, w.key)
		}

		// w is somewhere in its chain, not necessarily the innermost build;
		// follow the chain down to the build that is actually waiting.
		t := w.task
		if t == nil || t.waitingOn == nil {
			return nil
		}
		j := t.blocked.owns(w)
		if j < 0 {
			return nil
		}
		for _, fl := range t.blocked.chain[j:] {
			waits = append(waits, fl.key)
		}
		w = t.waitingOn
	}
	return nil
}

func (s *scope) requestedKeys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.requested))
	for k := range s.requested {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
