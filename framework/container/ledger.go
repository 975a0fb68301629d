package container

import "sort"

// Ledger records the dependencies each key declares. It has no knowledge of
// factories; it is only consulted to find cycles early and to describe the
// container.
//
// A Ledger is filled while providers are merged and is read-only afterwards,
// so it needs no locking during resolution.
type Ledger struct {
	deps map[string]map[string]struct{}
}

// NewLedger returns an empty Ledger.
func NewLedger() *Ledger {
	return &Ledger{deps: make(map[string]map[string]struct{})}
}

// Declare adds deps to the dependencies of key. Repeated declarations
// accumulate.
func (l *Ledger) Declare(key string, deps []string) {
	set, ok := l.deps[key]
	if !ok {
		set = make(map[string]struct{}, len(deps))
		l.deps[key] = set
	}
	for _, d := range deps {
		if d == "" {
			continue
		}
		set[d] = struct{}{}
	}
}

// DependenciesOf returns the sorted dependencies declared for key.
func (l *Ledger) DependenciesOf(key string) []string {
	set := l.deps[key]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for d := range set {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Keys returns the sorted keys that have at least one declaration.
func (l *Ledger) Keys() []string {
	out := make([]string, 0, len(l.deps))
	for k := range l.deps {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FindCycle looks for a declared path from start back to start. The returned
// path begins and ends with start; a key that declares itself yields
// [start, start]. FindCycle returns nil when no such path exists.
//
// Cycles reachable from start that do not pass through it are not reported
// here; they surface when one of their own keys is resolved.
func (l *Ledger) FindCycle(start string) []string {
	visited := make(map[string]bool)
	var stack []string

	var visit func(key string) []string
	visit = func(key string) []string {
		visited[key] = true
		stack = append(stack, key)
		for _, dep := range l.DependenciesOf(key) {
			if dep == start {
				path := make([]string, len(stack)+1)
				copy(path, stack)
				path[len(stack)] = start
				return path
			}
			if visited[dep] {
				continue
			}
			if path := visit(dep); path != nil {
				return path
			}
		}
		stack = stack[:len(stack)-1]
		return nil
	}

	return visit(start)
}
