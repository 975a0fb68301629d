package container

import "sort"

// binding holds everything registered for one key.
type binding struct {
	factory    Factory
	build      *definition
	extensions []Extension
	extenders  []*definition
}

// Registry holds, per key, at most one factory and an ordered list of
// extensions. It is filled by merging providers and is read-only once a
// Container has been built from it.
type Registry struct {
	bindings map[string]*binding
	ledger   *Ledger
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		bindings: make(map[string]*binding),
		ledger:   NewLedger(),
	}
}

// Merge adds the factories and extensions of p. If p binds a factory to a key
// that already has one, Merge returns a *DuplicateFactoryError and the
// registry is left exactly as it was. Extensions never conflict; they are
// appended after those of earlier providers.
func (r *Registry) Merge(p ServiceProvider) error {
	factories := p.Factories()

	keys := make([]string, 0, len(factories))
	for key, f := range factories {
		if f == nil {
			continue
		}
		if b, ok := r.bindings[key]; ok && b.factory != nil {
			return &DuplicateFactoryError{Key: key}
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		f := factories[key]
		b := r.binding(key)
		b.factory = f
		b.build = factoryDefinition(f)
		r.ledger.Declare(key, b.build.deps)
	}

	for key, exts := range p.Extensions() {
		for _, e := range exts {
			if e == nil {
				continue
			}
			b := r.binding(key)
			def := extensionDefinition(e)
			b.extensions = append(b.extensions, e)
			b.extenders = append(b.extenders, def)
			r.ledger.Declare(key, def.deps)
		}
	}

	if reporter, ok := p.(DependencyReporter); ok {
		for key, deps := range reporter.Dependencies() {
			r.ledger.Declare(key, deps)
		}
	}
	return nil
}

func (r *Registry) binding(key string) *binding {
	b, ok := r.bindings[key]
	if !ok {
		b = &binding{}
		r.bindings[key] = b
	}
	return b
}

// FactoryFor returns the factory bound to key.
func (r *Registry) FactoryFor(key string) (Factory, bool) {
	b, ok := r.bindings[key]
	if !ok || b.factory == nil {
		return nil, false
	}
	return b.factory, true
}

// ExtensionsFor returns the extensions of key in application order.
func (r *Registry) ExtensionsFor(key string) []Extension {
	b, ok := r.bindings[key]
	if !ok || len(b.extensions) == 0 {
		return nil
	}
	out := make([]Extension, len(b.extensions))
	copy(out, b.extensions)
	return out
}

// Has reports whether key has a factory or at least one extension.
func (r *Registry) Has(key string) bool {
	_, ok := r.bindings[key]
	return ok
}

// KnownKeys returns the sorted keys that have a factory or an extension.
func (r *Registry) KnownKeys() []string {
	out := make([]string, 0, len(r.bindings))
	for k := range r.bindings {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Ledger returns the dependency ledger filled by Merge.
func (r *Registry) Ledger() *Ledger { return r.ledger }
