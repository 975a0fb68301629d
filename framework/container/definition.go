package container

import "sort"

// ── Absent ────────────────────────────────────────────────────────────────────

type absent struct{}

func (absent) String() string { return "<absent>" }

// Absent is the value of a key that has no factory. Extensions targeting such
// a key receive Absent as their previous value, and a key whose extensions
// all pass it through resolves to Absent.
//
// Absent is distinct from nil: a factory may legitimately produce nil.
var Absent any = absent{}

// IsAbsent reports whether v is the Absent sentinel.
func IsAbsent(v any) bool {
	_, ok := v.(absent)
	return ok
}

// ── Resolver ──────────────────────────────────────────────────────────────────

// Resolver is the handle factories and extensions receive. Calls made through
// it take part in the caller's resolution, which is how runtime cycles are
// detected.
type Resolver interface {
	// Resolve returns the value for key, building it on first use.
	Resolve(key string) (any, error)

	// Has reports whether key has a factory or at least one extension.
	Has(key string) bool
}

// ── Factories ─────────────────────────────────────────────────────────────────

// Factory builds the initial value of a key.
type Factory interface {
	Build(c Resolver) (any, error)

	// Dependencies lists the keys Build is expected to resolve. The list is
	// advisory and only used for early cycle detection and inspection.
	Dependencies() []string
}

// FactoryFunc adapts a plain function to Factory. It declares no
// dependencies.
//
//	p.Factory("clock", func(c container.Resolver) (any, error) {
//	    return time.Now, nil
//	})
type FactoryFunc func(c Resolver) (any, error)

func (f FactoryFunc) Build(c Resolver) (any, error) { return f(c) }
func (FactoryFunc) Dependencies() []string          { return nil }

type declaredFactory struct {
	fn   FactoryFunc
	deps []string
}

func (f declaredFactory) Build(c Resolver) (any, error) { return f.fn(c) }
func (f declaredFactory) Dependencies() []string        { return f.deps }

// DeclareFactory wraps fn with a declared dependency list.
//
//	container.DeclareFactory(func(c container.Resolver) (any, error) {
//	    dsn, err := container.ResolveAs[string](c, "db.dsn")
//	    if err != nil {
//	        return nil, err
//	    }
//	    return sql.Open("postgres", dsn)
//	}, "db.dsn")
func DeclareFactory(fn FactoryFunc, deps ...string) Factory {
	return declaredFactory{fn: fn, deps: deps}
}

// ── Extensions ────────────────────────────────────────────────────────────────

// Extension post-processes the current value of a key. Extensions of one key
// run in registration order, each receiving the previous one's output.
type Extension interface {
	Apply(c Resolver, previous any) (any, error)
	Dependencies() []string
}

// ExtensionFunc adapts a plain function to Extension. It declares no
// dependencies.
type ExtensionFunc func(c Resolver, previous any) (any, error)

func (f ExtensionFunc) Apply(c Resolver, previous any) (any, error) { return f(c, previous) }
func (ExtensionFunc) Dependencies() []string                        { return nil }

type declaredExtension struct {
	fn   ExtensionFunc
	deps []string
}

func (e declaredExtension) Apply(c Resolver, previous any) (any, error) {
	return e.fn(c, previous)
}
func (e declaredExtension) Dependencies() []string { return e.deps }

// DeclareExtension wraps fn with a declared dependency list.
func DeclareExtension(fn ExtensionFunc, deps ...string) Extension {
	return declaredExtension{fn: fn, deps: deps}
}

// ── definition ────────────────────────────────────────────────────────────────

// definition is the normalized form of a factory or extension, captured once
// when a provider is merged.
type definition struct {
	build func(c Resolver, previous any) (any, error)
	deps  []string
}

func factoryDefinition(f Factory) *definition {
	return &definition{
		build: func(c Resolver, _ any) (any, error) { return f.Build(c) },
		deps:  normalizeKeys(f.Dependencies()),
	}
}

func extensionDefinition(e Extension) *definition {
	return &definition{
		build: e.Apply,
		deps:  normalizeKeys(e.Dependencies()),
	}
}

// normalizeKeys drops empty keys and duplicates and sorts the rest.
func normalizeKeys(keys []string) []string {
	if len(keys) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
