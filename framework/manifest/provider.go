package manifest

import (
	"maps"

	"github.com/pkg/errors"

	"github.com/km-arc/go-interop/framework/container"
)

// Provider turns the manifest into a container provider. Every resolution of
// a value entry gets its own deep copy, so extensions never mutate the
// manifest.
func (m *Manifest) Provider() *container.Provider {
	p := container.NewProvider()

	for k, s := range m.Services {
		if s.Ref != "" {
			ref := s.Ref
			p.Factory(k, func(c container.Resolver) (any, error) {
				return c.Resolve(ref)
			}, ref)
		} else {
			value := s.Value
			p.Factory(k, func(container.Resolver) (any, error) {
				return deepCopy(value), nil
			})
		}
		if len(s.DependsOn) > 0 {
			p.DependsOn(k, s.DependsOn...)
		}
	}

	for _, k := range sortedKeys(m.Extensions) {
		for _, e := range m.Extensions[k] {
			p.Extend(k, apply(k, e), e.DependsOn...)
		}
	}
	return p
}

// OpError is returned when an extension cannot be applied to the value it
// receives.
type OpError struct {
	Key string
	Op  string
	Got string
}

func (e *OpError) Error() string {
	return "manifest: cannot " + e.Op + " to " + e.Key + ": previous value is " + e.Got
}

func apply(key string, e Extension) container.ExtensionFunc {
	switch e.Op {
	case OpAppend:
		items, _ := e.Arg.([]any)
		return func(_ container.Resolver, prev any) (any, error) {
			var list []any
			switch v := prev.(type) {
			case []any:
				list = append(list, v...)
			default:
				if !container.IsAbsent(prev) {
					return nil, &OpError{Key: key, Op: OpAppend, Got: describe(prev)}
				}
			}
			for _, item := range items {
				list = append(list, deepCopy(item))
			}
			return list, nil
		}

	case OpMerge:
		fields, _ := e.Arg.(map[string]any)
		return func(_ container.Resolver, prev any) (any, error) {
			out := make(map[string]any)
			switch v := prev.(type) {
			case map[string]any:
				maps.Copy(out, v)
			default:
				if !container.IsAbsent(prev) {
					return nil, &OpError{Key: key, Op: OpMerge, Got: describe(prev)}
				}
			}
			for k, v := range fields {
				out[k] = deepCopy(v)
			}
			return out, nil
		}

	case OpSet:
		value := e.Arg
		return func(container.Resolver, any) (any, error) {
			return deepCopy(value), nil
		}
	}

	op := e.Op
	return func(container.Resolver, any) (any, error) {
		return nil, errors.Errorf("manifest: unknown extension operation %q for %s", op, key)
	}
}

func describe(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case []any:
		return "a list"
	case map[string]any:
		return "a map"
	default:
		return "a scalar"
	}
}

// deepCopy copies the lists and maps produced by the YAML decoder.
func deepCopy(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = deepCopy(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, item := range t {
			out[k] = deepCopy(item)
		}
		return out
	default:
		return v
	}
}
