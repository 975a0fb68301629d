// Package manifest declares container entries in YAML so a container can be
// assembled and inspected without writing a provider in Go.
//
//	services:
//	  db.dsn:
//	    value: postgres://localhost/app
//	  db.primary:
//	    ref: db.dsn
//	extensions:
//	  http.middleware:
//	    - append: [auth]
//	  settings:
//	    - merge: {debug: true}
//
// A service has exactly one of value (a constant) or ref (the value of
// another key). An extension has exactly one of append, merge or set.
package manifest

import (
	"bytes"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Manifest is a parsed manifest file.
type Manifest struct {
	Services   map[string]Service     `yaml:"services"`
	Extensions map[string][]Extension `yaml:"extensions"`

	// Source is the file the manifest was loaded from, if any.
	Source string `yaml:"-"`
}

// Service is one factory entry.
type Service struct {
	Value     any
	Ref       string
	DependsOn []string

	hasValue bool
}

// HasValue reports whether the entry set value, including an explicit null.
func (s Service) HasValue() bool { return s.hasValue }

func (s *Service) UnmarshalYAML(node *yaml.Node) error {
	return eachField(node, func(key string, value *yaml.Node) error {
		switch key {
		case "value":
			s.hasValue = true
			return value.Decode(&s.Value)
		case "ref":
			return value.Decode(&s.Ref)
		case "dependsOn":
			return value.Decode(&s.DependsOn)
		}
		return errors.Errorf("line %d: unknown field %q", value.Line, key)
	})
}

// Extension operations.
const (
	OpAppend = "append"
	OpMerge  = "merge"
	OpSet    = "set"
)

// Extension is one step applied to a key after its factory.
type Extension struct {
	Op        string
	Arg       any
	DependsOn []string

	// ops counts the operation fields present; Validate rejects anything
	// but one.
	ops int
}

func (e *Extension) UnmarshalYAML(node *yaml.Node) error {
	return eachField(node, func(key string, value *yaml.Node) error {
		var err error
		switch key {
		case "dependsOn":
			return value.Decode(&e.DependsOn)
		case OpAppend:
			var list []any
			err = value.Decode(&list)
			e.record(key, list)
		case OpMerge:
			var m map[string]any
			err = value.Decode(&m)
			e.record(key, m)
		case OpSet:
			var v any
			err = value.Decode(&v)
			e.record(key, v)
		default:
			return errors.Errorf("line %d: unknown field %q", value.Line, key)
		}
		return errors.Wrapf(err, "line %d: %s", value.Line, key)
	})
}

// record keeps the first operation seen and counts the rest.
func (e *Extension) record(op string, arg any) {
	e.ops++
	if e.Op == "" {
		e.Op, e.Arg = op, arg
	}
}

// eachField calls fn for every key of a mapping node, in document order.
func eachField(node *yaml.Node, fn func(key string, value *yaml.Node) error) error {
	if node.Kind != yaml.MappingNode {
		return errors.Errorf("line %d: expected a mapping", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Load reads, parses and validates the manifest at path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read manifest %s", path)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	m.Source = path
	return m, nil
}

// Parse decodes and validates a manifest document. Unknown top-level fields
// are rejected.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&m); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse")
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Keys returns every key the manifest mentions as a service or extension,
// sorted.
func (m *Manifest) Keys() []string {
	seen := make(map[string]struct{}, len(m.Services)+len(m.Extensions))
	for k := range m.Services {
		seen[k] = struct{}{}
	}
	for k := range m.Extensions {
		seen[k] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Dependencies reports the dependsOn lists of services and extensions, plus
// each ref, per key.
func (m *Manifest) Dependencies() map[string][]string {
	out := make(map[string][]string)
	for k, s := range m.Services {
		deps := append([]string(nil), s.DependsOn...)
		if s.Ref != "" {
			deps = append(deps, s.Ref)
		}
		if len(deps) > 0 {
			out[k] = deps
		}
	}
	for k, exts := range m.Extensions {
		for _, e := range exts {
			out[k] = append(out[k], e.DependsOn...)
		}
		if len(out[k]) == 0 {
			delete(out, k)
		}
	}
	return out
}
