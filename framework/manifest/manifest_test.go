package manifest

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/km-arc/go-interop/framework/container"
)

func build(t *testing.T, m *Manifest) *container.Container {
	t.Helper()
	c, err := container.Build([]container.ServiceProvider{m.Provider()})
	require.NoError(t, err)
	return c
}

// ── Load / Parse ─────────────────────────────────────────────────────────────

func TestLoad(t *testing.T) {
	m, err := Load("testdata/services.yaml")
	require.NoError(t, err)

	assert.Equal(t, "testdata/services.yaml", m.Source)
	assert.Equal(t, []string{"db.dsn", "db.primary", "feature.flags", "http.middleware", "settings"}, m.Keys())

	assert.Equal(t, "db.dsn", m.Services["db.primary"].Ref)
	assert.True(t, m.Services["feature.flags"].HasValue())
	assert.Nil(t, m.Services["feature.flags"].Value)

	exts := m.Extensions["http.middleware"]
	require.Len(t, exts, 2)
	assert.Equal(t, OpAppend, exts[0].Op)
	assert.Equal(t, []any{"auth"}, exts[0].Arg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("testdata/nope.yaml")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
	assert.Contains(t, err.Error(), "read manifest testdata/nope.yaml")
}

func TestParse_Empty(t *testing.T) {
	m, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, m.Keys())
}

func TestParse_UnknownFields(t *testing.T) {
	cases := map[string]string{
		"top level": "servics: {}\n",
		"service":   "services:\n  a:\n    valu: 1\n",
		"extension": "extensions:\n  a:\n    - prepend: [x]\n",
		"not a map": "services:\n  a: 1\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestParse_TypeMismatchInOperation(t *testing.T) {
	_, err := Parse([]byte("extensions:\n  a:\n    - append: {not: list}\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append")
}

// ── Validate ─────────────────────────────────────────────────────────────────

func TestValidate_ReportsEveryProblem(t *testing.T) {
	_, err := Load("testdata/invalid.yaml")

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{
		"services..hidden: The key format is invalid.",
		"services.both: value and ref are mutually exclusive",
		"services.neither: The dependsOn[0] format is invalid.",
		"services.neither: one of value or ref is required",
		"extensions.list[0]: exactly one of append, merge or set is required",
	}, verr.Problems)
}

func TestValidate_KeyLength(t *testing.T) {
	long := strings.Repeat("k", 256)
	m := &Manifest{Services: map[string]Service{long: {Value: 1, hasValue: true}}}

	err := m.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "may not be greater than 255 characters")

	ok := &Manifest{Services: map[string]Service{long[:255]: {Value: 1, hasValue: true}}}
	assert.NoError(t, ok.Validate())
}

func TestValidate_SelfRef(t *testing.T) {
	_, err := Parse([]byte("services:\n  loop:\n    ref: loop\n"))

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	assert.Equal(t, []string{"services.loop: The ref and key must be different."}, verr.Problems)
}

// ── Provider ─────────────────────────────────────────────────────────────────

func TestProvider_ResolvesValuesRefsAndExtensions(t *testing.T) {
	m, err := Load("testdata/services.yaml")
	require.NoError(t, err)
	c := build(t, m)

	dsn, err := c.Get("db.dsn")
	require.NoError(t, err)
	assert.Equal(t, "postgres://replica/app", dsn)

	primary, err := c.Get("db.primary")
	require.NoError(t, err)
	assert.Equal(t, dsn, primary)

	mw, err := c.Get("http.middleware")
	require.NoError(t, err)
	assert.Equal(t, []any{"recover", "auth", "metrics"}, mw)

	settings, err := c.Get("settings")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"debug": true, "level": 3}, settings)

	flags, err := c.Get("feature.flags")
	require.NoError(t, err)
	assert.Nil(t, flags)
}

func TestProvider_DeclaresDependencies(t *testing.T) {
	m, err := Load("testdata/services.yaml")
	require.NoError(t, err)
	c := build(t, m)

	info, ok := c.Entry("http.middleware")
	require.True(t, ok)
	assert.Equal(t, []string{"db.primary"}, info.Dependencies)

	info, _ = c.Entry("db.primary")
	assert.Equal(t, []string{"db.dsn"}, info.Dependencies)

	assert.Equal(t, map[string][]string{
		"db.primary":      {"db.dsn"},
		"http.middleware": {"db.primary"},
	}, m.Dependencies())
}

func TestProvider_RefCycleIsDeclared(t *testing.T) {
	m, err := Load("testdata/cycle.yaml")
	require.NoError(t, err)
	c := build(t, m)

	_, err = c.Get("a")
	var cyc *container.CyclicDependencyError
	require.True(t, errors.As(err, &cyc))
	assert.Equal(t, []string{"a", "b", "a"}, cyc.Path)
	assert.False(t, cyc.Runtime)

	v, err := c.Get("standalone")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
}

func TestProvider_ValuesAreCopiedPerContainer(t *testing.T) {
	m, err := Parse([]byte("services:\n  list:\n    value: [a]\n"))
	require.NoError(t, err)

	first := build(t, m)
	v, err := first.Get("list")
	require.NoError(t, err)
	v.([]any)[0] = "mutated"

	second := build(t, m)
	v, err = second.Get("list")
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, v)
}

func TestProvider_OperationOnWrongType(t *testing.T) {
	m, err := Parse([]byte(`
services:
  name:
    value: gopher
extensions:
  name:
    - append: [x]
  count:
    - set: 1
    - merge: {a: 1}
`))
	require.NoError(t, err)
	c := build(t, m)

	_, err = c.Get("name")
	var opErr *OpError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, "name", opErr.Key)
	assert.Equal(t, OpAppend, opErr.Op)
	assert.Equal(t, "manifest: cannot append to name: previous value is a scalar", err.Error())

	_, err = c.Get("count")
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, OpMerge, opErr.Op)
}

func TestProvider_ExtensionsOnAbsent(t *testing.T) {
	m, err := Parse([]byte("extensions:\n  list:\n    - append: [a, b]\n  map:\n    - merge: {k: v}\n"))
	require.NoError(t, err)
	c := build(t, m)

	list, err := c.Get("list")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, list)

	mp, err := c.Get("map")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"k": "v"}, mp)
}
