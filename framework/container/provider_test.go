package container

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── stub providers ────────────────────────────────────────────────────────────

// greetingProvider embeds BaseProvider and only contributes factories.
type greetingProvider struct{ BaseProvider }

func (greetingProvider) Factories() map[string]Factory {
	return map[string]Factory{
		"greeting": DeclareFactory(func(c Resolver) (any, error) {
			name, err := ResolveAs[string](c, "name")
			if err != nil {
				return nil, err
			}
			return "hello " + name, nil
		}, "name"),
	}
}

// shoutProvider only contributes extensions.
type shoutProvider struct{ BaseProvider }

func (shoutProvider) Extensions() map[string][]Extension {
	return map[string][]Extension{
		"greeting": {ExtensionFunc(func(_ Resolver, prev any) (any, error) {
			return prev.(string) + "!", nil
		})},
	}
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

func TestBaseProvider_ContributesNothing(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.NoError(t, r.Merge(BaseProvider{}))
	assert.Empty(t, r.KnownKeys())
}

func TestEmbeddedProviders(t *testing.T) {
	t.Parallel()

	c := mustBuild(t,
		NewProvider().Factory("name", constant("gopher")),
		greetingProvider{},
		shoutProvider{},
	)

	v, err := c.Get("greeting")
	require.NoError(t, err)
	assert.Equal(t, "hello gopher!", v)

	info, ok := c.Entry("greeting")
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, info.Dependencies)
	assert.Equal(t, 1, info.Extensions)
}

// ── Provider builder ──────────────────────────────────────────────────────────

func TestProvider_FactoryReplacesWithinOneProvider(t *testing.T) {
	t.Parallel()

	p := NewProvider().
		Factory("x", constant(1)).
		Factory("x", constant(2))

	c := mustBuild(t, p)
	v, err := c.Get("x")
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestProvider_DeclaredFactoryKeepsDependencies(t *testing.T) {
	t.Parallel()

	p := NewProvider().
		Factory("plain", constant(1)).
		Factory("declared", constant(2), "plain", "plain", "")

	assert.Empty(t, p.Factories()["plain"].Dependencies())
	assert.Equal(t, []string{"plain", "plain", ""}, p.Factories()["declared"].Dependencies())

	r := NewRegistry()
	require.NoError(t, r.Merge(p))
	assert.Equal(t, []string{"plain"}, r.Ledger().DependenciesOf("declared"))
}

func TestProvider_ExtendAppendsInCallOrder(t *testing.T) {
	t.Parallel()

	p := NewProvider().
		Extend("list", func(_ Resolver, prev any) (any, error) { return []int{1}, nil }).
		Extend("list", func(_ Resolver, prev any) (any, error) {
			return append(prev.([]int), 2), nil
		}, "unused")

	exts := p.Extensions()["list"]
	require.Len(t, exts, 2)
	assert.Empty(t, exts[0].Dependencies())
	assert.Equal(t, []string{"unused"}, exts[1].Dependencies())

	c := mustBuild(t, p)
	v, err := c.Get("list")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, v)
}

func TestProvider_DependsOnIsReported(t *testing.T) {
	t.Parallel()

	p := NewProvider().DependsOn("a", "b").DependsOn("a", "c")
	assert.Equal(t, map[string][]string{"a": {"b", "c"}}, p.Dependencies())

	var _ DependencyReporter = p
}
