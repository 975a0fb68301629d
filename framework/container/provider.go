package container

// ── ServiceProvider interface ─────────────────────────────────────────────────

// ServiceProvider bundles the entries a package contributes to a container.
//
// Factories maps a key to the factory producing its initial value. Extensions
// maps a key to extensions applied, in slice order, after the factory (or to
// Absent when no provider binds a factory for the key).
//
//	type MailProvider struct{ container.BaseProvider }
//
//	func (MailProvider) Factories() map[string]container.Factory {
//	    return map[string]container.Factory{
//	        "mailer": container.DeclareFactory(newMailer, "config"),
//	    }
//	}
type ServiceProvider interface {
	Factories() map[string]Factory
	Extensions() map[string][]Extension
}

// DependencyReporter may be implemented by a ServiceProvider to report the
// dependencies of its entries separately from the factories themselves.
// Reported keys are merged with whatever the factories and extensions declare.
type DependencyReporter interface {
	Dependencies() map[string][]string
}

// ── BaseProvider ──────────────────────────────────────────────────────────────

// BaseProvider is an embeddable struct with empty Factories and Extensions.
// Embed it and override only what the provider contributes.
type BaseProvider struct{}

func (BaseProvider) Factories() map[string]Factory      { return nil }
func (BaseProvider) Extensions() map[string][]Extension { return nil }

// ── Provider builder ──────────────────────────────────────────────────────────

// Provider is a ServiceProvider assembled with chained calls.
//
//	p := container.NewProvider().
//	    Factory("config", loadConfig).
//	    Factory("db", openDB, "config").
//	    Extend("db", withTracing, "tracer")
type Provider struct {
	factories  map[string]Factory
	extensions map[string][]Extension
	deps       map[string][]string
}

// NewProvider returns an empty Provider.
func NewProvider() *Provider {
	return &Provider{
		factories:  make(map[string]Factory),
		extensions: make(map[string][]Extension),
		deps:       make(map[string][]string),
	}
}

// Factory binds fn as the factory of key. Binding the same key twice on one
// Provider replaces the earlier factory; conflicts across providers are
// reported when the container is built.
func (p *Provider) Factory(key string, fn FactoryFunc, deps ...string) *Provider {
	if len(deps) == 0 {
		p.factories[key] = fn
	} else {
		p.factories[key] = DeclareFactory(fn, deps...)
	}
	return p
}

// Extend appends fn to the extensions of key.
func (p *Provider) Extend(key string, fn ExtensionFunc, deps ...string) *Provider {
	var ext Extension = fn
	if len(deps) > 0 {
		ext = DeclareExtension(fn, deps...)
	}
	p.extensions[key] = append(p.extensions[key], ext)
	return p
}

// DependsOn records extra dependencies of key without attaching them to a
// particular factory or extension.
func (p *Provider) DependsOn(key string, deps ...string) *Provider {
	p.deps[key] = append(p.deps[key], deps...)
	return p
}

func (p *Provider) Factories() map[string]Factory      { return p.factories }
func (p *Provider) Extensions() map[string][]Extension { return p.extensions }
func (p *Provider) Dependencies() map[string][]string  { return p.deps }
