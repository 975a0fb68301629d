package providers

import (
	"errors"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-interop/framework/config"
	"github.com/km-arc/go-interop/framework/container"
	"github.com/km-arc/go-interop/framework/inspector"
	"github.com/km-arc/go-interop/framework/logging"
	"github.com/km-arc/go-interop/framework/routing"
)

// Keys bound by the framework providers.
const (
	KeyConfig           = "config"
	KeyLogger           = "logger"
	KeyContainer        = "container"
	KeyMetricsRegistry  = "metrics.registry"
	KeyContainerMetrics = "container.metrics"
	KeyRouter           = "router"
)

// ── ConfigServiceProvider ─────────────────────────────────────────────────────

// ConfigServiceProvider loads the application configuration from .env.
//
// Bound keys:
//   - "config"  → *config.Config
//
// A non-nil Config is bound as-is instead of being loaded.
type ConfigServiceProvider struct {
	container.BaseProvider
	EnvFiles []string
	Config   *config.Config
}

func (p *ConfigServiceProvider) Factories() map[string]container.Factory {
	return map[string]container.Factory{
		KeyConfig: container.FactoryFunc(func(container.Resolver) (any, error) {
			if p.Config != nil {
				return p.Config, nil
			}
			return config.Load(p.EnvFiles...), nil
		}),
	}
}

// ── LogServiceProvider ────────────────────────────────────────────────────────

// LogServiceProvider builds the shared logger from the "config" entry.
//
// Bound keys:
//   - "logger"  → *logrus.Logger
//
// A non-nil Logger is bound as-is.
type LogServiceProvider struct {
	container.BaseProvider
	Logger *logrus.Logger
}

func (p *LogServiceProvider) Factories() map[string]container.Factory {
	if p.Logger != nil {
		return map[string]container.Factory{
			KeyLogger: container.FactoryFunc(func(container.Resolver) (any, error) {
				return p.Logger, nil
			}),
		}
	}
	return map[string]container.Factory{
		KeyLogger: container.DeclareFactory(func(c container.Resolver) (any, error) {
			cfg, err := container.ResolveAs[*config.Config](c, KeyConfig)
			if err != nil {
				return nil, err
			}
			return logging.New(cfg.Log), nil
		}, KeyConfig),
	}
}

// ── ContainerServiceProvider ──────────────────────────────────────────────────

// ContainerServiceProvider binds the container to its own "container" key.
// The container does not exist while providers are merged, so Set must be
// called once Build has returned.
//
// The bound *Container is for code running outside resolution, such as HTTP
// handlers. Factories and extensions that need other keys must resolve them
// through the Resolver they are given: a Get on the container from inside a
// build is not part of the build's chain, so a cycle through it blocks
// forever instead of failing with a CyclicDependencyError.
type ContainerServiceProvider struct {
	container.BaseProvider
	self atomic.Pointer[container.Container]
}

// Set records the container to hand out.
func (p *ContainerServiceProvider) Set(c *container.Container) { p.self.Store(c) }

func (p *ContainerServiceProvider) Factories() map[string]container.Factory {
	return map[string]container.Factory{
		KeyContainer: container.FactoryFunc(func(container.Resolver) (any, error) {
			c := p.self.Load()
			if c == nil {
				return nil, errors.New("providers: container resolved before ContainerServiceProvider.Set")
			}
			return c, nil
		}),
	}
}

// ── MetricsServiceProvider ────────────────────────────────────────────────────

// MetricsServiceProvider binds the Prometheus registry and the container's
// own collectors. Both are created up front by NewMetricsServiceProvider so
// the same Metrics can be passed to container.WithMetrics.
//
// Bound keys:
//   - "metrics.registry"   → *prometheus.Registry
//   - "container.metrics"  → *container.Metrics
type MetricsServiceProvider struct {
	container.BaseProvider
	Registry *prometheus.Registry
	Metrics  *container.Metrics
}

// NewMetricsServiceProvider creates a registry with the Go and process
// collectors plus the container collectors.
func NewMetricsServiceProvider() (*MetricsServiceProvider, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m, err := container.NewMetrics(reg)
	if err != nil {
		return nil, err
	}
	return &MetricsServiceProvider{Registry: reg, Metrics: m}, nil
}

func (p *MetricsServiceProvider) Factories() map[string]container.Factory {
	return map[string]container.Factory{
		KeyMetricsRegistry: container.FactoryFunc(func(container.Resolver) (any, error) {
			return p.Registry, nil
		}),
		KeyContainerMetrics: container.DeclareFactory(func(c container.Resolver) (any, error) {
			// the collectors are registered in metrics.registry
			if _, err := c.Resolve(KeyMetricsRegistry); err != nil {
				return nil, err
			}
			return p.Metrics, nil
		}, KeyMetricsRegistry),
	}
}

// ── RoutingServiceProvider ────────────────────────────────────────────────────

// RoutingServiceProvider registers the HTTP router.
//
// Bound keys:
//   - "router"  → *routing.Router
type RoutingServiceProvider struct {
	container.BaseProvider
}

func (p *RoutingServiceProvider) Factories() map[string]container.Factory {
	return map[string]container.Factory{
		KeyRouter: container.DeclareFactory(func(c container.Resolver) (any, error) {
			log, err := container.ResolveAs[*logrus.Logger](c, KeyLogger)
			if err != nil {
				return nil, err
			}
			return routing.New(log), nil
		}, KeyLogger),
	}
}

// ── InspectorServiceProvider ──────────────────────────────────────────────────

// InspectorServiceProvider extends "router" with the inspector endpoints. It
// binds nothing itself. Metrics are served when config enables them and a
// "metrics.registry" entry exists.
type InspectorServiceProvider struct {
	container.BaseProvider
}

func (p *InspectorServiceProvider) Extensions() map[string][]container.Extension {
	return map[string][]container.Extension{
		KeyRouter: {container.DeclareExtension(mountInspector, KeyConfig, KeyLogger, KeyContainer, KeyMetricsRegistry)},
	}
}

func mountInspector(c container.Resolver, previous any) (any, error) {
	router, ok := previous.(*routing.Router)
	if !ok {
		return nil, errors.New("providers: inspector needs a *routing.Router under \"router\"")
	}
	cfg, err := container.ResolveAs[*config.Config](c, KeyConfig)
	if err != nil {
		return nil, err
	}
	log, err := container.ResolveAs[*logrus.Logger](c, KeyLogger)
	if err != nil {
		return nil, err
	}
	self, err := container.ResolveAs[*container.Container](c, KeyContainer)
	if err != nil {
		return nil, err
	}

	var opts []inspector.Option
	if cfg.Inspector.Metrics && c.Has(KeyMetricsRegistry) {
		reg, err := container.ResolveAs[*prometheus.Registry](c, KeyMetricsRegistry)
		if err != nil {
			return nil, err
		}
		opts = append(opts, inspector.WithGatherer(reg))
	}

	inspector.New(self, log.WithField("component", "inspector"), opts...).Mount(router, cfg.Inspector.Prefix)
	return router, nil
}
