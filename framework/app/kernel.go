package app

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-interop/framework/config"
	"github.com/km-arc/go-interop/framework/container"
	"github.com/km-arc/go-interop/framework/logging"
	"github.com/km-arc/go-interop/framework/manifest"
	"github.com/km-arc/go-interop/framework/providers"
	"github.com/km-arc/go-interop/framework/routing"
)

// shutdownTimeout bounds how long Run waits for in-flight requests.
const shutdownTimeout = 10 * time.Second

// Application is the top-level application container. It embeds the
// Container so user code can call app.Get() and app.Has() directly.
type Application struct {
	*container.Container

	config *config.Config
	log    *logrus.Logger

	bootOnce sync.Once
	bootErr  error
}

type options struct {
	envFiles  []string
	config    *config.Config
	logger    *logrus.Logger
	manifest  string
	providers []container.ServiceProvider
}

// Option configures New.
type Option func(*options)

// WithEnvFiles loads configuration from the given .env files.
func WithEnvFiles(files ...string) Option {
	return func(o *options) { o.envFiles = files }
}

// WithConfig uses cfg instead of loading one from the environment.
func WithConfig(cfg *config.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLogger uses l instead of building one from the configuration.
func WithLogger(l *logrus.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithManifest adds the services of the manifest at path. It overrides
// MANIFEST_PATH.
func WithManifest(path string) Option {
	return func(o *options) { o.manifest = path }
}

// WithProviders adds user providers, merged after the framework ones in the
// order given.
func WithProviders(p ...container.ServiceProvider) Option {
	return func(o *options) { o.providers = append(o.providers, p...) }
}

// New builds the application container from the framework providers, the
// manifest (if any) and the user providers. Nothing is resolved yet.
func New(opts ...Option) (*Application, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cfg := o.config
	if cfg == nil {
		cfg = config.Load(o.envFiles...)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := o.logger
	if log == nil {
		log = logging.New(cfg.Log)
	}

	metrics, err := providers.NewMetricsServiceProvider()
	if err != nil {
		return nil, errors.Wrap(err, "metrics")
	}
	self := &providers.ContainerServiceProvider{}

	list := []container.ServiceProvider{
		&providers.ConfigServiceProvider{Config: cfg},
		&providers.LogServiceProvider{Logger: log},
		self,
		metrics,
		&providers.RoutingServiceProvider{},
	}
	if cfg.Inspector.Prefix != "" {
		list = append(list, &providers.InspectorServiceProvider{})
	}

	path := o.manifest
	if path == "" {
		path = cfg.Container.ManifestPath
	}
	if path != "" {
		m, err := manifest.Load(path)
		if err != nil {
			return nil, err
		}
		list = append(list, m.Provider())
		log.WithFields(logrus.Fields{"path": path, "keys": len(m.Keys())}).Info("manifest loaded")
	}
	list = append(list, o.providers...)

	copts := []container.Option{
		container.WithLogger(log),
		container.WithMetrics(metrics.Metrics),
	}
	if cfg.Container.VerifyDependencies {
		copts = append(copts, container.WithDependencyVerification())
	}

	c, err := container.Build(list, copts...)
	if err != nil {
		return nil, err
	}
	self.Set(c)

	return &Application{Container: c, config: cfg, log: log}, nil
}

// Boot resolves the keys listed in CONTAINER_WARM, or every key for "*".
// Only the first call does any work; later calls return its result.
func (a *Application) Boot(ctx context.Context) error {
	a.bootOnce.Do(func() {
		warm := a.config.Container.Warm
		switch {
		case a.config.Container.WarmAll():
			a.bootErr = a.Warm(ctx)
		case len(warm) > 0:
			a.bootErr = a.Warm(ctx, warm...)
		}
		if a.bootErr != nil {
			a.bootErr = errors.Wrap(a.bootErr, "boot")
			return
		}
		a.log.WithField("container", a.ID()).Info("application booted")
	})
	return a.bootErr
}

// Config returns the application configuration.
func (a *Application) Config() *config.Config { return a.config }

// Logger returns the application logger.
func (a *Application) Logger() *logrus.Logger { return a.log }

// Router resolves the router, with every extension applied.
func (a *Application) Router() (*routing.Router, error) {
	return container.ResolveAs[*routing.Router](a.Container, providers.KeyRouter)
}

// Run boots the application and serves HTTP on APP_PORT until ctx is done.
func (a *Application) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", ":"+a.config.App.Port)
	if err != nil {
		return errors.Wrap(err, "listen")
	}
	return a.Serve(ctx, ln)
}

// Serve is Run on an existing listener. It closes ln.
func (a *Application) Serve(ctx context.Context, ln net.Listener) error {
	if err := a.Boot(ctx); err != nil {
		ln.Close()
		return err
	}
	router, err := a.Router()
	if err != nil {
		ln.Close()
		return errors.Wrap(err, "router")
	}

	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
		close(errChan)
	}()

	a.log.WithFields(logrus.Fields{
		"app":  a.config.App.Name,
		"env":  a.config.App.Env,
		"addr": ln.Addr().String(),
	}).Info("listening")

	select {
	case err := <-errChan:
		return errors.Wrap(err, "http server")
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	a.log.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	return nil
}

// Environment returns APP_ENV value.
func (a *Application) Environment() string { return a.config.App.Env }
func (a *Application) IsLocal() bool       { return a.config.IsLocal() }
func (a *Application) IsProduction() bool  { return a.config.IsProduction() }
func (a *Application) IsTesting() bool     { return a.config.IsTesting() }
func (a *Application) IsDebug() bool       { return a.config.App.Debug }
