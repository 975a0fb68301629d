// Package container implements the resolution and extension engine behind
// service providers.
//
// # Overview
//
// A ServiceProvider contributes factories and extensions keyed by string.
// Providers are merged, in order, into a Registry; a Container then resolves
// keys lazily, building each one at most once and caching the result for the
// container's lifetime.
//
// A key resolves to its factory's output, folded through every extension
// registered for it in provider order. A key with extensions but no factory
// starts from Absent.
//
// # Container Lifecycle
//
//  1. Describe entries: implement ServiceProvider, or use NewProvider
//  2. Build: c, err := container.Build(providers), which fails on duplicate factories
//  3. Resolve: v, err := c.Get("key")
//  4. Drop the container to release every cached value
//
// # Providers
//
//	p := container.NewProvider().
//	    Factory("config", func(c container.Resolver) (any, error) {
//	        return config.Load(), nil
//	    }).
//	    Factory("db", func(c container.Resolver) (any, error) {
//	        cfg, err := container.ResolveAs[*config.Config](c, "config")
//	        if err != nil {
//	            return nil, err
//	        }
//	        return openDB(cfg)
//	    }, "config")
//
// # Extensions
//
//	// Wrap whatever "logger" resolved to, declaring a dependency on "clock".
//	p.Extend("logger", func(c container.Resolver, prev any) (any, error) {
//	    return &TimestampLogger{Inner: prev.(Logger)}, nil
//	}, "clock")
//
// # Dependencies and cycles
//
// Declared dependencies are advisory. They let the container report a cycle
// before any factory runs, and they show up in Entries, but nothing requires
// a factory to resolve exactly what it declares. Independently of them, the
// container tracks which keys are being built by the current resolution and
// fails with a *CyclicDependencyError rather than recursing or deadlocking.
//
// # Concurrency
//
// Concurrent first requests for the same key run its factory and extensions
// once; every caller receives the same value or the same error. Unrelated
// keys build in parallel. Errors are never cached, so a later call retries.
package container
