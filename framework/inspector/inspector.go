// Package inspector exposes a container over HTTP: its entries, declared
// cycles, on-demand resolution and, optionally, Prometheus metrics.
//
//	GET  {prefix}/entries                 every entry (?resolved=true|false filters)
//	GET  {prefix}/entries/{key}           one entry
//	GET  {prefix}/entries/{key}/cycle     declared cycle through key, or null
//	POST {prefix}/entries/{key}/resolve   resolve key and dump the value
//	GET  {prefix}/metrics                 Prometheus exposition
//
// Keys containing '/' must be path-escaped (%2F).
package inspector

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/km-arc/go-interop/framework/container"
	gohttp "github.com/km-arc/go-interop/framework/http"
	"github.com/km-arc/go-interop/framework/http/validation"
	"github.com/km-arc/go-interop/framework/manifest"
	"github.com/km-arc/go-interop/framework/routing"
)

// dumper renders resolved values. Pointer addresses are left out so dumps of
// the same value compare equal.
var dumper = spew.ConfigState{
	Indent:                  "  ",
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Inspector serves read and resolve endpoints for one container.
type Inspector struct {
	c        *container.Container
	log      logrus.FieldLogger
	gatherer prometheus.Gatherer
}

// Option configures an Inspector.
type Option func(*Inspector)

// WithGatherer serves g at /metrics. Without it the route is not mounted.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(i *Inspector) { i.gatherer = g }
}

// New returns an Inspector for c.
func New(c *container.Container, log logrus.FieldLogger, opts ...Option) *Inspector {
	i := &Inspector{c: c, log: log}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Mount registers the inspector routes on r under prefix.
func (i *Inspector) Mount(r *routing.Router, prefix string) {
	r.Prefix(prefix, func(r *routing.Router) {
		r.Get("/entries", i.listEntries)
		r.Get("/entries/{key}", i.showEntry)
		r.Get("/entries/{key}/cycle", i.showCycle)
		r.Post("/entries/{key}/resolve", i.resolve)
		if i.gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(i.gatherer, promhttp.HandlerOpts{}))
		}
	})
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (i *Inspector) listEntries(w http.ResponseWriter, r *http.Request) {
	req, res := gohttp.NewRequest(r), gohttp.NewResponse(w)

	want, filter, err := req.OptionalBool("resolved")
	if err != nil {
		res.ValidationError(err.(*validation.Errors))
		return
	}

	entries := i.c.Entries()
	if filter {
		filtered := entries[:0]
		for _, e := range entries {
			if e.Resolved == want {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}
	res.Success(entries)
}

func (i *Inspector) showEntry(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	key, ok := keyParam(res, r)
	if !ok {
		return
	}

	entry, found := i.c.Entry(key)
	if !found {
		res.NotFound(fmt.Sprintf("No entry for %q.", key))
		return
	}
	res.Success(entry)
}

func (i *Inspector) showCycle(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	key, ok := keyParam(res, r)
	if !ok {
		return
	}
	if !i.c.Has(key) {
		res.NotFound(fmt.Sprintf("No entry for %q.", key))
		return
	}
	res.Success(i.c.DeclaredCycle(key))
}

// resolution is the body of a successful resolve.
type resolution struct {
	Key    string `json:"key"`
	Type   string `json:"type"`
	Absent bool   `json:"absent"`
	Dump   string `json:"dump"`
}

func (i *Inspector) resolve(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	key, ok := keyParam(res, r)
	if !ok {
		return
	}

	v, err := i.c.Get(key)

	var cyc *container.CyclicDependencyError
	switch {
	case err == nil:
		res.Success(resolution{
			Key:    key,
			Type:   fmt.Sprintf("%T", v),
			Absent: container.IsAbsent(v),
			Dump:   dumper.Sdump(v),
		})
	case errors.Is(err, container.ErrNotFound):
		res.NotFound(err.Error())
	case errors.As(err, &cyc):
		res.Conflict(err.Error(), cyc.Path)
	default:
		i.log.WithError(err).WithField("key", key).Error("inspector: resolution failed")
		res.ServerError(err.Error())
	}
}

// keyParam reads and validates the {key} route parameter, answering 422
// itself when it is malformed.
func keyParam(res *gohttp.Response, r *http.Request) (string, bool) {
	key := gohttp.NewRequest(r).RouteParam("key")
	v := validation.Make(map[string]string{"key": key}, validation.Rules{"key": manifest.KeyRule})
	if v.Fails() {
		res.ValidationError(v.Errors())
		return "", false
	}
	return key, true
}
