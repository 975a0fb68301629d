package container

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Resolution outcomes, used as the "outcome" label.
const (
	OutcomeHit      = "hit"
	OutcomeBuilt    = "built"
	OutcomeWaited   = "waited"
	OutcomeFailed   = "failed"
	OutcomeCycle    = "cycle"
	OutcomeNotFound = "not_found"
)

// Metrics holds the Prometheus collectors a Container reports to. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	resolutions   *prometheus.CounterVec
	buildDuration *prometheus.HistogramVec
	inFlight      prometheus.Gauge
}

// NewMetrics creates the container collectors and registers them with reg.
// A nil reg leaves them unregistered, which is convenient in tests.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "container",
			Name:      "resolutions_total",
			Help:      "Resolution requests by outcome.",
		}, []string{"outcome"}),
		buildDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "container",
			Name:      "build_duration_seconds",
			Help:      "Time spent running a key's factory and extensions.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, []string{"key"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "container",
			Name:      "builds_in_flight",
			Help:      "Keys currently being built.",
		}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.resolutions, m.buildDuration, m.inFlight} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Resolutions returns the outcome counter, mainly for tests.
func (m *Metrics) Resolutions() *prometheus.CounterVec { return m.resolutions }

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) startBuild() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

func (m *Metrics) endBuild(key string, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.buildDuration.WithLabelValues(key).Observe(d.Seconds())
}
