package container

import (
	"io"

	"github.com/sirupsen/logrus"
)

type options struct {
	logger  logrus.FieldLogger
	metrics *Metrics
	verify  bool
}

// Option configures a Container at build time.
type Option func(*options)

// WithLogger sets the logger the container reports resolutions and cycles to.
// The default discards everything.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records resolution outcomes and build durations in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithDependencyVerification compares the keys each factory and extension
// actually resolves with the dependencies declared for its key, and logs a
// warning for every key that was resolved without being declared. Mismatches
// never fail a resolution.
func WithDependencyVerification() Option {
	return func(o *options) {
		o.verify = true
	}
}

func defaultOptions() *options {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &options{logger: l}
}
