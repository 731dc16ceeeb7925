package valmap

import (
	"github.com/valmap/valmap/persist"
)

type options struct {
	keyMode     bool
	compression persist.Compression
	logger      *Logger
	metrics     MetricsCollector
}

func defaultOptions() options {
	return options{
		compression: persist.CompressionNone,
		logger:      NoopLogger(),
		metrics:     NoopMetricsCollector{},
	}
}

// Option configures Transformer construction and loading.
type Option func(*options)

// WithKeyMode enables key-type output: lookups yield dense 1-based
// ordinal codes over the distinct values instead of the values
// themselves, with 0 reserved for missing keys.
func WithKeyMode(enabled bool) Option {
	return func(o *options) {
		o.keyMode = enabled
	}
}

// WithCompression selects the payload compression used by Save.
func WithCompression(c persist.Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithLogger configures structured logging. If nil is passed, logging
// is disabled.
func WithLogger(l *Logger) Option {
	return func(o *options) {
		if l == nil {
			l = NoopLogger()
		}
		o.logger = l
	}
}

// WithMetrics configures a metrics collector. If nil is passed, metrics
// collection is disabled.
func WithMetrics(m MetricsCollector) Option {
	return func(o *options) {
		if m == nil {
			m = NoopMetricsCollector{}
		}
		o.metrics = m
	}
}
