package likeship

import (
	"net/http"

	"github.com/rs/zerolog"

	notifylog "github.com/likelabs/likeship/internal/adapters/log"
	"github.com/likelabs/likeship/internal/ports"
	"github.com/likelabs/likeship/pkg/log"
)

// Option customizes how New wires a Shipper.
type Option func(*options)

type options struct {
	httpClient ports.HTTPClient
	logger     log.Logger
	notifier   ports.Notifier
	clock      ports.Clock
}

// WithHTTPClient replaces the HTTP client used for all remote calls. The
// configured HTTPTimeout does not apply to a caller-provided client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// WithLogger replaces the default zerolog-backed logger.
func WithLogger(l log.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithNotifier replaces the default log-backed user notifier.
func WithNotifier(n Notifier) Option {
	return func(o *options) { o.notifier = n }
}

// WithClock replaces the wall clock. Intended for tests.
func WithClock(c ports.Clock) Option {
	return func(o *options) { o.clock = c }
}

func resolveOptions(cfg Config, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger == nil {
		level, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			level = zerolog.InfoLevel
		}
		o.logger = log.NewZerologAdapter(level)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: cfg.HTTPTimeout}
	}
	if o.notifier == nil {
		o.notifier = notifylog.NewNotifier(o.logger)
	}
	if o.clock == nil {
		o.clock = ports.SystemClock{}
	}
	return o
}
