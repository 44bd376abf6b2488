package ledgerstream

import (
	"log/slog"

	"github.com/c360/ledgerstream/metric"
	"github.com/c360/ledgerstream/natsclient"
	"github.com/c360/ledgerstream/stream"
)

type clientOptions struct {
	logger     *slog.Logger
	metrics    *metric.MetricsRegistry
	clientOpts []natsclient.ClientOption
}

// ClientOption configures a session at Connect time.
type ClientOption func(*clientOptions)

// WithLogger sets the structured logger the session and its services
// log through. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithMetrics wires the session into a metrics registry. Without it
// the session records no metrics.
func WithMetrics(registry *metric.MetricsRegistry) ClientOption {
	return func(o *clientOptions) {
		o.metrics = registry
		if registry != nil {
			o.clientOpts = append(o.clientOpts, natsclient.WithMetrics(registry))
		}
	}
}

// WithTransportOptions passes options through to the underlying NATS
// client, for tuning the circuit breaker or drain behavior.
func WithTransportOptions(opts ...natsclient.ClientOption) ClientOption {
	return func(o *clientOptions) {
		o.clientOpts = append(o.clientOpts, opts...)
	}
}

type readOptions struct {
	pageSize     int
	resolveLinks bool
	credentials  *stream.Credentials
}

// ReadOption configures one read or write call.
type ReadOption func(*readOptions)

// WithPageSize sets how many events each server round trip requests.
// Page size affects network granularity only, never which events the
// traversal yields. Defaults to the settings' page size, or
// stream.DefaultPageSize when unset.
func WithPageSize(n int) ReadOption {
	return func(o *readOptions) {
		if n > 0 {
			o.pageSize = n
		}
	}
}

// WithResolvedLinks makes the server follow link events and deliver
// the events they point at.
func WithResolvedLinks() ReadOption {
	return func(o *readOptions) {
		o.resolveLinks = true
	}
}

// WithCredentials overrides the connection-level credentials for one
// call.
func WithCredentials(username, password string) ReadOption {
	return func(o *readOptions) {
		o.credentials = &stream.Credentials{Username: username, Password: password}
	}
}

// readOptionsFrom applies defaults from settings, then the per-call
// options.
func (c *Client) readOptionsFrom(opts []ReadOption) readOptions {
	settings := c.settings.Get()
	options := readOptions{
		pageSize:     settings.Read.PageSize,
		resolveLinks: settings.Read.ResolveLinks,
	}
	if options.pageSize <= 0 {
		options.pageSize = stream.DefaultPageSize
	}
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
