package ledgerstream

import (
	"context"
	stderrors "errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/c360/ledgerstream/bus"
	"github.com/c360/ledgerstream/config"
	"github.com/c360/ledgerstream/discovery"
	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/health"
	"github.com/c360/ledgerstream/lifecycle"
	"github.com/c360/ledgerstream/metric"
	"github.com/c360/ledgerstream/natsclient"
	"github.com/c360/ledgerstream/stream"
	"github.com/c360/ledgerstream/timer"
)

// Operator is the transport capability a session hands out through the
// publisher gate: page fetches, writes, and liveness checks. The NATS
// client implements it in production.
type Operator interface {
	stream.Fetcher
	Append(ctx context.Context, req stream.AppendRequest) (stream.AppendResult, error)
	Delete(ctx context.Context, req stream.DeleteRequest) error
	Ping(ctx context.Context) (time.Duration, error)
}

// Client is one LedgerStream session.
type Client struct {
	sessionID string
	settings  *config.SafeSettings
	logger    *slog.Logger
	metrics   *metric.MetricsRegistry

	bus          *bus.Bus
	orchestrator *lifecycle.Orchestrator[Operator]
	services     []lifecycle.Service
	monitor      *health.Monitor

	closeOnce sync.Once
	closeErr  error
}

// Connect builds a session from settings and kicks off initialization.
// The call returns as soon as the control plane is running; operations
// then suspend on the publisher gate until every subsidiary service
// has reported in. Use Ready to block until the session is available.
func Connect(ctx context.Context, settings *config.Settings, opts ...ClientOption) (*Client, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, errors.WrapInvalid(err, "Client", "Connect", "validate settings")
	}
	settings.NormalizeCandidates()

	options := clientOptions{}
	for _, opt := range opts {
		opt(&options)
	}

	sessionID := uuid.NewString()
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("session", sessionID[:8])

	deps := lifecycle.Dependencies{Logger: logger, Metrics: options.metrics}

	busOpts := []bus.Option{bus.WithLogger(deps.GetLoggerWith("bus"))}
	if options.metrics != nil {
		busOpts = append(busOpts, bus.WithMetrics(options.metrics))
	}
	controlBus := bus.New(busOpts...)

	disc := discovery.New(controlBus, settings, deps)
	manager, err := natsclient.NewManager(controlBus, settings, disc, deps, options.clientOpts...)
	if err != nil {
		controlBus.Close()
		return nil, err
	}
	ticker := timer.New(controlBus, settings.Keepalive.Interval, deps)

	c := &Client{
		sessionID: sessionID,
		settings:  config.NewSafeSettings(settings),
		logger:    logger,
		metrics:   options.metrics,
		bus:       controlBus,
		services:  []lifecycle.Service{manager, disc, ticker},
		monitor:   health.NewMonitor(),
	}
	c.orchestrator = lifecycle.New[Operator](controlBus, manager.Client(), lifecycle.AllServices(), deps)

	for _, svc := range c.services {
		if err := svc.Start(ctx); err != nil {
			controlBus.Close()
			return nil, errors.WrapFatal(err, "Client", "Connect", "start "+svc.ID().String())
		}
	}
	if err := c.orchestrator.Start(); err != nil {
		controlBus.Close()
		return nil, err
	}

	return c, nil
}

// SessionID returns the unique identifier of this session, used to
// correlate its log lines.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Ready blocks until the session is available, the session dies, or
// ctx expires.
func (c *Client) Ready(ctx context.Context) error {
	_, err := c.orchestrator.AcquirePublisher(ctx)
	return err
}

// Stage returns a snapshot of the session stage.
func (c *Client) Stage() lifecycle.Stage {
	return c.orchestrator.Stage()
}

// Ping acquires the transport and checks server liveness.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	operator, err := c.orchestrator.AcquirePublisher(ctx)
	if err != nil {
		return 0, err
	}
	return operator.Ping(ctx)
}

// Health aggregates the session's service healths into one report.
func (c *Client) Health() health.Status {
	stage := c.orchestrator.Stage()
	switch stage.Kind {
	case lifecycle.StageAvailable:
		c.monitor.Update("session", health.NewHealthy("session", "available"))
	case lifecycle.StageInit:
		c.monitor.Update("session", health.NewDegraded("session", "initializing"))
	case lifecycle.StageErrored:
		c.monitor.Update("session", health.NewUnhealthy("session", stage.Reason))
	}

	for _, svc := range c.services {
		c.monitor.Update(svc.ID().String(), svc.Health())
	}

	status := c.monitor.AggregateHealth("ledgerstream")
	if c.metrics != nil {
		c.metrics.CoreMetrics().RecordHealthStatus("ledgerstream", status.IsHealthy())
	}
	return status
}

// Close shuts the session down: it requests termination of every
// service, waits for the shutdown handshake to complete or ctx to
// expire, then stops the services and the bus. Safe to call more than
// once.
func (c *Client) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		c.logger.Info("closing session")
		c.orchestrator.RequestShutdown()

		select {
		case <-c.orchestrator.Done():
		case <-ctx.Done():
			c.logger.Warn("shutdown handshake cut short", "error", ctx.Err())
			c.closeErr = ctx.Err()
		}

		// Services stop in parallel; each owns its own drain timeout.
		var g errgroup.Group
		for _, svc := range c.services {
			g.Go(func() error {
				if err := svc.Stop(10 * time.Second); err != nil &&
					!stderrors.Is(err, errors.ErrNotStarted) {
					return errors.Wrap(err, "Client", "Close", "stop "+svc.ID().String())
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil && c.closeErr == nil {
			c.closeErr = err
		}

		c.orchestrator.Stop()

		flushCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.bus.Flush(flushCtx)
		c.bus.Close()

		c.logger.Info("session closed")
	})
	return c.closeErr
}
