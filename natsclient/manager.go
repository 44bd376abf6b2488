package natsclient

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/c360/ledgerstream/bus"
	"github.com/c360/ledgerstream/config"
	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/health"
	"github.com/c360/ledgerstream/lifecycle"
	"github.com/c360/ledgerstream/timer"
)

// Resolver supplies endpoints to dial. The discovery service
// implements it; tests substitute a fixed-endpoint stub.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
	Report(err error)
}

// Manager is the connection-manager lifecycle service. It owns the
// Client, dials on SystemInit with endpoint rotation and backoff, and
// translates transport callbacks into control-bus messages.
type Manager struct {
	bus      *bus.Bus
	client   *Client
	resolver Resolver
	logger   *slog.Logger

	dialAttempts uint64
	dialTimeout  time.Duration

	started   atomic.Bool
	closing   atomic.Bool
	terminate sync.Once
	startedAt time.Time
	lastProbe atomic.Value // stores time.Duration

	unsubscribes []func()
}

// NewManager builds the connection manager and its Client from
// settings. Transport callbacks are wired here so every lifecycle
// signal reaches the bus.
func NewManager(
	b *bus.Bus,
	settings *config.Settings,
	resolver Resolver,
	deps lifecycle.Dependencies,
	clientOpts ...ClientOption,
) (*Manager, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}

	m := &Manager{
		bus:          b,
		resolver:     resolver,
		logger:       deps.GetLoggerWith("connection-manager"),
		dialAttempts: uint64(settings.Discovery.MaxAttempts),
		dialTimeout:  settings.Connection.RequestTimeout,
	}
	if m.dialAttempts == 0 {
		m.dialAttempts = 10
	}
	if m.dialTimeout <= 0 {
		m.dialTimeout = 5 * time.Second
	}
	m.lastProbe.Store(time.Duration(0))

	opts := append([]ClientOption{
		WithLogger(m.logger),
		WithConnectionLostCallback(m.onConnectionLost),
	}, clientOpts...)

	client, err := NewClient(settings, opts...)
	if err != nil {
		return nil, err
	}
	m.client = client

	return m, nil
}

// Client returns the managed connection client. Callers route
// operations through the session's publisher gate rather than holding
// on to this.
func (m *Manager) Client() *Client {
	return m.client
}

// ID identifies the service to the orchestrator.
func (m *Manager) ID() lifecycle.ServiceID {
	return lifecycle.ServiceConnectionManager
}

// Start registers the manager's bus subscriptions. Dialing begins when
// SystemInit arrives.
func (m *Manager) Start(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}
	m.startedAt = time.Now()

	m.unsubscribes = []func(){
		bus.Subscribe(m.bus, func(lifecycle.SystemInit) { go m.initialize(ctx) }),
		bus.Subscribe(m.bus, func(lifecycle.SystemShutdown) { go m.shutdown() }),
		bus.Subscribe(m.bus, m.onTick),
	}
	return nil
}

// initialize dials the server, rotating endpoints through the resolver
// and backing off between attempts. Exhaustion is fatal for the
// session.
func (m *Manager) initialize(ctx context.Context) {
	dial := func() error {
		if m.closing.Load() {
			return backoff.Permanent(errors.ErrShuttingDown)
		}

		endpoint, err := m.resolver.Resolve(ctx)
		if err != nil {
			if !errors.IsTransient(err) {
				return backoff.Permanent(err)
			}
			return err
		}

		dialCtx, cancel := context.WithTimeout(ctx, m.dialTimeout)
		defer cancel()
		if err := m.client.Dial(dialCtx, endpoint); err != nil {
			m.resolver.Report(err)
			return err
		}
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), m.dialAttempts), ctx)

	if err := backoff.Retry(dial, policy); err != nil {
		m.logger.Error("could not reach any endpoint", "error", err)
		bus.Publish(m.bus, lifecycle.ServiceInitFailed{ID: m.ID(), Err: err})
		return
	}

	bus.Publish(m.bus, lifecycle.ServiceInitialized{ID: m.ID()})
}

// onConnectionLost fires when the transport is gone for good. The
// shutdown signal seals the publisher gate; termination is reported so
// a session dying mid-flight still completes its shutdown handshake.
func (m *Manager) onConnectionLost(err error) {
	if err != nil {
		m.logger.Error("connection lost permanently", "error", err)
	}
	bus.Publish(m.bus, lifecycle.ShutdownSignal{})
	m.reportTerminated()
}

// shutdown reacts to SystemShutdown by draining and closing the
// transport. The close handler then emits the ShutdownSignal.
func (m *Manager) shutdown() {
	if !m.closing.CompareAndSwap(false, true) {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := m.client.Close(ctx); err != nil {
		m.logger.Warn("transport close reported errors", "error", err)
	}

	// A connection that never came up has no close handler to fire.
	bus.Publish(m.bus, lifecycle.ShutdownSignal{})
	m.reportTerminated()
}

func (m *Manager) reportTerminated() {
	m.terminate.Do(func() {
		bus.Publish(m.bus, lifecycle.ServiceTerminated{ID: m.ID()})
	})
}

// onTick runs the keepalive probe. RTT lands in the metric set and in
// health reports.
func (m *Manager) onTick(timer.Tick) {
	if m.client.Status() != StatusConnected {
		return
	}
	rtt, err := m.client.RTT()
	if err != nil {
		m.logger.Debug("keepalive probe failed", "error", err)
		return
	}
	m.lastProbe.Store(rtt)
}

// Stop closes the transport without waiting for a bus round trip.
func (m *Manager) Stop(timeout time.Duration) error {
	if !m.started.Load() {
		return errors.ErrNotStarted
	}
	m.closing.Store(true)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	err := m.client.Close(ctx)

	m.reportTerminated()
	for _, unsubscribe := range m.unsubscribes {
		unsubscribe()
	}
	m.unsubscribes = nil
	return err
}

// Health reports the connection state.
func (m *Manager) Health() health.Status {
	if !m.started.Load() {
		return health.NewUnhealthy("connection-manager", "not started")
	}

	clientStatus := m.client.GetStatus()
	metrics := &health.Metrics{
		Uptime:     time.Since(m.startedAt),
		ErrorCount: int(clientStatus.FailureCount),
		Reconnects: int(clientStatus.Reconnects),
	}

	switch clientStatus.Status {
	case StatusConnected:
		message := "connected"
		if rtt := m.lastProbe.Load().(time.Duration); rtt > 0 {
			message = "connected, rtt " + rtt.String()
		}
		return health.NewHealthy("connection-manager", message).WithMetrics(metrics)
	case StatusConnecting, StatusReconnecting:
		return health.NewDegraded("connection-manager", clientStatus.Status.String()).WithMetrics(metrics)
	case StatusCircuitOpen:
		return health.NewDegraded("connection-manager", "circuit breaker open").WithMetrics(metrics)
	default:
		return health.NewUnhealthy("connection-manager", clientStatus.Status.String()).WithMetrics(metrics)
	}
}
