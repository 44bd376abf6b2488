package natsclient

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/c360/ledgerstream/config"
	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/metric"
)

// ConnectionStatus represents the state of the NATS connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusReconnecting
	StatusCircuitOpen
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusReconnecting:
		return "reconnecting"
	case StatusCircuitOpen:
		return "circuit_open"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Sentinel errors for connection state checks
var (
	ErrNotConnected = stderrors.New("not connected to server")
	ErrCircuitOpen  = errors.ErrCircuitOpen
)

// Status holds runtime status information for the connection
type Status struct {
	Status          ConnectionStatus
	FailureCount    int32
	LastFailureTime time.Time
	Reconnects      int32
	RTT             time.Duration
}

// Client manages the NATS connection with a circuit breaker. A Client
// dials one endpoint at a time; the connection-manager service feeds it
// endpoints from discovery and re-dials through the breaker.
type Client struct {
	url      atomic.Value // stores string, the endpoint last dialed
	status   atomic.Value // stores ConnectionStatus
	failures atomic.Int32
	logger   *slog.Logger

	conn *nats.Conn

	// Circuit breaker
	lastFailure      atomic.Value // stores time.Time
	backoff          atomic.Value // stores time.Duration
	circuitFailures  atomic.Int32
	circuitThreshold int32
	maxBackoff       time.Duration

	// Connection options, from settings
	clientName    string
	maxReconnects int
	reconnectWait time.Duration
	timeout       time.Duration
	drainTimeout  time.Duration
	username      string
	password      string // cleared on close
	token         string // cleared on close
	tlsEnabled    bool
	tlsCertFile   string
	tlsKeyFile    string
	tlsCAFile     string

	metrics *metric.Metrics

	// Callbacks
	onDisconnect     func(error)
	onReconnect      func()
	onHealthChange   func(bool)
	onConnectionLost func(error)

	reconnects atomic.Int32

	mu      sync.RWMutex
	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a client from connection settings. The client does
// not dial until Dial is called with a discovered endpoint.
func NewClient(settings *config.Settings, opts ...ClientOption) (*Client, error) {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	conn := settings.Connection

	c := &Client{
		logger:           slog.Default().With("service", "connection-manager"),
		clientName:       conn.Name,
		maxReconnects:    conn.MaxReconnects,
		reconnectWait:    conn.ReconnectWait,
		timeout:          conn.RequestTimeout,
		drainTimeout:     30 * time.Second,
		username:         conn.Username,
		password:         conn.Password,
		token:            conn.Token,
		tlsEnabled:       settings.Endpoints.TLS.Enabled,
		tlsCertFile:      settings.Endpoints.TLS.CertFile,
		tlsKeyFile:       settings.Endpoints.TLS.KeyFile,
		tlsCAFile:        settings.Endpoints.TLS.CAFile,
		circuitThreshold: 5,
		maxBackoff:       time.Minute,
	}
	if c.timeout <= 0 {
		c.timeout = 5 * time.Second
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}

	c.url.Store("")
	c.status.Store(StatusDisconnected)
	c.backoff.Store(time.Second)
	c.lastFailure.Store(time.Time{})

	return c, nil
}

// URL returns the endpoint last dialed.
func (c *Client) URL() string {
	return c.url.Load().(string)
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	val := c.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(ConnectionStatus)
}

func (c *Client) setStatus(status ConnectionStatus) {
	c.status.Store(status)
	if c.metrics != nil {
		c.metrics.RecordNATSStatus(status == StatusConnected)
	}
}

// IsHealthy returns true if the connection is healthy
func (c *Client) IsHealthy() bool {
	return c.Status() == StatusConnected
}

// Failures returns the current failure count
func (c *Client) Failures() int32 {
	return c.failures.Load()
}

// Backoff returns the current circuit backoff duration
func (c *Client) Backoff() time.Duration {
	return c.backoff.Load().(time.Duration)
}

// recordFailure records a connection failure and manages the circuit
// breaker. After circuitThreshold failures in one round the circuit
// opens, the backoff doubles up to maxBackoff, and a re-test is
// scheduled after the current backoff.
func (c *Client) recordFailure() {
	totalFailures := c.failures.Add(1)
	c.lastFailure.Store(time.Now())
	circuitFailures := c.circuitFailures.Add(1)

	c.logger.Debug("recorded connection failure",
		"total", totalFailures, "circuit_failures", circuitFailures)

	if circuitFailures < c.circuitThreshold {
		return
	}

	currentStatus := c.Status()
	if currentStatus != StatusCircuitOpen {
		// Only one goroutine wins the transition to open
		if c.status.CompareAndSwap(currentStatus, StatusCircuitOpen) {
			currentBackoff := c.backoff.Load().(time.Duration)
			newBackoff := currentBackoff * 2
			if newBackoff > c.maxBackoff {
				newBackoff = c.maxBackoff
			}
			c.backoff.Store(newBackoff)
			c.circuitFailures.Store(0)

			c.logger.Warn("circuit breaker opened",
				"failures", circuitFailures, "backoff", currentBackoff)
			if c.metrics != nil {
				c.metrics.RecordCircuitBreakerState(1)
			}

			time.AfterFunc(currentBackoff, c.testCircuit)
		}
	} else {
		// Failures while already open keep pushing the backoff out
		currentBackoff := c.backoff.Load().(time.Duration)
		newBackoff := currentBackoff * 2
		if newBackoff > c.maxBackoff {
			newBackoff = c.maxBackoff
		}
		c.backoff.Store(newBackoff)
		c.circuitFailures.Store(0)

		c.logger.Warn("circuit breaker still open", "backoff", newBackoff)
	}
}

// resetCircuit resets the circuit breaker state after a success
func (c *Client) resetCircuit() {
	c.failures.Store(0)
	c.circuitFailures.Store(0)
	c.backoff.Store(time.Second)
	c.lastFailure.Store(time.Time{})

	if c.Status() == StatusCircuitOpen {
		c.setStatus(StatusDisconnected)
	}
	if c.metrics != nil {
		c.metrics.RecordCircuitBreakerState(0)
	}
}

// testCircuit half-opens the circuit so the next dial attempt may pass
func (c *Client) testCircuit() {
	if c.Status() == StatusCircuitOpen {
		c.logger.Debug("circuit breaker half-open, allowing next dial")
		c.setStatus(StatusDisconnected)
		if c.metrics != nil {
			c.metrics.RecordCircuitBreakerState(2)
		}
	}
}

// buildConnectionOptions builds NATS options from client configuration
func (c *Client) buildConnectionOptions() []nats.Option {
	opts := []nats.Option{
		nats.MaxReconnects(c.maxReconnects),
		nats.ReconnectWait(c.reconnectWait),
		nats.Timeout(c.timeout),
		nats.DrainTimeout(c.drainTimeout),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}

	if c.username != "" && c.password != "" {
		opts = append(opts, nats.UserInfo(c.username, c.password))
	}
	if c.token != "" {
		opts = append(opts, nats.Token(c.token))
	}

	if c.tlsEnabled {
		if c.tlsCertFile != "" && c.tlsKeyFile != "" {
			opts = append(opts, nats.ClientCert(c.tlsCertFile, c.tlsKeyFile))
		}
		if c.tlsCAFile != "" {
			opts = append(opts, nats.RootCAs(c.tlsCAFile))
		}
	}

	if c.clientName != "" {
		opts = append(opts, nats.Name(c.clientName))
	}

	return opts
}

// GetStatus returns current status information
func (c *Client) GetStatus() *Status {
	lastFailure := c.lastFailure.Load().(time.Time)

	status := &Status{
		Status:          c.Status(),
		FailureCount:    c.failures.Load(),
		LastFailureTime: lastFailure,
		Reconnects:      c.reconnects.Load(),
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn != nil && conn.IsConnected() {
		if rtt, err := conn.RTT(); err == nil {
			status.RTT = rtt
		}
	}

	return status
}

// Dial establishes a connection to the given endpoint. A dial attempt
// while the circuit is open fails immediately with ErrCircuitOpen.
func (c *Client) Dial(ctx context.Context, url string) error {
	if c.closed.Load() {
		return errors.ErrShuttingDown
	}
	if c.Status() == StatusCircuitOpen {
		c.logger.Debug("circuit breaker open, skipping dial")
		return ErrCircuitOpen
	}

	c.url.Store(url)
	c.setStatus(StatusConnecting)
	c.logger.Info("dialing server", "url", url)

	opts := c.buildConnectionOptions()

	dialDone := make(chan error, 1)
	go func() {
		conn, err := nats.Connect(url, opts...)
		if err != nil {
			dialDone <- err
			return
		}
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		dialDone <- nil
	}()

	select {
	case err := <-dialDone:
		if err != nil {
			c.recordFailure()
			if c.Status() != StatusCircuitOpen {
				c.setStatus(StatusDisconnected)
			}
			if c.Status() == StatusCircuitOpen {
				return ErrCircuitOpen
			}
			return errors.WrapTransient(err, "Client", "Dial", "establish connection")
		}
	case <-ctx.Done():
		c.recordFailure()
		if c.Status() != StatusCircuitOpen {
			c.setStatus(StatusDisconnected)
		}
		return errors.WrapTransient(ctx.Err(), "Client", "Dial", "dial cancelled")
	}

	c.setStatus(StatusConnected)
	c.resetCircuit()
	c.logger.Info("connected", "url", url)

	if c.onHealthChange != nil {
		c.onHealthChange(true)
	}
	return nil
}

// handleDisconnect reacts to a dropped connection that NATS will try
// to re-establish on its own.
func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	if c.closed.Load() {
		return
	}
	c.setStatus(StatusReconnecting)
	c.logger.Warn("connection lost, reconnecting", "error", err)

	if c.onHealthChange != nil {
		c.onHealthChange(false)
	}
	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.setStatus(StatusConnected)
	c.reconnects.Add(1)
	c.logger.Info("reconnected", "url", conn.ConnectedUrl())
	if c.metrics != nil {
		c.metrics.RecordNATSReconnect()
	}

	if c.onHealthChange != nil {
		c.onHealthChange(true)
	}
	if c.onReconnect != nil {
		c.onReconnect()
	}
}

// handleClosed fires when NATS has given up for good: reconnection
// attempts are exhausted or the connection was closed deliberately.
func (c *Client) handleClosed(conn *nats.Conn) {
	c.setStatus(StatusClosed)

	err := conn.LastError()
	if err != nil {
		c.logger.Error("connection closed", "error", err)
	} else {
		c.logger.Info("connection closed")
	}

	if c.onConnectionLost != nil {
		c.onConnectionLost(err)
	}
}

// RTT returns the round-trip time to the server
func (c *Client) RTT() (time.Duration, error) {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil || !conn.IsConnected() {
		return 0, ErrNotConnected
	}

	rtt, err := conn.RTT()
	if err == nil && c.metrics != nil {
		c.metrics.RecordNATSRTT(rtt)
	}
	return rtt, err
}

// Close drains and closes the connection. Safe to call more than once.
func (c *Client) Close(ctx context.Context) error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Load() {
		return nil
	}
	c.closed.Store(true)

	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	var drainErr error
	if conn != nil && !conn.IsClosed() {
		drainTimeout := c.drainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			if remaining := time.Until(deadline); remaining > 0 && remaining < drainTimeout {
				drainTimeout = remaining
			}
		}

		drainDone := make(chan error, 1)
		go func() {
			drainDone <- conn.Drain()
		}()

		select {
		case err := <-drainDone:
			if err != nil {
				drainErr = errors.Wrap(err, "Client", "Close", "drain connection")
			}
		case <-time.After(drainTimeout):
			drainErr = errors.WrapTransient(
				fmt.Errorf("drain timeout after %v", drainTimeout),
				"Client", "Close", "drain connection")
		case <-ctx.Done():
			drainErr = errors.Wrap(ctx.Err(), "Client", "Close", "drain cancelled")
		}

		conn.Close()
	}

	// Clear credentials from memory
	c.username = ""
	c.password = ""
	c.token = ""

	c.setStatus(StatusClosed)
	return drainErr
}
