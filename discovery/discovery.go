// Package discovery selects the server endpoint a session dials. The
// candidate list comes from settings; the service validates it at
// init, hands out the current candidate on Resolve, and rotates to the
// next one when the connection manager reports a failed dial.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/c360/ledgerstream/bus"
	"github.com/c360/ledgerstream/config"
	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/health"
	"github.com/c360/ledgerstream/lifecycle"
)

// Service is the endpoint-discovery lifecycle service.
type Service struct {
	bus    *bus.Bus
	logger *slog.Logger

	candidates []string

	mu      sync.Mutex
	index   int
	rotated int
	lastErr error

	started   atomic.Bool
	ready     atomic.Bool
	terminate sync.Once
	startedAt time.Time

	unsubscribes []func()
}

// New creates a discovery service over the configured candidates.
func New(b *bus.Bus, settings *config.Settings, deps lifecycle.Dependencies) *Service {
	if settings == nil {
		settings = config.DefaultSettings()
	}
	candidates := make([]string, len(settings.Endpoints.Candidates))
	copy(candidates, settings.Endpoints.Candidates)

	return &Service{
		bus:        b,
		logger:     deps.GetLoggerWith("discovery"),
		candidates: candidates,
	}
}

// ID identifies the service to the orchestrator.
func (s *Service) ID() lifecycle.ServiceID {
	return lifecycle.ServiceDiscovery
}

// Start registers the service's bus subscriptions. Candidate
// validation runs when SystemInit arrives.
func (s *Service) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}
	s.startedAt = time.Now()

	s.unsubscribes = []func(){
		bus.Subscribe(s.bus, func(lifecycle.SystemInit) { s.initialize(ctx) }),
		bus.Subscribe(s.bus, func(lifecycle.SystemShutdown) { s.end() }),
	}
	return nil
}

// initialize validates the candidate list and reports readiness. A
// list with no parseable candidate is fatal for the session.
func (s *Service) initialize(ctx context.Context) {
	valid := s.validCandidates()
	if len(valid) == 0 {
		err := errors.WrapInvalid(
			fmt.Errorf("no usable endpoint among %d candidates", len(s.candidates)),
			"Discovery", "initialize", "validate candidates")
		s.logger.Error("no usable endpoints", "error", err)
		bus.Publish(s.bus, lifecycle.ServiceInitFailed{ID: s.ID(), Err: err})
		return
	}

	s.mu.Lock()
	s.candidates = valid
	s.mu.Unlock()

	// Warm the DNS cache for the first candidate; failure here is not
	// fatal, the dial path retries with rotation.
	if err := s.verify(ctx, valid[0]); err != nil {
		s.logger.Warn("first candidate not resolvable yet", "endpoint", valid[0], "error", err)
	}

	s.ready.Store(true)
	s.logger.Info("discovery ready", "candidates", len(valid))
	bus.Publish(s.bus, lifecycle.ServiceInitialized{ID: s.ID()})
}

func (s *Service) validCandidates() []string {
	var valid []string
	for _, candidate := range s.candidates {
		u, err := url.Parse(candidate)
		if err != nil || u.Host == "" {
			s.logger.Warn("dropping unparseable candidate", "candidate", candidate)
			continue
		}
		valid = append(valid, candidate)
	}
	return valid
}

// verify checks that the candidate's host resolves, retrying briefly
// so a slow resolver does not fail the candidate outright.
func (s *Service) verify(ctx context.Context, candidate string) error {
	u, err := url.Parse(candidate)
	if err != nil {
		return err
	}
	host := u.Hostname()
	if net.ParseIP(host) != nil {
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	err = backoff.Retry(func() error {
		_, lookupErr := net.DefaultResolver.LookupHost(ctx, host)
		return lookupErr
	}, policy)
	if err != nil {
		return errors.WrapTransient(err, "Discovery", "verify", "resolve host")
	}
	return nil
}

// Resolve returns the endpoint the session should dial next.
func (s *Service) Resolve(_ context.Context) (string, error) {
	if !s.ready.Load() {
		return "", errors.ErrNotStarted
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.candidates) == 0 {
		return "", errors.WrapInvalid(
			fmt.Errorf("candidate list is empty"),
			"Discovery", "Resolve", "select endpoint")
	}
	return s.candidates[s.index], nil
}

// Report records a failed dial against the current candidate and
// rotates to the next one.
func (s *Service) Report(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.candidates) == 0 {
		return
	}

	s.lastErr = err
	previous := s.candidates[s.index]
	s.index = (s.index + 1) % len(s.candidates)
	s.rotated++

	s.logger.Warn("rotating endpoint after dial failure",
		"failed", previous, "next", s.candidates[s.index], "error", err)
}

func (s *Service) end() {
	s.terminate.Do(func() {
		s.ready.Store(false)
		s.logger.Info("discovery stopped")
		bus.Publish(s.bus, lifecycle.ServiceTerminated{ID: s.ID()})
	})
}

// Stop halts the service without waiting for a bus round trip.
func (s *Service) Stop(_ time.Duration) error {
	if !s.started.Load() {
		return errors.ErrNotStarted
	}
	s.end()
	for _, unsubscribe := range s.unsubscribes {
		unsubscribe()
	}
	s.unsubscribes = nil
	return nil
}

// Health reports readiness and rotation counts.
func (s *Service) Health() health.Status {
	if !s.started.Load() {
		return health.NewUnhealthy("discovery", "not started")
	}
	if !s.ready.Load() {
		return health.NewDegraded("discovery", "waiting for session init")
	}

	s.mu.Lock()
	rotated := s.rotated
	lastErr := s.lastErr
	s.mu.Unlock()

	status := health.NewHealthy("discovery", "serving endpoints")
	if lastErr != nil {
		status = health.NewDegraded("discovery",
			fmt.Sprintf("rotated %d times, last failure: %s", rotated, health.Sanitize(lastErr.Error())))
	}
	return status.WithMetrics(&health.Metrics{
		Uptime:     time.Since(s.startedAt),
		ErrorCount: rotated,
	})
}
