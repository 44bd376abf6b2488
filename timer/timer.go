// Package timer drives the session's periodic work: it publishes a
// Tick on the control bus at a fixed interval from SystemInit until
// SystemShutdown. The connection manager uses ticks for keepalive
// probes and metrics flushes.
package timer

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/ledgerstream/bus"
	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/health"
	"github.com/c360/ledgerstream/lifecycle"
)

// DefaultInterval is used when settings leave the tick interval unset.
const DefaultInterval = 5 * time.Second

// Tick is published on the bus once per interval.
type Tick struct {
	At  time.Time
	Seq uint64
}

// Service is the timer lifecycle service.
type Service struct {
	bus      *bus.Bus
	interval time.Duration
	logger   *slog.Logger

	started   atomic.Bool
	ticking   atomic.Bool
	stop      chan struct{}
	loopDone  chan struct{}
	terminate sync.Once

	startedAt    time.Time
	unsubscribes []func()
}

// New creates a timer service publishing on b every interval.
func New(b *bus.Bus, interval time.Duration, deps lifecycle.Dependencies) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Service{
		bus:      b,
		interval: interval,
		logger:   deps.GetLoggerWith("timer"),
		stop:     make(chan struct{}),
		loopDone: make(chan struct{}),
	}
}

// ID identifies the service to the orchestrator.
func (s *Service) ID() lifecycle.ServiceID {
	return lifecycle.ServiceTimer
}

// Start registers the service's bus subscriptions. Ticking begins when
// SystemInit arrives.
func (s *Service) Start(_ context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}
	s.startedAt = time.Now()

	s.unsubscribes = []func(){
		bus.Subscribe(s.bus, func(lifecycle.SystemInit) { s.begin() }),
		bus.Subscribe(s.bus, func(lifecycle.SystemShutdown) { s.end() }),
	}
	return nil
}

func (s *Service) begin() {
	if !s.ticking.CompareAndSwap(false, true) {
		return
	}
	go s.loop()
	s.logger.Info("timer started", "interval", s.interval)
	bus.Publish(s.bus, lifecycle.ServiceInitialized{ID: s.ID()})
}

func (s *Service) loop() {
	defer close(s.loopDone)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	var seq uint64
	for {
		select {
		case at := <-ticker.C:
			seq++
			bus.Publish(s.bus, Tick{At: at, Seq: seq})
		case <-s.stop:
			return
		}
	}
}

func (s *Service) end() {
	s.terminate.Do(func() {
		if s.ticking.Load() {
			close(s.stop)
			<-s.loopDone
		}
		s.logger.Info("timer stopped")
		bus.Publish(s.bus, lifecycle.ServiceTerminated{ID: s.ID()})
	})
}

// Stop halts ticking without waiting for a bus round trip. Sessions
// normally shut the timer down through SystemShutdown instead.
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

// Health reports whether the timer loop is running.
func (s *Service) Health() health.Status {
	if !s.started.Load() {
		return health.NewUnhealthy("timer", "not started")
	}
	if !s.ticking.Load() {
		return health.NewDegraded("timer", "waiting for session init")
	}
	select {
	case <-s.loopDone:
		return health.NewUnhealthy("timer", "tick loop stopped")
	default:
	}
	return health.NewHealthy("timer", "ticking").WithMetrics(&health.Metrics{
		Uptime: time.Since(s.startedAt),
	})
}
