package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/ledgerstream/bus"
	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/metric"
)

// Orchestrator tracks the readiness of the session's subsidiary services
// and gates all outbound traffic on the resulting stage. It is generic
// over the publisher handle type P so that transports of any shape can
// be gated without the orchestrator knowing their surface.
//
// The handle is supplied at construction but released to callers only
// once every service has reported in and the stage is Available.
type Orchestrator[P any] struct {
	bus     *bus.Bus
	logger  *slog.Logger
	metrics *metric.Metrics

	started atomic.Bool

	// mu guards the stage and both pending sets. Checking set emptiness
	// and writing the derived stage transition happen under one critical
	// section; two services reporting concurrently cannot both observe
	// the empty set.
	mu          sync.Mutex
	kind        StageKind
	reason      string
	publisher   P
	changed     chan struct{}
	pendingInit map[ServiceID]struct{}
	pendingTerm map[ServiceID]struct{}

	done     chan struct{}
	doneOnce sync.Once

	unsubscribes []func()
}

// New creates an orchestrator for the given service set with the stage
// at Init and both pending sets full. An empty service set degenerates
// to a session that is immediately available and fully shut down.
func New[P any](b *bus.Bus, publisher P, services []ServiceID, deps Dependencies) *Orchestrator[P] {
	o := &Orchestrator[P]{
		bus:         b,
		logger:      deps.GetLoggerWith("orchestrator"),
		metrics:     deps.CoreMetrics(),
		kind:        StageInit,
		publisher:   publisher,
		changed:     make(chan struct{}),
		pendingInit: make(map[ServiceID]struct{}, len(services)),
		pendingTerm: make(map[ServiceID]struct{}, len(services)),
		done:        make(chan struct{}),
	}
	for _, id := range services {
		o.pendingInit[id] = struct{}{}
		o.pendingTerm[id] = struct{}{}
	}

	if len(services) == 0 {
		o.kind = StageAvailable
		close(o.done)
	}

	return o
}

// Start registers the orchestrator's bus subscriptions and kicks off
// service initialization by publishing SystemInit. Start and Stop are
// not safe to call concurrently with each other.
func (o *Orchestrator[P]) Start() error {
	if !o.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}

	o.unsubscribes = []func(){
		bus.Subscribe(o.bus, o.onServiceInitialized),
		bus.Subscribe(o.bus, o.onServiceInitFailed),
		bus.Subscribe(o.bus, o.onFatal),
		bus.Subscribe(o.bus, o.onServiceTerminated),
		bus.Subscribe(o.bus, o.onShutdownSignal),
	}

	o.logger.Info("session starting")
	bus.Publish(o.bus, SystemInit{})
	return nil
}

// Stop removes the orchestrator's bus subscriptions. Callers normally
// wait on Done() first so that late termination reports are not lost.
func (o *Orchestrator[P]) Stop() {
	for _, unsubscribe := range o.unsubscribes {
		unsubscribe()
	}
	o.unsubscribes = nil
}

// RequestShutdown asks every service to terminate. The stage is closed
// by the transport's ShutdownSignal once the connection actually drops,
// not here.
func (o *Orchestrator[P]) RequestShutdown() {
	o.logger.Info("shutdown requested")
	bus.Publish(o.bus, SystemShutdown{})
}

// Done is closed once every service has reported termination.
func (o *Orchestrator[P]) Done() <-chan struct{} {
	return o.done
}

// Stage returns a snapshot of the current session stage.
func (o *Orchestrator[P]) Stage() Stage {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Stage{Kind: o.kind, Reason: o.reason}
}

// AcquirePublisher returns the publisher handle once the session is
// available. While the stage is Init the call suspends without busy
// waiting; every stage change wakes all suspended callers, which then
// re-evaluate. Once the stage is Errored the call fails immediately
// with a TerminatedError carrying the recorded reason.
//
// Callers must acquire per operation rather than caching the handle: an
// available session can become Errored at any time.
func (o *Orchestrator[P]) AcquirePublisher(ctx context.Context) (P, error) {
	var zero P
	start := time.Now()

	for {
		o.mu.Lock()
		switch o.kind {
		case StageAvailable:
			publisher := o.publisher
			o.mu.Unlock()
			if o.metrics != nil {
				o.metrics.ObserveGateWait(time.Since(start))
			}
			return publisher, nil
		case StageErrored:
			reason := o.reason
			o.mu.Unlock()
			if o.metrics != nil {
				o.metrics.ObserveGateWait(time.Since(start))
			}
			return zero, &TerminatedError{Reason: reason}
		}
		wait := o.changed
		o.mu.Unlock()

		select {
		case <-wait:
		case <-ctx.Done():
			return zero, errors.WrapTransient(ctx.Err(), "Orchestrator", "AcquirePublisher", "wait for session stage")
		}
	}
}

// setStageLocked records a stage transition and wakes every gate waiter.
// Callers must hold o.mu.
func (o *Orchestrator[P]) setStageLocked(kind StageKind, reason string) {
	o.kind = kind
	o.reason = reason
	close(o.changed)
	o.changed = make(chan struct{})
	if o.metrics != nil {
		o.metrics.RecordStageTransition(kind.String())
	}
}

func (o *Orchestrator[P]) onServiceInitialized(msg ServiceInitialized) {
	o.mu.Lock()
	if _, pending := o.pendingInit[msg.ID]; !pending {
		o.mu.Unlock()
		o.logger.Debug("ignoring duplicate initialization report", "service", msg.ID.String())
		return
	}
	delete(o.pendingInit, msg.ID)
	remaining := len(o.pendingInit)
	transitioned := false
	if remaining == 0 && o.kind == StageInit {
		o.setStageLocked(StageAvailable, "")
		transitioned = true
	}
	o.mu.Unlock()

	o.logger.Info("service initialized", "service", msg.ID.String(), "remaining", remaining)
	if transitioned {
		o.logger.Info("session available")
	}
}

func (o *Orchestrator[P]) onServiceInitFailed(msg ServiceInitFailed) {
	o.mu.Lock()
	if o.kind != StageErrored {
		o.setStageLocked(StageErrored, ReasonInitFailed)
	}
	o.mu.Unlock()

	o.logger.Error("service failed to initialize", "service", msg.ID.String(), "error", msg.Err)
	if o.metrics != nil {
		o.metrics.RecordError(msg.ID.String(), "init_failed")
	}
	bus.Publish(o.bus, SystemShutdown{})
}

func (o *Orchestrator[P]) onFatal(msg Fatal) {
	o.logger.Error("fatal error reported", "cause", msg.Cause)
	if o.metrics != nil {
		o.metrics.RecordError("orchestrator", "fatal")
	}
	bus.Publish(o.bus, SystemShutdown{})
}

func (o *Orchestrator[P]) onServiceTerminated(msg ServiceTerminated) {
	o.mu.Lock()
	if _, pending := o.pendingTerm[msg.ID]; !pending {
		o.mu.Unlock()
		o.logger.Debug("ignoring duplicate termination report", "service", msg.ID.String())
		return
	}
	delete(o.pendingTerm, msg.ID)
	remaining := len(o.pendingTerm)
	o.mu.Unlock()

	o.logger.Info("service terminated", "service", msg.ID.String(), "remaining", remaining)
	if remaining == 0 {
		o.doneOnce.Do(func() { close(o.done) })
		o.logger.Info("session fully shut down")
	}
}

func (o *Orchestrator[P]) onShutdownSignal(ShutdownSignal) {
	o.mu.Lock()
	if o.kind != StageErrored {
		o.setStageLocked(StageErrored, ReasonConnectionClosed)
	}
	o.mu.Unlock()

	o.logger.Info("connection closed, publisher gate sealed")
}
