package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ledgerstream/bus"
	"github.com/c360/ledgerstream/errors"
)

type fakePublisher struct {
	name string
}

func newTestOrchestrator(t *testing.T, services []ServiceID) (*Orchestrator[*fakePublisher], *bus.Bus, *fakePublisher) {
	t.Helper()

	b := bus.New()
	t.Cleanup(b.Close)

	publisher := &fakePublisher{name: "session-publisher"}
	o := New(b, publisher, services, Dependencies{})
	require.NoError(t, o.Start())
	t.Cleanup(o.Stop)

	return o, b, publisher
}

func flush(t *testing.T, b *bus.Bus) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Two passes: messages the orchestrator publishes while handling the
	// first pass are themselves delivered by the second.
	require.NoError(t, b.Flush(ctx))
	require.NoError(t, b.Flush(ctx))
}

func TestOrchestrator_AllServicesInitialize_AnyOrder(t *testing.T) {
	orders := [][]ServiceID{
		{ServiceConnectionManager, ServiceDiscovery, ServiceTimer},
		{ServiceTimer, ServiceDiscovery, ServiceConnectionManager},
		{ServiceDiscovery, ServiceConnectionManager, ServiceTimer},
	}

	for i, order := range orders {
		t.Run(fmt.Sprintf("order_%d", i), func(t *testing.T) {
			o, b, publisher := newTestOrchestrator(t, AllServices())

			require.Equal(t, StageInit, o.Stage().Kind)

			for _, id := range order[:len(order)-1] {
				bus.Publish(b, ServiceInitialized{ID: id})
				flush(t, b)
				assert.Equal(t, StageInit, o.Stage().Kind,
					"stage must stay Init until every service reported")
			}
			bus.Publish(b, ServiceInitialized{ID: order[len(order)-1]})
			flush(t, b)

			require.Equal(t, StageAvailable, o.Stage().Kind)

			got, err := o.AcquirePublisher(context.Background())
			require.NoError(t, err)
			assert.Same(t, publisher, got)
		})
	}
}

func TestOrchestrator_DuplicateInitialized_NoDoubleCounting(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	// One service reporting repeatedly must not drain the set.
	for i := 0; i < 5; i++ {
		bus.Publish(b, ServiceInitialized{ID: ServiceConnectionManager})
	}
	flush(t, b)
	assert.Equal(t, StageInit, o.Stage().Kind)

	bus.Publish(b, ServiceInitialized{ID: ServiceDiscovery})
	bus.Publish(b, ServiceInitialized{ID: ServiceTimer})
	flush(t, b)
	assert.Equal(t, StageAvailable, o.Stage().Kind)
}

func TestOrchestrator_ErroredIsTerminal(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	bus.Publish(b, ServiceInitFailed{ID: ServiceDiscovery, Err: fmt.Errorf("resolve failed")})
	flush(t, b)

	stage := o.Stage()
	require.Equal(t, StageErrored, stage.Kind)
	require.Equal(t, ReasonInitFailed, stage.Reason)

	// No later message may move the stage or rewrite the reason.
	bus.Publish(b, ShutdownSignal{})
	for _, id := range AllServices() {
		bus.Publish(b, ServiceInitialized{ID: id})
	}
	flush(t, b)

	stage = o.Stage()
	assert.Equal(t, StageErrored, stage.Kind)
	assert.Equal(t, ReasonInitFailed, stage.Reason)

	_, err := o.AcquirePublisher(context.Background())
	var terminated *TerminatedError
	require.ErrorAs(t, err, &terminated)
	assert.Equal(t, ReasonInitFailed, terminated.Reason)
}

func TestAcquirePublisher_ConcurrentWaitersAllReleased(t *testing.T) {
	o, b, publisher := newTestOrchestrator(t, AllServices())

	const waiters = 50
	results := make(chan *fakePublisher, waiters)
	failures := make(chan error, waiters)

	var ready sync.WaitGroup
	ready.Add(waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			ready.Done()
			got, err := o.AcquirePublisher(context.Background())
			if err != nil {
				failures <- err
				return
			}
			results <- got
		}()
	}
	ready.Wait()
	// Give the goroutines a moment to actually park on the gate.
	time.Sleep(20 * time.Millisecond)

	for _, id := range AllServices() {
		bus.Publish(b, ServiceInitialized{ID: id})
	}

	for i := 0; i < waiters; i++ {
		select {
		case got := <-results:
			assert.Same(t, publisher, got, "every waiter must observe the same handle")
		case err := <-failures:
			t.Fatalf("waiter failed: %v", err)
		case <-time.After(5 * time.Second):
			t.Fatalf("waiter %d never released", i)
		}
	}
}

func TestAcquirePublisher_FailsFastWhenErrored(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	bus.Publish(b, ShutdownSignal{})
	flush(t, b)

	start := time.Now()
	_, err := o.AcquirePublisher(context.Background())
	elapsed := time.Since(start)

	var terminated *TerminatedError
	require.ErrorAs(t, err, &terminated)
	assert.Equal(t, ReasonConnectionClosed, terminated.Reason)
	assert.Equal(t, "Terminated: connection closed", err.Error())
	assert.Less(t, elapsed, time.Second, "errored gate must not block")
}

func TestAcquirePublisher_WaitersWokenByErrored(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	errs := make(chan error, 1)
	go func() {
		_, err := o.AcquirePublisher(context.Background())
		errs <- err
	}()
	time.Sleep(20 * time.Millisecond)

	bus.Publish(b, ServiceInitFailed{ID: ServiceTimer, Err: fmt.Errorf("boom")})

	select {
	case err := <-errs:
		var terminated *TerminatedError
		require.ErrorAs(t, err, &terminated)
		assert.Equal(t, ReasonInitFailed, terminated.Reason)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter not released by the Errored transition")
	}
}

func TestAcquirePublisher_ContextCancellation(t *testing.T) {
	o, _, _ := newTestOrchestrator(t, AllServices())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := o.AcquirePublisher(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, errors.IsTransient(err))
}

func TestOrchestrator_InitFailurePublishesShutdown(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	shutdowns := make(chan SystemShutdown, 1)
	unsubscribe := bus.Subscribe(b, func(msg SystemShutdown) { shutdowns <- msg })
	defer unsubscribe()

	bus.Publish(b, ServiceInitFailed{ID: ServiceConnectionManager, Err: fmt.Errorf("dial refused")})
	flush(t, b)

	select {
	case <-shutdowns:
	default:
		t.Fatal("initialization failure must request a shutdown")
	}
	assert.Equal(t, StageErrored, o.Stage().Kind)
}

func TestOrchestrator_FatalRequestsShutdownWithoutPoisoningStage(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	shutdowns := make(chan SystemShutdown, 1)
	unsubscribe := bus.Subscribe(b, func(msg SystemShutdown) { shutdowns <- msg })
	defer unsubscribe()

	bus.Publish(b, Fatal{Cause: fmt.Errorf("heartbeat lost")})
	flush(t, b)

	select {
	case <-shutdowns:
	default:
		t.Fatal("fatal report must request a shutdown")
	}

	// The stage is sealed by the transport's ShutdownSignal, not by the
	// fatal report itself.
	assert.Equal(t, StageInit, o.Stage().Kind)

	bus.Publish(b, ShutdownSignal{})
	flush(t, b)
	stage := o.Stage()
	assert.Equal(t, StageErrored, stage.Kind)
	assert.Equal(t, ReasonConnectionClosed, stage.Reason)
}

func TestOrchestrator_DoneAfterAllServicesTerminate(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	services := AllServices()
	for _, id := range services[:len(services)-1] {
		bus.Publish(b, ServiceTerminated{ID: id})
	}
	flush(t, b)

	select {
	case <-o.Done():
		t.Fatal("Done must stay open while a service is still pending")
	default:
	}

	bus.Publish(b, ServiceTerminated{ID: services[len(services)-1]})
	flush(t, b)

	select {
	case <-o.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Done must close once every service terminated")
	}

	// Duplicate termination reports after Done are ignored.
	bus.Publish(b, ServiceTerminated{ID: services[0]})
	flush(t, b)
}

func TestOrchestrator_StartPublishesSystemInit(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	inits := make(chan SystemInit, 1)
	unsubscribe := bus.Subscribe(b, func(msg SystemInit) { inits <- msg })
	defer unsubscribe()

	o := New(b, &fakePublisher{}, AllServices(), Dependencies{})
	require.NoError(t, o.Start())
	t.Cleanup(o.Stop)
	flush(t, b)

	select {
	case <-inits:
	default:
		t.Fatal("Start must publish SystemInit")
	}

	assert.ErrorIs(t, o.Start(), errors.ErrAlreadyStarted)
}

func TestOrchestrator_EmptyServiceSet(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	o := New(b, &fakePublisher{}, nil, Dependencies{})
	require.NoError(t, o.Start())
	t.Cleanup(o.Stop)

	assert.Equal(t, StageAvailable, o.Stage().Kind)
	select {
	case <-o.Done():
	default:
		t.Fatal("empty session has nothing left to shut down")
	}
}

func TestOrchestrator_RequestShutdown(t *testing.T) {
	o, b, _ := newTestOrchestrator(t, AllServices())

	shutdowns := make(chan SystemShutdown, 1)
	unsubscribe := bus.Subscribe(b, func(msg SystemShutdown) { shutdowns <- msg })
	defer unsubscribe()

	o.RequestShutdown()
	flush(t, b)

	select {
	case <-shutdowns:
	default:
		t.Fatal("RequestShutdown must publish SystemShutdown")
	}
}
