package natsclient

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/ledgerstream/bus"
	"github.com/c360/ledgerstream/config"
	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/lifecycle"
)

// stubResolver hands out a fixed endpoint and counts rotation reports.
type stubResolver struct {
	mu       sync.Mutex
	endpoint string
	err      error
	reports  int
}

func (r *stubResolver) Resolve(context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.endpoint, r.err
}

func (r *stubResolver) Report(error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports++
}

func (r *stubResolver) reported() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports
}

// collect subscribes to messages of type T and exposes what arrived.
func collect[T any](t *testing.T, b *bus.Bus) func() []T {
	t.Helper()

	var mu sync.Mutex
	var got []T
	unsubscribe := bus.Subscribe(b, func(msg T) {
		mu.Lock()
		got = append(got, msg)
		mu.Unlock()
	})
	t.Cleanup(unsubscribe)

	return func() []T {
		mu.Lock()
		defer mu.Unlock()
		return append([]T(nil), got...)
	}
}

func newTestManager(t *testing.T, settings *config.Settings, resolver Resolver) (*Manager, *bus.Bus) {
	t.Helper()

	b := bus.New()
	t.Cleanup(b.Close)

	m, err := NewManager(b, settings, resolver, lifecycle.Dependencies{})
	require.NoError(t, err)
	require.NoError(t, m.Start(context.Background()))

	return m, b
}

func TestManager_InitFailed_WhenResolverPermanentlyFails(t *testing.T) {
	resolver := &stubResolver{
		err: errors.WrapInvalid(fmt.Errorf("no candidates"), "Discovery", "Resolve", "select endpoint"),
	}
	m, b := newTestManager(t, config.DefaultSettings(), resolver)

	failed := collect[lifecycle.ServiceInitFailed](t, b)
	bus.Publish(b, lifecycle.SystemInit{})

	require.Eventually(t, func() bool {
		return len(failed()) == 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, m.ID(), failed()[0].ID)
}

func TestManager_InitFailed_RotatesThroughUnreachableEndpoint(t *testing.T) {
	settings := config.DefaultSettings()
	settings.Discovery.MaxAttempts = 2
	settings.Connection.RequestTimeout = 500 * time.Millisecond

	// Port 1 refuses connections, so every dial attempt fails fast.
	resolver := &stubResolver{endpoint: "nats://127.0.0.1:1"}
	m, b := newTestManager(t, settings, resolver)

	failed := collect[lifecycle.ServiceInitFailed](t, b)
	bus.Publish(b, lifecycle.SystemInit{})

	require.Eventually(t, func() bool {
		return len(failed()) == 1
	}, 15*time.Second, 20*time.Millisecond)
	assert.Equal(t, m.ID(), failed()[0].ID)
	assert.GreaterOrEqual(t, resolver.reported(), 1,
		"failed dials must be reported back to discovery for rotation")
}

func TestManager_Shutdown_ReportsTermination(t *testing.T) {
	m, b := newTestManager(t, config.DefaultSettings(), &stubResolver{endpoint: "nats://127.0.0.1:1"})

	terminated := collect[lifecycle.ServiceTerminated](t, b)
	signals := collect[lifecycle.ShutdownSignal](t, b)

	bus.Publish(b, lifecycle.SystemShutdown{})

	require.Eventually(t, func() bool {
		return len(terminated()) == 1 && len(signals()) >= 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, m.ID(), terminated()[0].ID)
}

func TestManager_ConnectionLost_SealsSession(t *testing.T) {
	m, b := newTestManager(t, config.DefaultSettings(), &stubResolver{})

	terminated := collect[lifecycle.ServiceTerminated](t, b)
	signals := collect[lifecycle.ShutdownSignal](t, b)

	m.onConnectionLost(fmt.Errorf("server went away"))
	// The callback may fire again from the close handler; termination
	// must still be reported exactly once.
	m.onConnectionLost(nil)

	require.Eventually(t, func() bool {
		return len(signals()) >= 1
	}, 5*time.Second, 10*time.Millisecond)
	assert.Len(t, terminated(), 1)
}

func TestManager_Health(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	m, err := NewManager(b, config.DefaultSettings(), &stubResolver{}, lifecycle.Dependencies{})
	require.NoError(t, err)

	assert.True(t, m.Health().IsUnhealthy(), "unstarted manager is unhealthy")

	require.NoError(t, m.Start(context.Background()))
	status := m.Health()
	assert.True(t, status.IsUnhealthy(), "disconnected manager is unhealthy")
	assert.Equal(t, "connection-manager", status.Service)
}

func TestManager_StartTwice(t *testing.T) {
	m, _ := newTestManager(t, config.DefaultSettings(), &stubResolver{})
	assert.ErrorIs(t, m.Start(context.Background()), errors.ErrAlreadyStarted)
}
