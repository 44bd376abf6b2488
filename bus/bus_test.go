package bus

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingMsg struct {
	Seq int
}

type otherMsg struct {
	Name string
}

func TestPublish_TypedRouting(t *testing.T) {
	b := New()
	defer b.Close()

	var pings, others atomic.Int64
	Subscribe(b, func(pingMsg) { pings.Add(1) })
	Subscribe(b, func(otherMsg) { others.Add(1) })

	Publish(b, pingMsg{Seq: 1})
	Publish(b, pingMsg{Seq: 2})
	Publish(b, otherMsg{Name: "x"})

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, int64(2), pings.Load())
	assert.Equal(t, int64(1), others.Load())
}

func TestPublish_PerSubscriberOrdering(t *testing.T) {
	b := New()
	defer b.Close()

	const n = 500
	var mu sync.Mutex
	var got []int
	Subscribe(b, func(msg pingMsg) {
		mu.Lock()
		got = append(got, msg.Seq)
		mu.Unlock()
	})

	for i := 0; i < n; i++ {
		Publish(b, pingMsg{Seq: i})
	}

	require.NoError(t, b.Flush(context.Background()))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, n)
	for i, seq := range got {
		require.Equal(t, i, seq, "messages must arrive in publish order")
	}
}

func TestPublish_SlowSubscriberDoesNotBlockOthers(t *testing.T) {
	b := New()
	defer b.Close()

	release := make(chan struct{})
	var slow, fast atomic.Int64
	Subscribe(b, func(pingMsg) {
		<-release
		slow.Add(1)
	})
	Subscribe(b, func(pingMsg) { fast.Add(1) })

	for i := 0; i < 3; i++ {
		Publish(b, pingMsg{Seq: i})
	}

	// The fast subscriber drains while the slow one is still stuck on its
	// first delivery.
	assert.Eventually(t, func() bool { return fast.Load() == 3 }, time.Second, time.Millisecond)
	assert.Equal(t, int64(0), slow.Load())

	close(release)
	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, int64(3), slow.Load())
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	defer b.Close()

	var count atomic.Int64
	unsubscribe := Subscribe(b, func(pingMsg) { count.Add(1) })

	Publish(b, pingMsg{Seq: 1})
	require.NoError(t, b.Flush(context.Background()))
	require.Equal(t, int64(1), count.Load())

	unsubscribe()
	Publish(b, pingMsg{Seq: 2})
	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, int64(1), count.Load())
}

func TestClose_StopsDelivery(t *testing.T) {
	b := New()

	var count atomic.Int64
	Subscribe(b, func(pingMsg) { count.Add(1) })

	Publish(b, pingMsg{Seq: 1})
	b.Close()

	// Published work is drained before Close returns; later publishes are
	// dropped without panicking.
	assert.Equal(t, int64(1), count.Load())
	Publish(b, pingMsg{Seq: 2})
	assert.Equal(t, int64(1), count.Load())

	// Subscribing after close is a no-op.
	cancel := Subscribe(b, func(pingMsg) { count.Add(1) })
	cancel()
	Publish(b, pingMsg{Seq: 3})
	assert.Equal(t, int64(1), count.Load())
}

func TestPublish_ConcurrentPublishers(t *testing.T) {
	b := New()
	defer b.Close()

	var count atomic.Int64
	Subscribe(b, func(pingMsg) { count.Add(1) })

	const publishers, perPublisher = 8, 100
	var wg sync.WaitGroup
	for p := 0; p < publishers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perPublisher; i++ {
				Publish(b, pingMsg{Seq: i})
			}
		}()
	}
	wg.Wait()

	require.NoError(t, b.Flush(context.Background()))
	assert.Equal(t, int64(publishers*perPublisher), count.Load())
}

func TestFlush_ContextCancellation(t *testing.T) {
	b := New()
	defer b.Close()

	release := make(chan struct{})
	defer close(release)
	Subscribe(b, func(pingMsg) { <-release })
	Publish(b, pingMsg{Seq: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := b.Flush(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
