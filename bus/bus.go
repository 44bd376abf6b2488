package bus

import (
	"context"
	"log/slog"
	"reflect"
	"sync"

	"github.com/google/uuid"
)

// subscription is one registered handler with its own delivery queue.
// A dedicated worker goroutine drains the queue, so a slow handler
// delays only its own deliveries and messages reach each handler in
// publish order.
type subscription struct {
	id      string
	msgType reflect.Type
	deliver func(any)

	mu      sync.Mutex
	pending []any
	closed  bool
	wake    chan struct{}
}

// barrier is an internal queue marker used by Flush. When the worker
// reaches it, everything enqueued before it has been delivered.
type barrier struct {
	done chan struct{}
}

func (s *subscription) enqueue(msg any) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.pending = append(s.pending, msg)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

func (s *subscription) close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// run drains the queue until the subscription is closed and empty.
func (s *subscription) run() {
	for {
		s.mu.Lock()
		for len(s.pending) == 0 {
			if s.closed {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			<-s.wake
			s.mu.Lock()
		}
		batch := s.pending
		s.pending = nil
		s.mu.Unlock()

		for _, msg := range batch {
			if b, ok := msg.(barrier); ok {
				close(b.done)
				continue
			}
			s.deliver(msg)
		}
	}
}

// Bus is an in-process publish/subscribe hub for typed control messages.
// Subscriptions are keyed by the concrete message type; delivery is
// asynchronous with respect to the publisher and ordered per subscriber.
type Bus struct {
	mu     sync.RWMutex
	subs   map[reflect.Type][]*subscription
	closed bool
	wg     sync.WaitGroup

	logger  *slog.Logger
	metrics *busMetrics
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the structured logger used for delivery diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bus) {
		b.logger = logger
	}
}

// New creates an event bus.
func New(opts ...Option) *Bus {
	b := &Bus{
		subs:   make(map[reflect.Type][]*subscription),
		logger: slog.Default().With("component", "bus"),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers fn for messages of concrete type T and returns an
// unsubscribe function. The handler runs on the subscription's own
// goroutine; it must not block indefinitely or later messages to the
// same subscriber back up behind it.
func Subscribe[T any](b *Bus, fn func(T)) func() {
	msgType := reflect.TypeFor[T]()

	sub := &subscription{
		id:      uuid.NewString(),
		msgType: msgType,
		wake:    make(chan struct{}, 1),
		deliver: func(msg any) {
			fn(msg.(T))
		},
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return func() {}
	}
	b.subs[msgType] = append(b.subs[msgType], sub)
	b.wg.Add(1)
	b.mu.Unlock()

	go func() {
		defer b.wg.Done()
		sub.run()
	}()

	b.logger.Debug("subscribed", "type", msgType.String(), "subscription", sub.id)

	return func() {
		b.remove(msgType, sub.id)
	}
}

// Publish enqueues msg for every subscriber of type T and returns
// without waiting for delivery.
func Publish[T any](b *Bus, msg T) {
	msgType := reflect.TypeFor[T]()

	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	subs := b.subs[msgType]
	delivered := 0
	for _, sub := range subs {
		if sub.enqueue(msg) {
			delivered++
		}
	}
	b.mu.RUnlock()

	if b.metrics != nil {
		b.metrics.recordPublish(msgType.String(), delivered)
	}
}

func (b *Bus) remove(msgType reflect.Type, id string) {
	b.mu.Lock()
	subs := b.subs[msgType]
	for i, sub := range subs {
		if sub.id == id {
			b.subs[msgType] = append(subs[:i], subs[i+1:]...)
			sub.close()
			break
		}
	}
	b.mu.Unlock()
}

// Flush blocks until every message published before the call has been
// delivered, or ctx expires. Messages published concurrently with Flush
// may or may not be covered.
func (b *Bus) Flush(ctx context.Context) error {
	b.mu.RLock()
	var marks []chan struct{}
	for _, subs := range b.subs {
		for _, sub := range subs {
			done := make(chan struct{})
			if sub.enqueue(barrier{done: done}) {
				marks = append(marks, done)
			}
		}
	}
	b.mu.RUnlock()

	for _, done := range marks {
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting publishes, lets each subscription drain its
// queue, and waits for the delivery goroutines to exit.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.close()
		}
	}
	b.subs = make(map[reflect.Type][]*subscription)
	b.mu.Unlock()

	b.wg.Wait()
}
