package ledgerstream

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
	"github.com/c360/ledgerstream/health"
	"github.com/c360/ledgerstream/lifecycle"
	"github.com/c360/ledgerstream/stream"
)

// fakeOperator scripts server answers and records every request.
type fakeOperator struct {
	mu          sync.Mutex
	streamReqs  []stream.StreamPageRequest
	streamPages []stream.BatchResult[stream.EventNumber]
	allReqs     []stream.AllPageRequest
	allPages    []stream.BatchResult[stream.Position]
	appendReqs  []stream.AppendRequest
	deleteReqs  []stream.DeleteRequest
}

func (f *fakeOperator) FetchStream(_ context.Context, req stream.StreamPageRequest) (stream.BatchResult[stream.EventNumber], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.streamReqs = append(f.streamReqs, req)
	if len(f.streamPages) == 0 {
		return stream.BatchResult[stream.EventNumber]{}, fmt.Errorf("fetch beyond script")
	}
	page := f.streamPages[0]
	f.streamPages = f.streamPages[1:]
	return page, nil
}

func (f *fakeOperator) FetchAll(_ context.Context, req stream.AllPageRequest) (stream.BatchResult[stream.Position], error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allReqs = append(f.allReqs, req)
	if len(f.allPages) == 0 {
		return stream.BatchResult[stream.Position]{}, fmt.Errorf("fetch beyond script")
	}
	page := f.allPages[0]
	f.allPages = f.allPages[1:]
	return page, nil
}

func (f *fakeOperator) Append(_ context.Context, req stream.AppendRequest) (stream.AppendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendReqs = append(f.appendReqs, req)
	return stream.AppendResult{NextExpected: stream.EventNumber(len(req.Events)) - 1}, nil
}

func (f *fakeOperator) Delete(_ context.Context, req stream.DeleteRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteReqs = append(f.deleteReqs, req)
	return nil
}

func (f *fakeOperator) Ping(context.Context) (time.Duration, error) {
	return time.Millisecond, nil
}

func page(from stream.EventNumber, count int, next stream.EventNumber, more bool) stream.BatchResult[stream.EventNumber] {
	events := make([]stream.ResolvedEvent, count)
	for i := range count {
		events[i] = stream.ResolvedEvent{
			Event: &stream.RecordedEvent{
				Stream:      "orders",
				EventNumber: from + stream.EventNumber(i),
				EventType:   "OrderPlaced",
			},
		}
	}
	return stream.BatchResult[stream.EventNumber]{
		Outcome: stream.OutcomeSuccess,
		Slice:   stream.Slice[stream.EventNumber]{Events: events, Next: next, More: more},
	}
}

// newTestClient builds a session over a scripted operator with an
// empty service set, so the stage is Available from the start.
func newTestClient(t *testing.T, operator Operator) *Client {
	t.Helper()

	b := bus.New()
	t.Cleanup(b.Close)

	c := &Client{
		sessionID: "test-session",
		settings:  config.NewSafeSettings(config.DefaultSettings()),
		bus:       b,
		monitor:   health.NewMonitor(),
	}
	c.orchestrator = lifecycle.New(b, operator, nil, lifecycle.Dependencies{})
	return c
}

func TestReadStreamForward_DrainsAllPages(t *testing.T) {
	operator := &fakeOperator{
		streamPages: []stream.BatchResult[stream.EventNumber]{
			page(0, 2, 2, true),
			page(2, 2, 4, true),
			{Outcome: stream.OutcomeSuccess},
		},
	}
	c := newTestClient(t, operator)

	events, err := stream.Collect(c.ReadStreamForward(context.Background(), "orders", stream.StreamStart))
	require.NoError(t, err)
	require.Len(t, events, 4)
	for i, event := range events {
		assert.Equal(t, stream.EventNumber(i), event.Event.EventNumber)
	}

	require.Len(t, operator.streamReqs, 3)
	assert.Equal(t, stream.EventNumber(0), operator.streamReqs[0].From)
	assert.Equal(t, stream.EventNumber(2), operator.streamReqs[1].From)
	assert.Equal(t, stream.EventNumber(4), operator.streamReqs[2].From)
}

func TestReadStreamForward_DefaultPageSize(t *testing.T) {
	operator := &fakeOperator{
		streamPages: []stream.BatchResult[stream.EventNumber]{{Outcome: stream.OutcomeSuccess}},
	}
	c := newTestClient(t, operator)

	_, err := stream.Collect(c.ReadStreamForward(context.Background(), "orders", stream.StreamStart))
	require.NoError(t, err)

	require.Len(t, operator.streamReqs, 1)
	assert.Equal(t, stream.DefaultPageSize, operator.streamReqs[0].Limit)
	assert.Equal(t, stream.DirectionForward, operator.streamReqs[0].Direction)
}

func TestReadStreamBackward_ExplicitOptionsForwarded(t *testing.T) {
	operator := &fakeOperator{
		streamPages: []stream.BatchResult[stream.EventNumber]{{Outcome: stream.OutcomeSuccess}},
	}
	c := newTestClient(t, operator)

	_, err := stream.Collect(c.ReadStreamBackward(
		context.Background(), "orders", stream.StreamEnd,
		WithPageSize(50), WithResolvedLinks(), WithCredentials("reader", "secret")))
	require.NoError(t, err)

	require.Len(t, operator.streamReqs, 1)
	req := operator.streamReqs[0]
	assert.Equal(t, 50, req.Limit)
	assert.Equal(t, stream.DirectionBackward, req.Direction)
	assert.Equal(t, stream.StreamEnd, req.From)
	assert.True(t, req.ResolveLinks)
	require.NotNil(t, req.Credentials)
	assert.Equal(t, "reader", req.Credentials.Username)
}

func TestReadStreamForward_ErrorAfterFirstPage(t *testing.T) {
	operator := &fakeOperator{
		streamPages: []stream.BatchResult[stream.EventNumber]{
			page(0, 2, 2, true),
			{Outcome: stream.OutcomeAccessDenied},
		},
	}
	c := newTestClient(t, operator)

	events, err := stream.Collect(c.ReadStreamForward(context.Background(), "orders", stream.StreamStart))
	assert.Len(t, events, 2, "events before the failure are still delivered")
	require.Error(t, err)
	assert.True(t, stream.IsAccessDenied(err))
}

func TestReadStreamForward_DeletedStream(t *testing.T) {
	operator := &fakeOperator{
		streamPages: []stream.BatchResult[stream.EventNumber]{
			{Outcome: stream.OutcomeStreamDeleted},
		},
	}
	c := newTestClient(t, operator)

	_, err := stream.Collect(c.ReadStreamForward(context.Background(), "orders", stream.StreamStart))
	require.Error(t, err)
	assert.True(t, stream.IsStreamDeleted(err))
}

func TestReadAllForward_DeletedOutcomeStaysGeneric(t *testing.T) {
	operator := &fakeOperator{
		allPages: []stream.BatchResult[stream.Position]{
			{Outcome: stream.OutcomeStreamDeleted, Message: "impossible verdict"},
		},
	}
	c := newTestClient(t, operator)

	_, err := stream.Collect(c.ReadAllForward(context.Background(), stream.PositionStart))
	require.Error(t, err)
	assert.False(t, stream.IsStreamDeleted(err),
		"the global stream cannot be deleted; the verdict must classify as a generic failure")

	var failure *stream.ReadFailureError
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, stream.AllTarget, failure.Target)
}

func TestReadThrough_CustomClassifier(t *testing.T) {
	operator := &fakeOperator{
		streamPages: []stream.BatchResult[stream.EventNumber]{
			{Outcome: stream.OutcomeNoStream},
		},
	}
	c := newTestClient(t, operator)

	// Surface missing streams as errors instead of empty reads.
	classifier := func(name string, res stream.BatchResult[stream.EventNumber]) (stream.Slice[stream.EventNumber], error) {
		if res.Outcome == stream.OutcomeNoStream {
			return stream.Slice[stream.EventNumber]{}, &stream.NoStreamError{Stream: name}
		}
		return stream.ClassifyStream(name, res)
	}

	_, err := stream.Collect(ReadThrough(
		context.Background(), c, classifier,
		stream.DirectionForward, stream.ByName("missing"), stream.StreamStart))
	require.Error(t, err)
	assert.True(t, stream.IsNoStream(err))
}

func TestAppendToStream_RoutesThroughGate(t *testing.T) {
	operator := &fakeOperator{}
	c := newTestClient(t, operator)

	events := []stream.EventData{
		stream.NewEventData("OrderPlaced", []byte(`{"id":1}`), nil),
		stream.NewEventData("OrderShipped", []byte(`{"id":1}`), nil),
	}
	result, err := c.AppendToStream(context.Background(), "orders", stream.RevisionAny, events)
	require.NoError(t, err)
	assert.Equal(t, stream.EventNumber(1), result.NextExpected)

	require.Len(t, operator.appendReqs, 1)
	assert.Equal(t, "orders", operator.appendReqs[0].Stream)
	assert.Equal(t, stream.RevisionAny, operator.appendReqs[0].Expected)
	assert.Len(t, operator.appendReqs[0].Events, 2)
}

func TestDeleteStream(t *testing.T) {
	operator := &fakeOperator{}
	c := newTestClient(t, operator)

	require.NoError(t, c.DeleteStream(context.Background(), "orders", stream.ExpectedRevision(4)))
	require.Len(t, operator.deleteReqs, 1)
	assert.Equal(t, stream.ExpectedRevision(4), operator.deleteReqs[0].Expected)
}

func TestRead_FailsFastAfterSessionErrored(t *testing.T) {
	b := bus.New()
	t.Cleanup(b.Close)

	c := &Client{
		sessionID: "test-session",
		settings:  config.NewSafeSettings(config.DefaultSettings()),
		bus:       b,
	}
	c.orchestrator = lifecycle.New[Operator](b, &fakeOperator{}, lifecycle.AllServices(), lifecycle.Dependencies{})
	require.NoError(t, c.orchestrator.Start())
	t.Cleanup(c.orchestrator.Stop)

	bus.Publish(b, lifecycle.ShutdownSignal{})
	flushCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, b.Flush(flushCtx))

	_, err := stream.Collect(c.ReadStreamForward(context.Background(), "orders", stream.StreamStart))
	var terminated *lifecycle.TerminatedError
	require.ErrorAs(t, err, &terminated)
	assert.Equal(t, lifecycle.ReasonConnectionClosed, terminated.Reason)

	_, err = c.AppendToStream(context.Background(), "orders", stream.RevisionAny, nil)
	require.ErrorAs(t, err, &terminated)
}

func TestHealth_AggregatesStage(t *testing.T) {
	c := newTestClient(t, &fakeOperator{})

	status := c.Health()
	assert.Equal(t, "ledgerstream", status.Service)
	assert.True(t, status.IsHealthy(), "available session with no services is healthy")
}

func TestMust_PanicsOnFailure(t *testing.T) {
	operator := &fakeOperator{
		streamPages: []stream.BatchResult[stream.EventNumber]{
			{Outcome: stream.OutcomeAccessDenied},
		},
	}
	c := newTestClient(t, operator)

	assert.Panics(t, func() {
		for range stream.Must(c.ReadStreamForward(context.Background(), "orders", stream.StreamStart)) {
		}
	})
}
