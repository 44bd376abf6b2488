package stream

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityTargets(t *testing.T) {
	assert.Equal(t, "orders", ByName("orders").Target())
	assert.Equal(t, "$all", All().Target())
}

func TestDirection_String(t *testing.T) {
	tests := []struct {
		direction Direction
		want      string
	}{
		{DirectionForward, "forward"},
		{DirectionBackward, "backward"},
		{Direction(7), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.direction.String())
	}
}

func TestBatchOutcome_String(t *testing.T) {
	tests := []struct {
		outcome BatchOutcome
		want    string
	}{
		{OutcomeSuccess, "success"},
		{OutcomeNoStream, "no-stream"},
		{OutcomeNotModified, "not-modified"},
		{OutcomeStreamDeleted, "stream-deleted"},
		{OutcomeAccessDenied, "access-denied"},
		{OutcomeError, "error"},
		{BatchOutcome(42), "unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.outcome.String())
	}
}

func TestCursorSentinels(t *testing.T) {
	assert.Equal(t, EventNumber(0), StreamStart)
	assert.Equal(t, EventNumber(math.MaxUint64), StreamEnd)
	assert.Equal(t, Position{}, PositionStart)
	assert.Equal(t, Position{Commit: math.MaxUint64, Prepare: math.MaxUint64}, PositionEnd)
}

func TestResolvedEvent_Original(t *testing.T) {
	payload := &RecordedEvent{Stream: "orders", EventNumber: 7}

	t.Run("plain event", func(t *testing.T) {
		event := ResolvedEvent{Event: payload}
		assert.Equal(t, "orders", event.OriginalStream())
		assert.Equal(t, EventNumber(7), event.OriginalEventNumber())
	})

	t.Run("resolved link", func(t *testing.T) {
		event := ResolvedEvent{
			Event: payload,
			Link:  &RecordedEvent{Stream: "$projection-orders", EventNumber: 3},
		}
		assert.Equal(t, "$projection-orders", event.OriginalStream())
		assert.Equal(t, EventNumber(3), event.OriginalEventNumber())
	})

	t.Run("zero value", func(t *testing.T) {
		var event ResolvedEvent
		assert.Equal(t, "", event.OriginalStream())
		assert.Equal(t, EventNumber(0), event.OriginalEventNumber())
	})
}

func TestNewEventData(t *testing.T) {
	data := NewEventData("order-placed", []byte(`{"total":12}`), nil)
	assert.NotEqual(t, [16]byte{}, [16]byte(data.EventID), "event ID must be generated")
	assert.Equal(t, "order-placed", data.EventType)
	assert.JSONEq(t, `{"total":12}`, string(data.Data))
}
