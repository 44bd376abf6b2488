package stream

import (
	"time"

	"github.com/google/uuid"
)

// RecordedEvent is a single event as stored in the ledger.
type RecordedEvent struct {
	Stream      string      `json:"stream"`
	EventNumber EventNumber `json:"event_number"`
	EventID     uuid.UUID   `json:"event_id"`
	EventType   string      `json:"event_type"`
	Data        []byte      `json:"data"`
	Metadata    []byte      `json:"metadata,omitempty"`
	Created     time.Time   `json:"created"`
}

// ResolvedEvent is an event as delivered to a reader. When the read
// followed a link event, Link holds the link and Event holds the
// resolved payload; otherwise Link is nil. Position is set for reads
// of the global stream.
type ResolvedEvent struct {
	Event    *RecordedEvent `json:"event"`
	Link     *RecordedEvent `json:"link,omitempty"`
	Position *Position      `json:"position,omitempty"`
}

// OriginalStream returns the stream the event was read from. For a
// resolved link event that is the stream holding the link, which is
// the stream a resumed read must cursor against.
func (e ResolvedEvent) OriginalStream() string {
	if e.Link != nil {
		return e.Link.Stream
	}
	if e.Event != nil {
		return e.Event.Stream
	}
	return ""
}

// OriginalEventNumber returns the event number to resume from, in the
// stream reported by OriginalStream.
func (e ResolvedEvent) OriginalEventNumber() EventNumber {
	if e.Link != nil {
		return e.Link.EventNumber
	}
	if e.Event != nil {
		return e.Event.EventNumber
	}
	return 0
}

// EventData is a single event to append to a stream.
type EventData struct {
	EventID   uuid.UUID `json:"event_id"`
	EventType string    `json:"event_type"`
	Data      []byte    `json:"data"`
	Metadata  []byte    `json:"metadata,omitempty"`
}

// NewEventData builds an EventData with a fresh event ID.
func NewEventData(eventType string, data, metadata []byte) EventData {
	return EventData{
		EventID:   uuid.New(),
		EventType: eventType,
		Data:      data,
		Metadata:  metadata,
	}
}
