package stream

import "math"

// EventNumber is the cursor type of a named stream: the sequence number
// of an event within that stream.
type EventNumber uint64

const (
	// StreamStart addresses the first event of a named stream
	StreamStart EventNumber = 0
	// StreamEnd addresses the tail of a named stream; backward reads
	// start here
	StreamEnd EventNumber = math.MaxUint64
)

// Position is the cursor type of the global stream: a record position
// in the ledger spanning all named streams.
type Position struct {
	Commit  uint64 `json:"commit"`
	Prepare uint64 `json:"prepare"`
}

var (
	// PositionStart addresses the first record of the ledger
	PositionStart = Position{}
	// PositionEnd addresses the tail of the ledger; backward reads
	// start here
	PositionEnd = Position{Commit: math.MaxUint64, Prepare: math.MaxUint64}
)

// Cursor constrains the position types a traversal can resume from.
// The cursor type is part of a read target's identity: named streams
// advance by EventNumber, the global stream by Position, and the two
// never mix within one traversal.
type Cursor interface {
	EventNumber | Position
}
