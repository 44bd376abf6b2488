package stream

// ExpectedRevision is the optimistic-concurrency precondition of a
// write: the event number the stream tail must hold, or one of the
// relaxed sentinels below.
type ExpectedRevision int64

const (
	// RevisionAny accepts any stream state
	RevisionAny ExpectedRevision = -2
	// RevisionNoStream requires that the stream not exist yet
	RevisionNoStream ExpectedRevision = -1
)

// AppendRequest appends events to the tail of a named stream.
type AppendRequest struct {
	Stream      string           `json:"stream"`
	Expected    ExpectedRevision `json:"expected"`
	Events      []EventData      `json:"events"`
	Credentials *Credentials     `json:"credentials,omitempty"`
}

// AppendResult reports where the write landed.
type AppendResult struct {
	// NextExpected is the event number of the last appended event,
	// usable as the Expected of a follow-up write
	NextExpected EventNumber `json:"next_expected"`
	// Position is the global position of the last appended event
	Position Position `json:"position"`
}

// DeleteRequest soft-deletes a named stream.
type DeleteRequest struct {
	Stream      string           `json:"stream"`
	Expected    ExpectedRevision `json:"expected"`
	Credentials *Credentials     `json:"credentials,omitempty"`
}
