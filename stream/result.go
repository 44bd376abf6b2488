package stream

// Slice is one classified page of a traversal: the events of the page,
// plus the cursor to resume from when the ledger holds more.
type Slice[C Cursor] struct {
	Events []ResolvedEvent
	Next   C
	More   bool
}

// BatchOutcome is the raw server verdict for one page request, before
// classification maps it to events or a typed error.
type BatchOutcome int

const (
	OutcomeSuccess BatchOutcome = iota
	OutcomeNoStream
	OutcomeNotModified
	OutcomeStreamDeleted
	OutcomeAccessDenied
	OutcomeError
)

// String returns the wire name of the outcome.
func (o BatchOutcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNoStream:
		return "no-stream"
	case OutcomeNotModified:
		return "not-modified"
	case OutcomeStreamDeleted:
		return "stream-deleted"
	case OutcomeAccessDenied:
		return "access-denied"
	case OutcomeError:
		return "error"
	default:
		return "unknown"
	}
}

// BatchResult is a Fetcher's answer for one page: the outcome, the
// page itself on success, and server detail on error.
type BatchResult[C Cursor] struct {
	Outcome BatchOutcome
	Slice   Slice[C]
	Message string
}
