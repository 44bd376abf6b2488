package stream

import "fmt"

// ClassifyStream applies the default named-stream rules to a raw
// outcome. Missing streams and not-modified answers classify as empty
// pages, a deleted stream as StreamDeletedError, denied access as
// AccessDeniedError, and anything else as ReadFailureError carrying
// the server message. Custom classifiers can call it to fall through
// to these rules for the cases they do not override.
func ClassifyStream(stream string, res BatchResult[EventNumber]) (Slice[EventNumber], error) {
	switch res.Outcome {
	case OutcomeSuccess:
		return res.Slice, nil
	case OutcomeNoStream, OutcomeNotModified:
		// Nothing to read yet; the traversal ends cleanly.
		return Slice[EventNumber]{}, nil
	case OutcomeStreamDeleted:
		return Slice[EventNumber]{}, &StreamDeletedError{Stream: stream}
	case OutcomeAccessDenied:
		return Slice[EventNumber]{}, &AccessDeniedError{Target: stream}
	case OutcomeError:
		return Slice[EventNumber]{}, &ReadFailureError{Target: stream, Message: res.Message}
	default:
		return Slice[EventNumber]{}, &ReadFailureError{Target: stream, Message: fmt.Sprintf("unexpected outcome %s", res.Outcome)}
	}
}

// classifyAll applies the global-stream rules. The ledger always holds
// the global stream, so deleted and no-stream outcomes cannot be
// truthful answers here; they surface as generic failures rather than
// typed absence errors.
func classifyAll(res BatchResult[Position]) (Slice[Position], error) {
	switch res.Outcome {
	case OutcomeSuccess:
		return res.Slice, nil
	case OutcomeNotModified:
		return Slice[Position]{}, nil
	case OutcomeAccessDenied:
		return Slice[Position]{}, &AccessDeniedError{Target: AllTarget}
	case OutcomeError:
		return Slice[Position]{}, &ReadFailureError{Target: AllTarget, Message: res.Message}
	default:
		return Slice[Position]{}, &ReadFailureError{Target: AllTarget, Message: fmt.Sprintf("unexpected outcome %s for global read", res.Outcome)}
	}
}
