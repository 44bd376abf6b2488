package stream

import "context"

// AllTarget is the reserved name of the global stream.
const AllTarget = "$all"

// Classifier maps one raw named-stream outcome to a page or a typed
// error. Passing nil selects ClassifyStream. Custom classifiers apply
// to named streams only; the global stream always classifies through
// the built-in rules.
type Classifier func(stream string, res BatchResult[EventNumber]) (Slice[EventNumber], error)

// PageRequest is one page of a traversal, addressed by the cursor type
// of the target.
type PageRequest[C Cursor] struct {
	From         C
	Limit        int
	Direction    Direction
	ResolveLinks bool
	Credentials  *Credentials
}

// Identity names a read target and binds it to its cursor type. The
// two implementations are Stream and AllStream; the unexported method
// keeps the set closed, so a Position cursor can never address a named
// stream nor an EventNumber the global one.
type Identity[C Cursor] interface {
	// Target returns the target's name for logs and error messages.
	Target() string

	page(ctx context.Context, f Fetcher, classify Classifier, req PageRequest[C]) (Slice[C], error)
}

// FetchPage retrieves and classifies one page of the target.
func FetchPage[C Cursor](ctx context.Context, f Fetcher, id Identity[C], classify Classifier, req PageRequest[C]) (Slice[C], error) {
	return id.page(ctx, f, classify, req)
}

// Stream identifies a named stream. The zero value is unusable; build
// one with ByName.
type Stream struct {
	name string
}

// ByName identifies the named stream with the given name.
func ByName(name string) Stream {
	return Stream{name: name}
}

// Target returns the stream name.
func (s Stream) Target() string {
	return s.name
}

func (s Stream) page(ctx context.Context, f Fetcher, classify Classifier, req PageRequest[EventNumber]) (Slice[EventNumber], error) {
	res, err := f.FetchStream(ctx, StreamPageRequest{
		Stream:       s.name,
		From:         req.From,
		Limit:        req.Limit,
		Direction:    req.Direction,
		ResolveLinks: req.ResolveLinks,
		Credentials:  req.Credentials,
	})
	if err != nil {
		return Slice[EventNumber]{}, &ReadFailureError{Target: s.name, Message: err.Error(), cause: err}
	}
	if classify != nil {
		return classify(s.name, res)
	}
	return ClassifyStream(s.name, res)
}

// AllStream identifies the global stream spanning all named streams.
type AllStream struct{}

// All identifies the global stream.
func All() AllStream {
	return AllStream{}
}

// Target returns the reserved global stream name.
func (AllStream) Target() string {
	return AllTarget
}

func (AllStream) page(ctx context.Context, f Fetcher, _ Classifier, req PageRequest[Position]) (Slice[Position], error) {
	res, err := f.FetchAll(ctx, AllPageRequest{
		From:         req.From,
		Limit:        req.Limit,
		Direction:    req.Direction,
		ResolveLinks: req.ResolveLinks,
		Credentials:  req.Credentials,
	})
	if err != nil {
		return Slice[Position]{}, &ReadFailureError{Target: AllTarget, Message: err.Error(), cause: err}
	}
	return classifyAll(res)
}

var (
	_ Identity[EventNumber] = Stream{}
	_ Identity[Position]    = AllStream{}
)
