package ledgerstream

import (
	"context"
	"iter"

	"github.com/c360/ledgerstream/stream"
)

// ReadThrough is the general read entry point: a lazy traversal of id
// from the given cursor, with a caller-supplied classifier for named
// streams. A nil classifier selects the default classification. Every
// page fetch acquires the transport through the publisher gate, so a
// traversal started before the session is available simply waits, and
// one that outlives the session fails with lifecycle.TerminatedError.
//
// This is a package-level function because Go methods cannot introduce
// type parameters; the Client methods below cover the common cases.
func ReadThrough[C stream.Cursor](
	ctx context.Context,
	c *Client,
	classifier stream.Classifier,
	direction stream.Direction,
	id stream.Identity[C],
	from C,
	opts ...ReadOption,
) iter.Seq2[stream.ResolvedEvent, error] {
	options := c.readOptionsFrom(opts)

	fetch := func(ctx context.Context, cursor C) (stream.Slice[C], error) {
		operator, err := c.orchestrator.AcquirePublisher(ctx)
		if err != nil {
			return stream.Slice[C]{}, err
		}

		slice, err := stream.FetchPage(ctx, operator, id, classifier, stream.PageRequest[C]{
			From:         cursor,
			Limit:        options.pageSize,
			Direction:    direction,
			ResolveLinks: options.resolveLinks,
			Credentials:  options.credentials,
		})
		if err != nil {
			return stream.Slice[C]{}, err
		}

		if c.metrics != nil {
			core := c.metrics.CoreMetrics()
			core.RecordPageFetched(id.Target(), direction.String())
			core.RecordEventsDelivered(id.Target(), len(slice.Events))
		}
		return slice, nil
	}

	return stream.Events(ctx, fetch, from)
}

// ReadStreamForward reads the named stream from the given event number
// toward the tail.
func (c *Client) ReadStreamForward(
	ctx context.Context, name string, from stream.EventNumber, opts ...ReadOption,
) iter.Seq2[stream.ResolvedEvent, error] {
	return ReadThrough(ctx, c, nil, stream.DirectionForward, stream.ByName(name), from, opts...)
}

// ReadStreamBackward reads the named stream from the given event
// number toward the start. Use stream.StreamEnd to start at the tail.
func (c *Client) ReadStreamBackward(
	ctx context.Context, name string, from stream.EventNumber, opts ...ReadOption,
) iter.Seq2[stream.ResolvedEvent, error] {
	return ReadThrough(ctx, c, nil, stream.DirectionBackward, stream.ByName(name), from, opts...)
}

// ReadAllForward reads the global stream from the given position
// toward the tail.
func (c *Client) ReadAllForward(
	ctx context.Context, from stream.Position, opts ...ReadOption,
) iter.Seq2[stream.ResolvedEvent, error] {
	return ReadThrough(ctx, c, nil, stream.DirectionForward, stream.All(), from, opts...)
}

// ReadAllBackward reads the global stream from the given position
// toward the start. Use stream.PositionEnd to start at the tail.
func (c *Client) ReadAllBackward(
	ctx context.Context, from stream.Position, opts ...ReadOption,
) iter.Seq2[stream.ResolvedEvent, error] {
	return ReadThrough(ctx, c, nil, stream.DirectionBackward, stream.All(), from, opts...)
}
