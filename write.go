package ledgerstream

import (
	"context"

	"github.com/c360/ledgerstream/stream"
)

// AppendToStream appends events to the tail of the named stream,
// creating it when expected permits. The transport is acquired through
// the publisher gate per call, the same as reads.
func (c *Client) AppendToStream(
	ctx context.Context,
	name string,
	expected stream.ExpectedRevision,
	events []stream.EventData,
	opts ...ReadOption,
) (stream.AppendResult, error) {
	options := c.readOptionsFrom(opts)

	operator, err := c.orchestrator.AcquirePublisher(ctx)
	if err != nil {
		return stream.AppendResult{}, err
	}

	return operator.Append(ctx, stream.AppendRequest{
		Stream:      name,
		Expected:    expected,
		Events:      events,
		Credentials: options.credentials,
	})
}

// DeleteStream soft-deletes the named stream. Subsequent reads of it
// classify as stream-deleted.
func (c *Client) DeleteStream(
	ctx context.Context,
	name string,
	expected stream.ExpectedRevision,
	opts ...ReadOption,
) error {
	options := c.readOptionsFrom(opts)

	operator, err := c.orchestrator.AcquirePublisher(ctx)
	if err != nil {
		return err
	}

	return operator.Delete(ctx, stream.DeleteRequest{
		Stream:      name,
		Expected:    expected,
		Credentials: options.credentials,
	})
}
