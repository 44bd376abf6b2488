package natsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360/ledgerstream/errors"
	"github.com/c360/ledgerstream/lifecycle"
	"github.com/c360/ledgerstream/stream"
)

// Server subjects. Every operation is a JSON request/reply exchange on
// one of these.
const (
	SubjectReadStream = "ledger.read.stream"
	SubjectReadAll    = "ledger.read.all"
	SubjectAppend     = "ledger.append"
	SubjectDelete     = "ledger.delete"
	SubjectPing       = "ledger.ping"
)

// Wire result names. These match stream.BatchOutcome.String() so the
// reply's verdict maps straight onto the client-side taxonomy.
const (
	resultSuccess               = "success"
	resultNoStream              = "no-stream"
	resultNotModified           = "not-modified"
	resultStreamDeleted         = "stream-deleted"
	resultAccessDenied          = "access-denied"
	resultError                 = "error"
	resultWrongExpectedRevision = "wrong-expected-version"
)

// parseOutcome maps a wire result name to a batch outcome. Unknown
// names map to OutcomeError so new server verdicts degrade to generic
// read failures instead of being misread as success.
func parseOutcome(result string) stream.BatchOutcome {
	switch result {
	case resultSuccess:
		return stream.OutcomeSuccess
	case resultNoStream:
		return stream.OutcomeNoStream
	case resultNotModified:
		return stream.OutcomeNotModified
	case resultStreamDeleted:
		return stream.OutcomeStreamDeleted
	case resultAccessDenied:
		return stream.OutcomeAccessDenied
	default:
		return stream.OutcomeError
	}
}

type streamPageReply struct {
	Result  string                 `json:"result"`
	Message string                 `json:"message,omitempty"`
	Events  []stream.ResolvedEvent `json:"events,omitempty"`
	Next    stream.EventNumber     `json:"next,omitempty"`
	More    bool                   `json:"more,omitempty"`
}

type allPageReply struct {
	Result  string                 `json:"result"`
	Message string                 `json:"message,omitempty"`
	Events  []stream.ResolvedEvent `json:"events,omitempty"`
	Next    stream.Position        `json:"next,omitempty"`
	More    bool                   `json:"more,omitempty"`
}

type appendReply struct {
	Result       string             `json:"result"`
	Message      string             `json:"message,omitempty"`
	NextExpected stream.EventNumber `json:"next_expected,omitempty"`
	Position     stream.Position    `json:"position,omitempty"`
	Actual       stream.EventNumber `json:"actual,omitempty"`
}

type deleteReply struct {
	Result  string             `json:"result"`
	Message string             `json:"message,omitempty"`
	Actual  stream.EventNumber `json:"actual,omitempty"`
}

// request performs one JSON request/reply exchange. A closed client
// fails with the session-terminal error rather than a transient one:
// nothing sent after close can ever succeed.
func (c *Client) request(ctx context.Context, operation, subject string, payload, reply any) error {
	if c.closed.Load() || c.Status() == StatusClosed {
		return &lifecycle.TerminatedError{Reason: lifecycle.ReasonPublishAfterClose}
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()
	if conn == nil || !conn.IsConnected() {
		return errors.WrapTransient(ErrNotConnected, "Client", operation, "check connection")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return errors.WrapInvalid(err, "Client", operation, "encode request")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	msg, err := conn.RequestWithContext(ctx, subject, data)
	if c.metrics != nil {
		c.metrics.ObserveRequestDuration(operation, time.Since(start))
	}
	if err != nil {
		if c.closed.Load() {
			return &lifecycle.TerminatedError{Reason: lifecycle.ReasonPublishAfterClose}
		}
		return errors.WrapTransient(err, "Client", operation, "server round trip")
	}

	if err := json.Unmarshal(msg.Data, reply); err != nil {
		return errors.WrapInvalid(err, "Client", operation, "decode reply")
	}
	return nil
}

// FetchStream retrieves one raw page of a named stream.
func (c *Client) FetchStream(ctx context.Context, req stream.StreamPageRequest) (stream.BatchResult[stream.EventNumber], error) {
	var reply streamPageReply
	if err := c.request(ctx, "read_stream", SubjectReadStream, req, &reply); err != nil {
		return stream.BatchResult[stream.EventNumber]{}, err
	}

	return stream.BatchResult[stream.EventNumber]{
		Outcome: parseOutcome(reply.Result),
		Message: reply.Message,
		Slice: stream.Slice[stream.EventNumber]{
			Events: reply.Events,
			Next:   reply.Next,
			More:   reply.More,
		},
	}, nil
}

// FetchAll retrieves one raw page of the global stream.
func (c *Client) FetchAll(ctx context.Context, req stream.AllPageRequest) (stream.BatchResult[stream.Position], error) {
	var reply allPageReply
	if err := c.request(ctx, "read_all", SubjectReadAll, req, &reply); err != nil {
		return stream.BatchResult[stream.Position]{}, err
	}

	return stream.BatchResult[stream.Position]{
		Outcome: parseOutcome(reply.Result),
		Message: reply.Message,
		Slice: stream.Slice[stream.Position]{
			Events: reply.Events,
			Next:   reply.Next,
			More:   reply.More,
		},
	}, nil
}

// Append writes events to the tail of a named stream.
func (c *Client) Append(ctx context.Context, req stream.AppendRequest) (stream.AppendResult, error) {
	var reply appendReply
	if err := c.request(ctx, "append", SubjectAppend, req, &reply); err != nil {
		return stream.AppendResult{}, err
	}

	switch reply.Result {
	case resultSuccess:
		return stream.AppendResult{NextExpected: reply.NextExpected, Position: reply.Position}, nil
	case resultWrongExpectedRevision:
		return stream.AppendResult{}, &stream.WrongExpectedRevisionError{
			Stream:   req.Stream,
			Expected: req.Expected,
			Actual:   reply.Actual,
		}
	case resultStreamDeleted:
		return stream.AppendResult{}, &stream.StreamDeletedError{Stream: req.Stream}
	case resultAccessDenied:
		return stream.AppendResult{}, &stream.AccessDeniedError{Target: req.Stream}
	default:
		return stream.AppendResult{}, errors.Wrap(
			fmt.Errorf("server rejected append: %s", reply.Message),
			"Client", "Append", "append events")
	}
}

// Delete soft-deletes a named stream.
func (c *Client) Delete(ctx context.Context, req stream.DeleteRequest) error {
	var reply deleteReply
	if err := c.request(ctx, "delete", SubjectDelete, req, &reply); err != nil {
		return err
	}

	switch reply.Result {
	case resultSuccess:
		return nil
	case resultWrongExpectedRevision:
		return &stream.WrongExpectedRevisionError{
			Stream:   req.Stream,
			Expected: req.Expected,
			Actual:   reply.Actual,
		}
	case resultStreamDeleted:
		return &stream.StreamDeletedError{Stream: req.Stream}
	case resultAccessDenied:
		return &stream.AccessDeniedError{Target: req.Stream}
	default:
		return errors.Wrap(
			fmt.Errorf("server rejected delete: %s", reply.Message),
			"Client", "Delete", "delete stream")
	}
}

// Ping checks server liveness and returns the round trip time.
func (c *Client) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	var reply struct {
		Result string `json:"result"`
	}
	if err := c.request(ctx, "ping", SubjectPing, struct{}{}, &reply); err != nil {
		return 0, err
	}
	return time.Since(start), nil
}
