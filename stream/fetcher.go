package stream

import (
	"context"
	"fmt"
)

// Direction selects the traversal order of a read.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionBackward
)

// String returns the wire name of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBackward:
		return "backward"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the direction by its wire name.
func (d Direction) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON decodes a wire direction name.
func (d *Direction) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"forward"`:
		*d = DirectionForward
	case `"backward"`:
		*d = DirectionBackward
	default:
		return fmt.Errorf("unknown direction %s", data)
	}
	return nil
}

// Credentials carry per-call overrides for server-side access checks.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// StreamPageRequest asks for one page of a named stream.
type StreamPageRequest struct {
	Stream       string       `json:"stream"`
	From         EventNumber  `json:"from"`
	Limit        int          `json:"limit"`
	Direction    Direction    `json:"direction"`
	ResolveLinks bool         `json:"resolve_links"`
	Credentials  *Credentials `json:"credentials,omitempty"`
}

// AllPageRequest asks for one page of the global stream.
type AllPageRequest struct {
	From         Position     `json:"from"`
	Limit        int          `json:"limit"`
	Direction    Direction    `json:"direction"`
	ResolveLinks bool         `json:"resolve_links"`
	Credentials  *Credentials `json:"credentials,omitempty"`
}

// Fetcher retrieves raw pages from the ledger. Implementations report
// server outcomes through the BatchResult and reserve the error return
// for transport failures.
type Fetcher interface {
	FetchStream(ctx context.Context, req StreamPageRequest) (BatchResult[EventNumber], error)
	FetchAll(ctx context.Context, req AllPageRequest) (BatchResult[Position], error)
}
