package stream

import (
	"context"
	"iter"
)

// DefaultPageSize is the page size a traversal uses when the caller
// does not set one.
const DefaultPageSize = 500

// FetchFunc retrieves the page starting at cursor. The engine calls it
// once per page and never has more than one call outstanding.
type FetchFunc[C Cursor] func(ctx context.Context, cursor C) (Slice[C], error)

// Events lazily traverses the ledger from start, fetching pages on
// demand and yielding their events in order. The sequence ends when a
// page reports no continuation; a fetch or classification failure
// yields the error as the final element. Breaking out of the range
// stops the traversal without another fetch.
func Events[C Cursor](ctx context.Context, fetch FetchFunc[C], start C) iter.Seq2[ResolvedEvent, error] {
	return func(yield func(ResolvedEvent, error) bool) {
		cursor := start
		for {
			slice, err := fetch(ctx, cursor)
			if err != nil {
				yield(ResolvedEvent{}, err)
				return
			}
			for _, event := range slice.Events {
				if !yield(event, nil) {
					return
				}
			}
			if !slice.More {
				return
			}
			cursor = slice.Next
		}
	}
}

// Must converts a fallible traversal into a plain event sequence,
// panicking if the traversal fails. Intended for tooling and tests
// where a read failure is unrecoverable anyway.
func Must(events iter.Seq2[ResolvedEvent, error]) iter.Seq[ResolvedEvent] {
	return func(yield func(ResolvedEvent) bool) {
		for event, err := range events {
			if err != nil {
				panic(err)
			}
			if !yield(event) {
				return
			}
		}
	}
}

// Collect drains a traversal into a slice, returning the events read
// so far alongside the first error.
func Collect(events iter.Seq2[ResolvedEvent, error]) ([]ResolvedEvent, error) {
	var out []ResolvedEvent
	for event, err := range events {
		if err != nil {
			return out, err
		}
		out = append(out, event)
	}
	return out, nil
}
