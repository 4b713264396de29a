// Package ingest implements the PollingIngestor: a pool of worker
// goroutines that repeatedly pull one EventBatch per iteration from a set
// of pooled connections and drive at-least-once delivery against an
// upstream store via explicit ack/nack.
package ingest

import "context"

// Event carries one unit of data from the remote source, body and
// headers preserved verbatim — this is the internal record shape the
// spec's §6 "Event -> Record conversion" describes.
type Event struct {
	Body    []byte
	Headers map[string]string
}

// EventBatch is either a list of Events with a SequenceNumber to be
// acked/nacked, or an error indication. Exactly one of the two is
// meaningful, selected by ErrorMessage == "".
type EventBatch struct {
	SequenceNumber string
	Events         []Event
	ErrorMessage   string
}

// IsError reports whether the source returned an error batch instead of
// events.
func (b EventBatch) IsError() bool {
	return b.ErrorMessage != ""
}

// Connection is an opaque handle to one remote source, borrowed from the
// pool for the duration of one worker iteration and returned
// unconditionally afterward.
type Connection interface {
	// Close releases the underlying transport. Called once, from Stop.
	Close() error
}

// Source is the Go-native realization of the remote event-source RPC
// boundary (spec §6): get one batch, then ack or nack the sequence number
// it carried. The concrete transport (gRPC, HTTP, ...) is outside this
// module's scope — Source is implemented against whatever transport the
// caller wires in.
type Source interface {
	// Dial opens one Connection to this source. Called once per
	// configured source at Start.
	Dial(ctx context.Context) (Connection, error)

	GetEventBatch(ctx context.Context, conn Connection, maxBatchSize int32) (EventBatch, error)
	Ack(ctx context.Context, conn Connection, sequenceNumber string) error
	Nack(ctx context.Context, conn Connection, sequenceNumber string) error
}

// StoreFunc is the upstream store callback events are handed to before
// being acked. Returning an error drives the nack path.
type StoreFunc func(ctx context.Context, records []Event) error
