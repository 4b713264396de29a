package ingest

import "github.com/pkg/errors"

var (
	// ErrRemoteErrorBatch marks a batch the source returned with an
	// error message instead of events: logged and skipped, no ack, no
	// nack.
	ErrRemoteErrorBatch = errors.New("ingest: source returned an error batch")

	// ErrRemoteRPCFailure's text is the message a failed get or ack call
	// is wrapped with; the wrapped error's cause stays the original RPC
	// error, so errors.Is does not match this value. A failed nack is
	// logged, not wrapped.
	ErrRemoteRPCFailure = errors.New("ingest: remote rpc failed")
)
