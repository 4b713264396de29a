package ingest

import (
	"context"

	"github.com/pkg/errors"
)

// outcomeKind is the explicit result-variant replacing the source's
// exception-driven ack/nack flow control (spec §9's redesign note):
//
//	Outcome = Ok | ErrorBatch | Interrupted | RPCFailed(cause) | Fatal(cause)
type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeErrorBatch
	outcomeInterrupted
	outcomeRPCFailed
	outcomeFatal
)

// FatalError marks a failure a Source implementation considers
// unrecoverable for the worker goroutine that hit it. Wrap the
// underlying cause: ingest classifies it by unwrapping with
// errors.As, logs it, and ends that one worker — other workers are
// unaffected (spec §7: per-iteration isolation).
type FatalError struct {
	Cause error
}

func (e *FatalError) Error() string { return "ingest: fatal: " + e.Cause.Error() }
func (e *FatalError) Unwrap() error { return e.Cause }

// classify inspects err's root cause to choose the Outcome branch a
// worker iteration takes, mirroring the source's root-cause-unwrapping
// exception handling with a straight match instead.
func classify(ctx context.Context, err error) outcomeKind {
	cause := errors.Cause(err)

	if errors.Is(cause, context.Canceled) || errors.Is(ctx.Err(), context.Canceled) {
		return outcomeInterrupted
	}

	var fatal *FatalError
	if errors.As(cause, &fatal) {
		return outcomeFatal
	}

	return outcomeRPCFailed
}
