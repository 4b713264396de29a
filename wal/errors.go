package wal

import "github.com/pkg/errors"

var (
	// ErrLogClosed is returned when appending to a closed Writer.
	ErrLogClosed = errors.New("wal: log is closed")

	// ErrWorkerStuck protects against a wedged writer goroutine. This is
	// a safety guard, not a correctness mechanism — it bounds how long
	// Close will wait for the single writer goroutine to acknowledge.
	ErrWorkerStuck = errors.New("wal: writer goroutine stuck")

	// ErrFrameTruncated marks a frame that ended before its declared
	// length was fully read: the file was truncated mid-payload rather
	// than at a clean frame boundary. Per spec, this is a fatal read
	// error, distinct from a clean EOF between frames.
	ErrFrameTruncated = errors.New("wal: frame truncated")
)
