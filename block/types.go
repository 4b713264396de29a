package block

// BlockID uniquely identifies one sealed block: the receiver that
// produced it and the millisecond timestamp of the interval it covers.
// Across blocks from one Generator, the timestamp is strictly monotonic —
// it is assigned by the timer-driven cut, never by wall-clock races
// between producers.
type BlockID struct {
	ReceiverID      string
	TimestampMillis int64
}

// Block is a time-bounded, ordered group of records sealed at cut time.
// Insertion order of Records equals producer append order, since a single
// mutex serializes every Append/AppendWithCallback call against one
// current buffer.
type Block struct {
	ID      BlockID
	Records [][]byte
}

// PendingCallback is invoked exactly once after the Listener's
// OnPushBlock for its associated block has returned. Multiple
// PendingCallbacks registered against the same block fire in the order
// they were registered.
type PendingCallback struct {
	Fn  func(arg any)
	Arg any
}

// Listener is the capability set a BlockGenerator's consumer implements.
// It is passed by value/interface, never held as a back-reference by the
// generator beyond its own lifetime: the generator owns the listener for
// the duration of Start/Stop, and the listener must not outlive it.
//
// A typical implementer serializes Records and persists the bytes via
// wal.Writer, then forwards (BlockID, FileSegment) to a downstream block
// store (see the blockindex package). Errors must be reported, not
// swallowed — a non-nil error returned from OnPushBlock ends the pusher
// goroutine, and the generator reports it (and any panic in the cut or
// push path) through OnError; the BlockGenerator does not self-restart.
type Listener interface {
	OnPushBlock(id BlockID, records [][]byte) error
	OnError(message string, err error)
}
