package snapshot

import (
	"encoding/binary"
	"io"
)

// Item is one BlockID -> FileSegment assignment persisted in a snapshot.
// It intentionally does not depend on block.BlockID or wal.FileSegment so
// the on-disk format stays stable even if those types change shape.
type Item struct {
	ReceiverID      string
	TimestampMillis int64
	Path            string
	Offset          int64
	Length          int32
}

// Streamer pushes items one at a time; returning false from yield stops
// the stream early.
type Streamer func(yield func(Item) bool)

// Write serializes a stream of items as a sequence of fixed records:
//
//	[ReceiverIDLen:int32][ReceiverIDBytes][TimestampMillis:int64]
//	[PathLen:int32][PathBytes][Offset:int64][Length:int32]
func Write(w io.Writer, stream Streamer) error {
	var writeErr error

	write := func(v any) {
		if writeErr != nil {
			return
		}
		writeErr = binary.Write(w, binary.LittleEndian, v)
	}

	stream(func(item Item) bool {
		write(int32(len(item.ReceiverID)))
		if writeErr == nil {
			_, writeErr = w.Write([]byte(item.ReceiverID))
		}

		write(item.TimestampMillis)

		write(int32(len(item.Path)))
		if writeErr == nil {
			_, writeErr = w.Write([]byte(item.Path))
		}

		write(item.Offset)
		write(item.Length)

		return writeErr == nil
	})
	return writeErr
}

// Load reads records written by Write and calls set for each one. A clean
// EOF at a record boundary ends loading successfully; anything else,
// including a negative length prefix, is treated as a corrupt snapshot and
// aborts without applying the partial record.
func Load(r io.Reader, set func(Item)) error {
	for {
		var receiverIDLen int32
		if err := binary.Read(r, binary.LittleEndian, &receiverIDLen); err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
		if receiverIDLen < 0 {
			return io.ErrUnexpectedEOF
		}

		receiverIDBytes := make([]byte, receiverIDLen)
		if _, err := io.ReadFull(r, receiverIDBytes); err != nil {
			return err
		}

		var timestampMillis int64
		if err := binary.Read(r, binary.LittleEndian, &timestampMillis); err != nil {
			return err
		}

		var pathLen int32
		if err := binary.Read(r, binary.LittleEndian, &pathLen); err != nil {
			return err
		}
		if pathLen < 0 {
			return io.ErrUnexpectedEOF
		}

		pathBytes := make([]byte, pathLen)
		if _, err := io.ReadFull(r, pathBytes); err != nil {
			return err
		}

		var offset int64
		if err := binary.Read(r, binary.LittleEndian, &offset); err != nil {
			return err
		}

		var length int32
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return err
		}

		set(Item{
			ReceiverID:      string(receiverIDBytes),
			TimestampMillis: timestampMillis,
			Path:            string(pathBytes),
			Offset:          offset,
			Length:          length,
		})
	}
}
