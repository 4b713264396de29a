package wal

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"blockwal/fsio"
)

// SequentialReader is a lazy, finite, single-pass iterator over a log
// file's frames, yielded in write order.
type SequentialReader struct {
	stream fsio.Stream
}

// NewSequentialReader opens path for a single forward pass.
func NewSequentialReader(fs *fsio.FileSystem, path string) (*SequentialReader, error) {
	stream, err := fs.OpenRead(path)
	if err != nil {
		return nil, err
	}
	return &SequentialReader{stream: stream}, nil
}

// Next returns the next record's payload, or io.EOF once the file is
// exhausted cleanly at a frame boundary. Any other truncation surfaces as
// ErrFrameTruncated; any other I/O failure propagates as a fatal error.
func (r *SequentialReader) Next() ([]byte, error) {
	var lenBuf [lengthPrefixSize]byte
	if _, err := io.ReadFull(r.stream, lenBuf[:]); err != nil {
		if errors.Is(err, io.EOF) {
			// Clean end: no bytes at all were read for this frame.
			return nil, io.EOF
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrap(ErrFrameTruncated, "length prefix")
		}
		return nil, errors.Wrap(err, "wal: read length prefix")
	}

	length := binary.BigEndian.Uint32(lenBuf[:])
	payload := make([]byte, length)
	if _, err := io.ReadFull(r.stream, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, errors.Wrap(ErrFrameTruncated, "payload")
		}
		return nil, errors.Wrap(err, "wal: read payload")
	}

	return payload, nil
}

// Close releases the underlying stream.
func (r *SequentialReader) Close() error {
	return r.stream.Close()
}

// Collect drains the reader into a slice of payloads, in write order. It
// exists for tests and small recovery logs; production replay paths should
// prefer Next in a loop to avoid buffering the whole file in memory.
func (r *SequentialReader) Collect() ([][]byte, error) {
	var out [][]byte
	for {
		payload, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, payload)
	}
}

// RandomReader reads a single record given its FileSegment.
type RandomReader struct {
	fs *fsio.FileSystem
}

// NewRandomReader constructs a RandomReader over the given file system.
func NewRandomReader(fs *fsio.FileSystem) *RandomReader {
	return &RandomReader{fs: fs}
}

// Read returns the exact bytes written for seg. Each call opens the file
// fresh: random reads are expected to be infrequent relative to sequential
// consumption, and this keeps RandomReader free of any shared, mutable
// file-handle state.
func (r *RandomReader) Read(seg FileSegment) ([]byte, error) {
	stream, err := r.fs.OpenRead(seg.Path)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if _, err := stream.Seek(seg.Offset+lengthPrefixSize, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "wal: seek to segment payload")
	}

	payload := make([]byte, seg.Length)
	if _, err := io.ReadFull(stream, payload); err != nil {
		return nil, errors.Wrap(ErrFrameTruncated, err.Error())
	}
	return payload, nil
}
