package server

import (
	"blockwal/block"
	"blockwal/blockindex"
	"blockwal/wal"
)

// QueryBackend answers the two query-protocol operations: resolving a
// block to its FileSegments, and reading a FileSegment's raw bytes.
type QueryBackend interface {
	Lookup(receiverID string, timestampMillis int64) ([]wal.FileSegment, bool)
	ReadSegment(seg wal.FileSegment) ([]byte, error)
}

// indexBackend is the production QueryBackend: a blockindex.Index for
// resolution, a wal.RandomReader for the actual bytes.
type indexBackend struct {
	index  blockindex.Index
	reader *wal.RandomReader
}

// NewIndexBackend builds a QueryBackend over index and reader.
func NewIndexBackend(index blockindex.Index, reader *wal.RandomReader) QueryBackend {
	return &indexBackend{index: index, reader: reader}
}

func (b *indexBackend) Lookup(receiverID string, timestampMillis int64) ([]wal.FileSegment, bool) {
	return b.index.Get(block.BlockID{ReceiverID: receiverID, TimestampMillis: timestampMillis})
}

func (b *indexBackend) ReadSegment(seg wal.FileSegment) ([]byte, error) {
	return b.reader.Read(seg)
}
