package server

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"blockwal/wal"
)

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}

// fakeBackend is a configurable in-memory QueryBackend stand-in shared by
// this package's tests. Tests exercise the server's networking, framing,
// and command-dispatch concerns here — blockindex and wal have their own
// package tests for resolution/read correctness.
type fakeBackend struct {
	mu   sync.Mutex
	segs map[string][]wal.FileSegment
	data map[string][]byte
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		segs: make(map[string][]wal.FileSegment),
		data: make(map[string][]byte),
	}
}

func lookupKey(receiverID string, timestampMillis int64) string {
	return receiverID + "|" + strconv.FormatInt(timestampMillis, 10)
}

// put appends seg to whatever segments are already recorded for this
// receiver/timestamp, mirroring blockindex.Index's accumulate semantics
// for a block written as several records.
func (b *fakeBackend) put(receiverID string, timestampMillis int64, seg wal.FileSegment) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := lookupKey(receiverID, timestampMillis)
	b.segs[key] = append(b.segs[key], seg)
}

func (b *fakeBackend) putBytes(seg wal.FileSegment, payload []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.data[seg.Path] = payload
}

func (b *fakeBackend) Lookup(receiverID string, timestampMillis int64) ([]wal.FileSegment, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	segs, ok := b.segs[lookupKey(receiverID, timestampMillis)]
	return segs, ok
}

func (b *fakeBackend) ReadSegment(seg wal.FileSegment) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.data[seg.Path]
	if !ok {
		return nil, nil
	}
	end := seg.Offset + int64(seg.Length)
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return data[seg.Offset:end], nil
}
