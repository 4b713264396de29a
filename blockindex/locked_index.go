package blockindex

import (
	"sync"

	"blockwal/block"
	"blockwal/wal"
)

// lockedIndex protects index with a single global RWMutex: the simplest
// correct concurrency model, suited to a single receiver process where
// contention is low.
type lockedIndex struct {
	mu    sync.RWMutex
	index *index
}

// NewLockedIndex creates an Index guarded by one global lock.
func NewLockedIndex() Index {
	return &lockedIndex{index: newIndex()}
}

func (s *lockedIndex) Get(id block.BlockID) ([]wal.FileSegment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Get(id)
}

func (s *lockedIndex) Put(id block.BlockID, seg wal.FileSegment, mode PutMode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Put(id, seg, mode)
}

func (s *lockedIndex) Close() error {
	return s.index.Close()
}

func (s *lockedIndex) Iterate(fn func(id block.BlockID, segs []wal.FileSegment) bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.index.Iterate(fn)
}
