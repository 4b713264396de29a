package blockindex

import (
	"hash/fnv"
	"sync"

	"blockwal/block"
	"blockwal/wal"
)

// shardedIndex partitions BlockIDs across independent shards, keyed by
// ReceiverID, so concurrent ingestion from distinct receivers never
// contends on the same lock. A single receiver's blocks always land on
// the same shard, preserving Iterate's per-receiver ordering usefulness.
type shardedIndex struct {
	numShards int
	shards    []shard
}

type shard struct {
	mu    sync.RWMutex
	index *index
}

// NewShardedIndex creates an Index with the given number of shards.
func NewShardedIndex(numShards int) Index {
	shards := make([]shard, numShards)
	for i := range shards {
		shards[i] = shard{index: newIndex()}
	}
	return &shardedIndex{numShards: numShards, shards: shards}
}

func (s *shardedIndex) Get(id block.BlockID) ([]wal.FileSegment, bool) {
	sh := s.getShard(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.index.Get(id)
}

func (s *shardedIndex) Put(id block.BlockID, seg wal.FileSegment, mode PutMode) error {
	sh := s.getShard(id)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	return sh.index.Put(id, seg, mode)
}

func (s *shardedIndex) Close() error {
	return nil
}

func (s *shardedIndex) Iterate(fn func(id block.BlockID, segs []wal.FileSegment) bool) {
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		stop := false
		sh.index.Iterate(func(id block.BlockID, segs []wal.FileSegment) bool {
			if !fn(id, segs) {
				stop = true
				return false
			}
			return true
		})
		sh.mu.RUnlock()
		if stop {
			return
		}
	}
}

func (s *shardedIndex) getShard(id block.BlockID) *shard {
	return &s.shards[getShardIndex(id, s.numShards)]
}

// hashReceiver computes a stable FNV-1a hash of a BlockID's ReceiverID,
// the same algorithm the teacher uses for its key-based sharding,
// repurposed to shard by receiver instead of by key.
func hashReceiver(receiverID string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(receiverID))
	return h.Sum32()
}

func getShardIndex(id block.BlockID, numShards int) int {
	return int(hashReceiver(id.ReceiverID) % uint32(numShards))
}
