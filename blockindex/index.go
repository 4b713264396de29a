// Package blockindex maps a BlockID to the FileSegments holding its
// bytes in the write-ahead log, so a downstream reader can resolve "give
// me receiver R's block at time T" into one or more RandomReader.Read
// calls without scanning the log. A block is written as one WAL record
// per source record, so its segments accumulate one Put at a time, in
// write order.
package blockindex

import (
	"blockwal/block"
	"blockwal/wal"
)

// Index is the public interface exposed to the rest of the module.
type Index interface {
	// Put appends one more segment to whatever segments are already
	// recorded for id. PutIfAbsent should be used when the caller wants
	// to detect a block that has already been recorded at all (e.g. a
	// full duplicate redelivery); ordinary multi-record ingestion of one
	// block uses PutOverwrite for every segment it appends.
	Put(id block.BlockID, seg wal.FileSegment, mode PutMode) error
	Get(id block.BlockID) ([]wal.FileSegment, bool)

	// Iterate walks every live entry, in no particular order. Returning
	// false from fn stops the walk early.
	Iterate(fn func(id block.BlockID, segs []wal.FileSegment) bool)

	Close() error
}

// index is the core, non-concurrent map. It is never used bare outside
// this package — lockedIndex or shardedIndex always own it.
type index struct {
	data map[block.BlockID][]wal.FileSegment
}

func newIndex() *index {
	return &index{data: make(map[block.BlockID][]wal.FileSegment)}
}

func (i *index) Get(id block.BlockID) ([]wal.FileSegment, bool) {
	segs, ok := i.data[id]
	return segs, ok
}

func (i *index) Put(id block.BlockID, seg wal.FileSegment, mode PutMode) error {
	strategy, ok := putFactories[mode]
	if !ok {
		return ErrInvalidPutMode
	}
	return strategy(i, id, seg)
}

func (i *index) Close() error { return nil }

func (i *index) Iterate(fn func(id block.BlockID, segs []wal.FileSegment) bool) {
	for id, segs := range i.data {
		if !fn(id, segs) {
			break
		}
	}
}

func (i *index) get(id block.BlockID) ([]wal.FileSegment, bool) {
	segs, ok := i.data[id]
	return segs, ok
}

func (i *index) append(id block.BlockID, seg wal.FileSegment) {
	i.data[id] = append(i.data[id], seg)
}
