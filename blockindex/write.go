package blockindex

import (
	"errors"

	"blockwal/block"
	"blockwal/wal"
)

var (
	ErrBlockExists    = errors.New("blockindex: block already recorded")
	ErrInvalidPutMode = errors.New("blockindex: invalid put mode")
)

// PutMode selects the write semantics for Index.Put.
type PutMode int

const (
	PutOverwrite PutMode = iota // always append, regardless of prior segments
	PutIfAbsent                 // append only if this block has never been seen
)

// writeContext is the minimal capability a put strategy needs, mirroring
// the teacher's write-strategy pattern without leaking the map itself.
type writeContext interface {
	get(id block.BlockID) ([]wal.FileSegment, bool)
	append(id block.BlockID, seg wal.FileSegment)
}

type putFunc func(wctx writeContext, id block.BlockID, seg wal.FileSegment) error

var putFactories = map[PutMode]putFunc{
	PutOverwrite: overwriteStrategy,
	PutIfAbsent:  absentStrategy,
}

func overwriteStrategy(wctx writeContext, id block.BlockID, seg wal.FileSegment) error {
	wctx.append(id, seg)
	return nil
}

func absentStrategy(wctx writeContext, id block.BlockID, seg wal.FileSegment) error {
	if _, ok := wctx.get(id); ok {
		return ErrBlockExists
	}
	wctx.append(id, seg)
	return nil
}
