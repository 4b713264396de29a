package blockindex

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"

	"blockwal/block"
	"blockwal/fsio"
	"blockwal/wal"
)

// durableIndex decorates an Index with a small recovery log: every Put
// that succeeds against the underlying Index is first appended to a
// dedicated wal.Writer, so a restarted receiver can rebuild the index by
// replaying that log before accepting new blocks. This is the same
// write-ahead-before-memory decorator shape the teacher uses to make its
// key-value store durable, generalized from Entry records to BlockID ->
// FileSegment assignments.
//
// fs must have AppendSupport enabled: replay depends on the recovery log
// surviving across restarts rather than being truncated on reopen.
type durableIndex struct {
	index Index
	log   *wal.Writer
}

// NewDurableIndex opens path as a recovery log, replays every record
// found there into index, and returns an Index that keeps appending to
// the log as new blocks are recorded.
func NewDurableIndex(index Index, fs *fsio.FileSystem, path string) (Index, error) {
	if err := replay(index, fs, path); err != nil {
		return nil, err
	}

	logWriter, err := wal.NewWriter(fs, path)
	if err != nil {
		return nil, err
	}

	return &durableIndex{index: index, log: logWriter}, nil
}

func replay(index Index, fs *fsio.FileSystem, path string) error {
	exists, err := fs.Exists(path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	reader, err := wal.NewSequentialReader(fs, path)
	if err != nil {
		return err
	}
	defer reader.Close()

	records, err := reader.Collect()
	if err != nil {
		return err
	}

	for _, rec := range records {
		id, seg, err := decodeRecord(rec)
		if err != nil {
			return err
		}
		if err := index.Put(id, seg, PutOverwrite); err != nil {
			return err
		}
	}
	return nil
}

// Put appends the assignment to the recovery log before applying it in
// memory, mirroring the teacher's "disk before memory" ordering.
func (d *durableIndex) Put(id block.BlockID, seg wal.FileSegment, mode PutMode) error {
	if mode == PutIfAbsent {
		if _, exists := d.index.Get(id); exists {
			return ErrBlockExists
		}
	}

	if _, err := d.log.Write(encodeRecord(id, seg)); err != nil {
		return err
	}

	return d.index.Put(id, seg, PutOverwrite)
}

func (d *durableIndex) Get(id block.BlockID) ([]wal.FileSegment, bool) {
	return d.index.Get(id)
}

func (d *durableIndex) Iterate(fn func(id block.BlockID, segs []wal.FileSegment) bool) {
	d.index.Iterate(fn)
}

func (d *durableIndex) Close() error {
	return d.log.Close()
}

// encodeRecord/decodeRecord frame one BlockID -> FileSegment assignment
// as length-prefixed strings and fixed-width integers. This is an
// internal detail of the recovery log only; it is not the wire format
// consumers use to read block bytes, which stays wal.FileSegment.
func encodeRecord(id block.BlockID, seg wal.FileSegment) []byte {
	buf := make([]byte, 0, 2+len(id.ReceiverID)+8+2+len(seg.Path)+8+4)

	buf = appendString(buf, id.ReceiverID)
	buf = appendInt64(buf, id.TimestampMillis)
	buf = appendString(buf, seg.Path)
	buf = appendInt64(buf, seg.Offset)
	buf = appendInt32(buf, seg.Length)

	return buf
}

func decodeRecord(rec []byte) (block.BlockID, wal.FileSegment, error) {
	r := rec

	receiverID, rest, err := readString(r)
	if err != nil {
		return block.BlockID{}, wal.FileSegment{}, err
	}
	r = rest

	timestamp, rest, err := readInt64(r)
	if err != nil {
		return block.BlockID{}, wal.FileSegment{}, err
	}
	r = rest

	path, rest, err := readString(r)
	if err != nil {
		return block.BlockID{}, wal.FileSegment{}, err
	}
	r = rest

	offset, rest, err := readInt64(r)
	if err != nil {
		return block.BlockID{}, wal.FileSegment{}, err
	}
	r = rest

	length, _, err := readInt32(r)
	if err != nil {
		return block.BlockID{}, wal.FileSegment{}, err
	}

	return block.BlockID{ReceiverID: receiverID, TimestampMillis: timestamp},
		wal.FileSegment{Path: path, Offset: offset, Length: length},
		nil
}

var errShortRecord = errors.New("blockindex: recovery log record truncated")

func appendString(buf []byte, s string) []byte {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(s)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, s...)
}

func appendInt64(buf []byte, v int64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	return append(buf, b[:]...)
}

func appendInt32(buf []byte, v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return append(buf, b[:]...)
}

func readString(r []byte) (string, []byte, error) {
	if len(r) < 2 {
		return "", nil, errShortRecord
	}
	n := int(binary.BigEndian.Uint16(r[:2]))
	r = r[2:]
	if len(r) < n {
		return "", nil, errShortRecord
	}
	return string(r[:n]), r[n:], nil
}

func readInt64(r []byte) (int64, []byte, error) {
	if len(r) < 8 {
		return 0, nil, errShortRecord
	}
	return int64(binary.BigEndian.Uint64(r[:8])), r[8:], nil
}

func readInt32(r []byte) (int32, []byte, error) {
	if len(r) < 4 {
		return 0, nil, errShortRecord
	}
	return int32(binary.BigEndian.Uint32(r[:4])), r[4:], nil
}

var _ io.Closer = (*durableIndex)(nil)
