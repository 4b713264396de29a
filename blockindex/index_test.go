package blockindex

import (
	"testing"

	"github.com/spf13/afero"

	"blockwal/block"
	"blockwal/fsio"
	"blockwal/wal"
)

func TestLockedIndexPutGet(t *testing.T) {
	idx := NewLockedIndex()
	id := block.BlockID{ReceiverID: "r1", TimestampMillis: 1000}
	seg := wal.FileSegment{Path: "log-0", Offset: 0, Length: 10}

	if err := idx.Put(id, seg, PutOverwrite); err != nil {
		t.Fatal(err)
	}
	got, ok := idx.Get(id)
	if !ok || len(got) != 1 || got[0] != seg {
		t.Fatalf("Get = %+v, %v; want [%+v], true", got, ok, seg)
	}
}

func TestLockedIndexPutAccumulatesSegmentsForSameBlock(t *testing.T) {
	idx := NewLockedIndex()
	id := block.BlockID{ReceiverID: "r1", TimestampMillis: 1000}
	seg1 := wal.FileSegment{Path: "log-0", Offset: 0, Length: 8}
	seg2 := wal.FileSegment{Path: "log-0", Offset: 8, Length: 16}

	if err := idx.Put(id, seg1, PutOverwrite); err != nil {
		t.Fatal(err)
	}
	if err := idx.Put(id, seg2, PutOverwrite); err != nil {
		t.Fatal(err)
	}

	got, ok := idx.Get(id)
	if !ok {
		t.Fatal("Get = not found, want found")
	}
	want := []wal.FileSegment{seg1, seg2}
	if len(got) != len(want) {
		t.Fatalf("Get = %+v, want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Get = %+v, want %+v", got, want)
		}
	}
}

func TestPutIfAbsentRejectsDuplicate(t *testing.T) {
	idx := NewLockedIndex()
	id := block.BlockID{ReceiverID: "r1", TimestampMillis: 1000}
	seg := wal.FileSegment{Path: "log-0", Offset: 0, Length: 10}

	if err := idx.Put(id, seg, PutIfAbsent); err != nil {
		t.Fatal(err)
	}
	if err := idx.Put(id, seg, PutIfAbsent); err != ErrBlockExists {
		t.Fatalf("second Put = %v, want ErrBlockExists", err)
	}
}

func TestShardedIndexDistributesByReceiver(t *testing.T) {
	idx := NewShardedIndex(4)
	for i := 0; i < 100; i++ {
		id := block.BlockID{ReceiverID: "receiver", TimestampMillis: int64(i)}
		seg := wal.FileSegment{Path: "log", Offset: int64(i), Length: 1}
		if err := idx.Put(id, seg, PutOverwrite); err != nil {
			t.Fatal(err)
		}
	}
	count := 0
	idx.Iterate(func(id block.BlockID, segs []wal.FileSegment) bool {
		count++
		return true
	})
	if count != 100 {
		t.Fatalf("iterated %d entries, want 100", count)
	}
	sh := idx.(*shardedIndex).getShard(block.BlockID{ReceiverID: "receiver"})
	if got := len(sh.index.data); got != 100 {
		t.Fatalf("receiver's shard holds %d entries, want all 100", got)
	}
}

func TestDurableIndexReplaysAfterRestart(t *testing.T) {
	memFs := afero.NewMemMapFs()
	fs := fsio.New(memFs, true)

	idx, err := NewDurableIndex(NewLockedIndex(), fs, "index.log")
	if err != nil {
		t.Fatal(err)
	}

	ids := []block.BlockID{
		{ReceiverID: "r1", TimestampMillis: 1000},
		{ReceiverID: "r1", TimestampMillis: 1200},
		{ReceiverID: "r2", TimestampMillis: 1000},
	}
	for i, id := range ids {
		seg := wal.FileSegment{Path: "log-0", Offset: int64(i * 10), Length: 8}
		if err := idx.Put(id, seg, PutIfAbsent); err != nil {
			t.Fatal(err)
		}
	}
	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}

	// Reopen against the same backing file system: replay should recover
	// every assignment without the caller redoing any Puts.
	restarted, err := NewDurableIndex(NewLockedIndex(), fs, "index.log")
	if err != nil {
		t.Fatal(err)
	}
	defer restarted.Close()

	for i, id := range ids {
		want := wal.FileSegment{Path: "log-0", Offset: int64(i * 10), Length: 8}
		got, ok := restarted.Get(id)
		if !ok || len(got) != 1 || got[0] != want {
			t.Fatalf("after restart, Get(%+v) = %+v, %v; want [%+v], true", id, got, ok, want)
		}
	}
}
