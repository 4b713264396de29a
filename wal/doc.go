// Package wal implements the durable, append-only write-ahead log: a
// length-prefixed, single-writer log file, a sequential reader that
// replays it in write order, and a random reader that fetches one record
// given the FileSegment a prior Write call returned.
//
// Wire format (bit-exact): a sequence of frames, each a 4-byte big-endian
// unsigned length prefix followed by exactly that many payload bytes. No
// header, no trailer, no checksum, no padding. There is no torn-write
// detection — a crash mid-append leaves a file whose last frame is
// incomplete, and SequentialReader surfaces that as ErrFrameTruncated
// rather than silently skipping it. Downstream integrity checking past
// that boundary is out of scope.
package wal
