package wal

// FileSegment names exactly one record in exactly one log file: the file
// path, the absolute byte offset of the record's length prefix, and the
// payload length. It is immutable once issued by Writer.Write and is the
// sole key a downstream block store needs to recover the bytes later via
// RandomReader.
type FileSegment struct {
	Path   string
	Offset int64
	Length int32
}
