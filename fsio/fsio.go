// Package fsio provides the durable file-system primitives the WAL is built
// on: opening append/read streams on a (possibly clustered) file system,
// serializing namespace lookups, and flushing bytes to durable storage.
package fsio

import (
	"io"
	"os"
	"sync"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// ErrIOFailure is the cause of every file-system error this package
// returns: it is wrapped with the operation, the path where known, and the
// underlying error's text, so errors.Cause (and errors.Is) yield
// ErrIOFailure. The underlying error value itself is not kept in the
// chain, only its message.
var ErrIOFailure = errors.New("fsio: io failure")

// DurableFlusher is implemented by streams whose backing file system
// exposes a flush-to-durable-storage primitive (fsync or equivalent).
// DurableFlush checks for it with a type assertion on each call, not once
// at open time.
type DurableFlusher interface {
	Sync() error
}

// Stream is the minimal read/write/seek surface the WAL needs from an
// open file. It is satisfied by *os.File and by afero's in-memory file
// implementation, which is what lets WalWriter/WalReader run unmodified
// against a MemMapFs in tests.
type Stream interface {
	io.ReadWriteCloser
	io.Seeker
}

// FileSystem resolves paths to streams on top of a single afero.Fs.
//
// Namespace lookups (path -> handle resolution) are serialized by nsMu
// because the underlying client libraries for real clustered file systems
// (HDFS, GCS, ...) are commonly documented as unsafe for concurrent
// namespace operations; afero.OsFs itself does not need this, but the
// mutex keeps the contract uniform across backends.
type FileSystem struct {
	fs   afero.Fs
	nsMu sync.Mutex

	// AppendSupport mirrors the append_support configuration flag: when
	// true and the target file already exists, OpenAppend reopens it in
	// append mode instead of truncating a fresh file.
	AppendSupport bool
}

// New wraps an afero.Fs as a FileSystem. Pass afero.NewOsFs() for local
// disk, or afero.NewMemMapFs() for hermetic tests.
func New(fs afero.Fs, appendSupport bool) *FileSystem {
	return &FileSystem{fs: fs, AppendSupport: appendSupport}
}

// OpenAppend opens path for appending. If AppendSupport is enabled and the
// file already exists, writes land after the existing contents; otherwise
// a fresh file is created (truncating anything present), matching §4.1's
// contract precisely.
func (fsys *FileSystem) OpenAppend(path string) (Stream, error) {
	fsys.nsMu.Lock()
	defer fsys.nsMu.Unlock()

	exists, err := afero.Exists(fsys.fs, path)
	if err != nil {
		return nil, errors.Wrapf(ErrIOFailure, "stat %q: %v", path, err)
	}

	reopening := fsys.AppendSupport && exists

	flags := os.O_CREATE | os.O_TRUNC | os.O_WRONLY
	if reopening {
		flags = os.O_APPEND | os.O_WRONLY
	}

	f, err := fsys.fs.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, errors.Wrapf(ErrIOFailure, "open %q: %v", path, err)
	}

	if reopening {
		// O_APPEND guarantees writes land at end-of-file, but does not
		// itself move the handle's reported offset there: a caller
		// asking CurrentPosition right after open would otherwise see 0
		// instead of the file's actual length.
		if _, err := f.Seek(0, io.SeekEnd); err != nil {
			f.Close()
			return nil, errors.Wrapf(ErrIOFailure, "seek to end %q: %v", path, err)
		}
	}
	return f, nil
}

// Exists reports whether path is present on the file system.
func (fsys *FileSystem) Exists(path string) (bool, error) {
	fsys.nsMu.Lock()
	defer fsys.nsMu.Unlock()

	exists, err := afero.Exists(fsys.fs, path)
	if err != nil {
		return false, errors.Wrapf(ErrIOFailure, "stat %q: %v", path, err)
	}
	return exists, nil
}

// OpenRead opens path for sequential or random reads.
func (fsys *FileSystem) OpenRead(path string) (Stream, error) {
	fsys.nsMu.Lock()
	defer fsys.nsMu.Unlock()

	f, err := fsys.fs.Open(path)
	if err != nil {
		return nil, errors.Wrapf(ErrIOFailure, "open %q: %v", path, err)
	}
	return f, nil
}

// DurableFlush pushes buffered bytes to durable storage. A Stream that
// does not implement DurableFlusher is treated as always-durable (a
// no-op); the check is made on every call.
func DurableFlush(s Stream) error {
	flusher, ok := s.(DurableFlusher)
	if !ok {
		return nil
	}
	if err := flusher.Sync(); err != nil {
		return errors.Wrap(ErrIOFailure, err.Error())
	}
	return nil
}

// CurrentPosition reports the stream's current byte offset.
func CurrentPosition(s Stream) (int64, error) {
	pos, err := s.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, errors.Wrap(ErrIOFailure, err.Error())
	}
	return pos, nil
}
