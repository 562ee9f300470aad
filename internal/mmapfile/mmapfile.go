// Package mmapfile implements the mapped-file abstraction (C1): a
// read-only or growable-append random-access view over a file, backed by
// a POSIX shared mmap. Grounded on github.com/sirgallo/mari's Mari
// (atomic.Value-held MMap, isResizing flag, doubling resizeMmap) and
// original_source/include/astrolib/io/mmap_file.hpp /
// posix_mmap_file.cpp for the open/truncate/map/remap sequence.
package mmapfile

import (
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/leapus/mapindexer/internal/ierr"
)

// File is a memory-mapped random-access file. Non-copyable (copying a
// mapping would desync two File values racing on the same fd); safe for
// concurrent Read/ReadMut/Readahead from many goroutines while a single
// writer Grows it, per the source's single-writer/many-reader model.
type File struct {
	path     string
	file     *os.File
	writable bool

	data atomic.Value // holds []byte
	size atomic.Int64

	// growMu serializes Grow so that it is linearizable: the source's
	// -1-sentinel exchange on a size_t is replaced here, per spec §9,
	// with a plain mutex.
	growMu sync.Mutex
}

// Open maps the file at path. A read-only file maps exactly its on-disk
// size. A writable file maps max(mappingSize, on-disk size) bytes;
// mappingSize of 0 means "just the current on-disk size". The file is
// created if it does not exist and writable is true.
func Open(path string, writable bool, mappingSize int64) (*File, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR | os.O_CREATE
	}

	f, err := os.OpenFile(path, flags, 0644)
	if err != nil {
		return nil, ierr.NewIoError("open", path, err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ierr.NewIoError("stat", path, err)
	}
	onDisk := stat.Size()

	mf := &File{path: path, file: f, writable: writable}

	target := onDisk
	if writable && mappingSize > target {
		target = mappingSize
	}

	if writable && target > onDisk {
		if err := f.Truncate(target); err != nil {
			f.Close()
			return nil, ierr.NewIoError("truncate", path, err)
		}
	}

	if target == 0 {
		// mmap() rejects a zero-length mapping; an empty file maps to an
		// empty, harmless byte slice instead of touching the kernel.
		mf.data.Store([]byte{})
		mf.size.Store(0)
		return mf, nil
	}

	data, err := mmapRegion(f, target, writable)
	if err != nil {
		f.Close()
		return nil, ierr.NewIoError("mmap", path, err)
	}

	mf.data.Store(data)
	mf.size.Store(onDisk)
	return mf, nil
}

func protFor(writable bool) int {
	if writable {
		return unix.PROT_READ | unix.PROT_WRITE
	}
	return unix.PROT_READ
}

func mmapRegion(f *os.File, size int64, writable bool) ([]byte, error) {
	return unix.Mmap(int(f.Fd()), 0, int(size), protFor(writable), unix.MAP_SHARED)
}

// Size returns the current logical file size (the high-water mark of
// written data, not the mapped region's capacity).
func (mf *File) Size() int64 { return mf.size.Load() }

// mapped returns the current backing slice, whatever its capacity.
func (mf *File) mapped() []byte {
	v := mf.data.Load()
	if v == nil {
		return nil
	}
	return v.([]byte)
}

// Read returns a shared view into [pos, pos+size) without growing the
// file. Returns RangeError if the region falls outside the current size,
// or if size is zero (the source's is_in_range wraps on size==0; this
// rejects it explicitly per spec §9 instead).
func (mf *File) Read(pos, size int64) ([]byte, error) {
	if size <= 0 || pos < 0 {
		return nil, &ierr.RangeError{Pos: pos, Size: size, Limit: mf.Size()}
	}

	curSize := mf.Size()
	if pos+size > curSize {
		return nil, &ierr.RangeError{Pos: pos, Size: size, Limit: curSize}
	}

	data := mf.mapped()
	if pos+size > int64(len(data)) {
		return nil, &ierr.RangeError{Pos: pos, Size: size, Limit: int64(len(data))}
	}

	return data[pos : pos+size], nil
}

// ReadMut returns a mutable, growable view into [pos, pos+size), growing
// the file (and remapping if necessary) when the request exceeds the
// current size.
func (mf *File) ReadMut(pos, size int64) ([]byte, error) {
	if !mf.writable {
		return nil, ierr.NewIoError("read_mut", mf.path, os.ErrPermission)
	}
	if size <= 0 || pos < 0 {
		return nil, &ierr.RangeError{Pos: pos, Size: size, Limit: mf.Size()}
	}

	need := pos + size
	if need > mf.Size() {
		if _, err := mf.growTo(need); err != nil {
			return nil, err
		}
	}

	data := mf.mapped()
	return data[pos : pos+size], nil
}

// Grow reserves delta bytes at the end of the file and returns the
// previous size. Serialized so that concurrent growers never interleave
// (linearizable), per spec §4.1.
func (mf *File) Grow(delta int64) (int64, error) {
	if delta < 0 {
		return 0, ierr.NewIoError("grow", mf.path, os.ErrInvalid)
	}

	mf.growMu.Lock()
	defer mf.growMu.Unlock()

	old := mf.size.Load()
	return mf.growToLocked(old + delta)
}

// growTo grows the file so that its logical size is at least want,
// acquiring growMu itself.
func (mf *File) growTo(want int64) (int64, error) {
	mf.growMu.Lock()
	defer mf.growMu.Unlock()

	return mf.growToLocked(want)
}

// growToLocked performs the actual truncate/remap/publish sequence.
// Caller must hold growMu.
func (mf *File) growToLocked(want int64) (int64, error) {
	old := mf.size.Load()
	if want <= old {
		return old, nil
	}

	mappedLen := int64(len(mf.mapped()))
	if want > mappedLen {
		newMappingSize := nextMappingSize(mappedLen, want)

		if err := mf.file.Truncate(want); err != nil {
			return old, ierr.NewIoError("truncate", mf.path, err)
		}

		if mappedLen > 0 {
			if err := unix.Munmap(mf.mapped()); err != nil {
				return old, ierr.NewIoError("munmap", mf.path, err)
			}
		}

		data, err := mmapRegion(mf.file, newMappingSize, mf.writable)
		if err != nil {
			return old, ierr.NewIoError("mmap", mf.path, err)
		}
		mf.data.Store(data)
	} else if err := mf.file.Truncate(want); err != nil {
		return old, ierr.NewIoError("truncate", mf.path, err)
	}

	mf.size.Store(want)
	return old, nil
}

// nextMappingSize doubles the mapped region (starting from a 64MiB floor)
// until it covers want, mirroring mari's resizeMmap doubling strategy
// rather than mapping exactly what was requested on every grow.
func nextMappingSize(current, want int64) int64 {
	const floor = 64 * 1024 * 1024
	next := current
	if next < floor {
		next = floor
	}
	for next < want {
		next *= 2
	}
	return next
}

// Readahead hints the kernel to prefetch [pos, pos+size), rounded outward
// to page boundaries. Best-effort: a failure is swallowed and reported as
// false, since the spec allows this to be a no-op.
func (mf *File) Readahead(pos, size int64) bool {
	data := mf.mapped()
	if len(data) == 0 {
		return false
	}

	pageSize := int64(os.Getpagesize())
	start := pos &^ (pageSize - 1)
	end := pos + size
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	if start >= end {
		return false
	}

	return unix.Madvise(data[start:end], unix.MADV_WILLNEED) == nil
}

// Close unmaps and closes the underlying file descriptor. Safe to call
// once; the destructor-equivalent idiom in Go is an explicit Close call
// from the owner (there is no non-copyable-but-movable trick needed since
// Go passes File by pointer).
func (mf *File) Close() error {
	data := mf.mapped()
	if len(data) > 0 {
		if err := unix.Munmap(data); err != nil {
			return ierr.NewIoError("munmap", mf.path, err)
		}
		mf.data.Store([]byte{})
	}
	return mf.file.Close()
}

// Sync flushes the mapping to disk.
func (mf *File) Sync() error {
	if err := mf.file.Sync(); err != nil {
		return ierr.NewIoError("sync", mf.path, err)
	}
	return nil
}

// Path returns the path the file was opened from.
func (mf *File) Path() string { return mf.path }
