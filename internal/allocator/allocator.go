// Package allocator implements the typed bump allocator (C2): it grows a
// writable mmapfile.File on demand and hands back aligned offsets for
// placing fixed- or variable-size records. Deallocation is a deliberate
// no-op; the allocator models an append-only arena.
//
// Grounded on github.com/sirgallo/mari's Grow-then-place pattern in
// initRoot/writeNodesToMemMap, generalized per
// original_source/include/astrolib/io/mmap_file.hpp's mmap_allocator<T>.
package allocator

import (
	"unsafe"

	"github.com/leapus/mapindexer/internal/mmapfile"
)

// Alloc is a typed bump allocator bound to a single backing file. It is
// rebindable across element types while sharing the underlying file, the
// same way the source's mmap_allocator<T> rebinds via its template
// parameter — here expressed with Go generics on the method, not the
// type, so one Alloc value serves every record kind used by the quadtree
// builder (squares and entries).
type Alloc struct {
	file *mmapfile.File
}

// New binds an allocator to a writable mapped file.
func New(file *mmapfile.File) *Alloc {
	return &Alloc{file: file}
}

// Reserve grows the backing file by enough bytes to place n elements of
// size elemSize with alignment elemAlign, and returns the aligned start
// offset and the exact byte region to write into. Byte layout (not Go
// struct layout) is the caller's concern — the quadtree builder
// serializes its own records into the returned region.
func (a *Alloc) Reserve(n int, elemSize, elemAlign uintptr) (offset uint64, region []byte, err error) {
	chunkSize := int64(uintptr(n)*elemSize) + int64(elemAlign)

	pos, err := a.file.Grow(chunkSize)
	if err != nil {
		return 0, nil, err
	}

	raw, err := a.file.ReadMut(pos, chunkSize)
	if err != nil {
		return 0, nil, err
	}

	aligned := alignUp(uint64(pos), uint64(elemAlign))
	skip := aligned - uint64(pos)

	return aligned, raw[skip : skip+uint64(uintptr(n)*elemSize)], nil
}

// ReserveFor is a convenience wrapper that derives size and alignment from
// a zero-valued T via unsafe.Sizeof/unsafe.Alignof, matching the source's
// sizeof(T)/alignof(T) usage.
func ReserveFor[T any](a *Alloc, n int) (offset uint64, region []byte, err error) {
	var zero T
	return a.Reserve(n, unsafe.Sizeof(zero), unsafe.Alignof(zero))
}

// MaxSize reports the current file size divided by the element stride
// (floor), minus alignment slack, matching the source's max_size().
func (a *Alloc) MaxSize(elemSize, elemAlign uintptr) uint64 {
	sz := uint64(a.file.Size())
	if sz < uint64(elemSize)+uint64(elemAlign) {
		return 0
	}
	return (sz - uint64(elemAlign)) / uint64(elemSize)
}

// File exposes the backing mapped file for read-back.
func (a *Alloc) File() *mmapfile.File { return a.file }

func alignUp(v, align uint64) uint64 {
	if align <= 1 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}
