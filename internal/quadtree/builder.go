// Package quadtree (continued): Builder is the concurrent writer side of
// the Quadtree Builder (C9). Grounded on
// original_source/include/astrolib/index.hpp's WRQuadtreeIndex skeleton
// (quadrasect-on-overflow, geometric-center boundary placement) and on
// github.com/sirgallo/mari's per-operation node locking discipline
// (Operation.go acquires a node's lock, mutates, releases), adapted here
// to a fixed per-square stripe instead of mari's whole-tree versioned
// copy-on-write, since the index only ever grows (no compaction, no
// history) per spec §3 Non-goals.
package quadtree

import (
	"fmt"
	"sync"

	"github.com/leapus/mapindexer/internal/allocator"
	"github.com/leapus/mapindexer/internal/ierr"
	"github.com/leapus/mapindexer/internal/mmapfile"
	"github.com/leapus/mapindexer/internal/relptr"
)

const defaultNodeMaxItems = 64

// Builder inserts index entries into a persistent quadtree stored in a
// growable mapped file. Safe for concurrent Insert calls: each square is
// guarded by its own mutex, taken from a table keyed by the square's file
// offset, the same stripe-per-node idea github.com/sirgallo/mari applies
// per-node via its version chain, narrowed here to a single lock per
// square since there is no multi-version history to protect.
//
// Every method re-reads the backing byte region immediately before using
// it rather than caching a slice across a call that might grow the file:
// mmapfile.File.Grow may munmap-and-remap, which would silently
// invalidate a held slice. This mirrors the source's single growMu-gated
// resize, under which a resize is assumed not to race an in-flight
// record read (bulk index construction grows the file in large, widely
// spaced strides, not on every insert).
type Builder struct {
	alloc        *allocator.Alloc
	nodeMaxItems int

	locks sync.Map // uint64 offset -> *sync.Mutex
}

// Open creates or reopens a quadtree index file. bounds is the root
// square's extent, consulted only when the file is newly created.
// nodeMaxItems <= 0 uses defaultNodeMaxItems.
func Open(path string, mappingSize int64, bounds Box, nodeMaxItems int) (*Builder, error) {
	if nodeMaxItems <= 0 {
		nodeMaxItems = defaultNodeMaxItems
	}

	file, err := mmapfile.Open(path, true, mappingSize)
	if err != nil {
		return nil, err
	}

	b := &Builder{alloc: allocator.New(file)}

	if file.Size() == 0 {
		if err := b.initialize(bounds, nodeMaxItems); err != nil {
			return nil, err
		}
		return b, nil
	}

	meta, err := file.Read(0, metaSize)
	if err != nil {
		return nil, err
	}
	if getU64(meta, metaMagicOff) != metaMagic {
		return nil, ierr.NewIoError("open", path, fmt.Errorf("not a quadtree index file"))
	}
	b.nodeMaxItems = int(getU64(meta, metaNodeMaxItemsOff))

	return b, nil
}

func (b *Builder) initialize(bounds Box, nodeMaxItems int) error {
	if _, _, err := b.alloc.Reserve(1, metaSize, 8); err != nil {
		return err
	}

	rootOffset, region, err := b.alloc.Reserve(1, squareSize, 8)
	if err != nil {
		return err
	}
	encodeSquare(region, rootOffset, bounds)

	meta, err := b.alloc.File().ReadMut(0, metaSize)
	if err != nil {
		return err
	}
	putU64(meta, metaMagicOff, metaMagic)
	putU64(meta, metaNodeMaxItemsOff, uint64(nodeMaxItems))
	putU64(meta, metaRootOffsetOff, rootOffset)
	putU64(meta, metaReservedOff, 0)

	b.nodeMaxItems = nodeMaxItems
	return nil
}

func (b *Builder) rootOffset() (uint64, error) {
	meta, err := b.alloc.File().Read(0, metaSize)
	if err != nil {
		return 0, err
	}
	return getU64(meta, metaRootOffsetOff), nil
}

func (b *Builder) lockFor(offset uint64) *sync.Mutex {
	v, _ := b.locks.LoadOrStore(offset, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// Insert places e into the tree, descending from the root and
// quadrasecting any leaf that would overflow past nodeMaxItems (I3).
func (b *Builder) Insert(e IndexEntry) error {
	offset, err := b.rootOffset()
	if err != nil {
		return err
	}

	for {
		done, next, err := b.tryInsertAt(offset, e)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		offset = next
	}
}

// tryInsertAt attempts to place e into the square at offset. If the
// square is a branch, it returns the child offset to retry at. If it is
// a leaf that must split, it quadrasects (publishing the branch
// transition) and returns the same offset for the caller to retry,
// this time finding a branch.
func (b *Builder) tryInsertAt(offset uint64, e IndexEntry) (done bool, retryOffset uint64, err error) {
	lock := b.lockFor(offset)
	lock.Lock()
	defer lock.Unlock()

	region, err := b.alloc.File().ReadMut(int64(offset), squareSize)
	if err != nil {
		return false, 0, err
	}

	if atomicLoadU64(region, sqBranchOff) != 0 {
		bounds := decodeBox(region, sqSWLatOff, sqSWLonOff, sqNELatOff, sqNELonOff)
		child := b.childOffset(region, offset, QuadrantOf(bounds, e.Bounds.Center()))
		return false, child, nil
	}

	count := getU64(region, sqCountOff)
	if int(count) >= b.nodeMaxItems {
		if err := b.quadrasect(offset, region); err != nil {
			return false, 0, err
		}
		return false, offset, nil
	}

	if err := b.appendEntry(offset, region, e); err != nil {
		return false, 0, err
	}
	return true, 0, nil
}

func quadrantOffset(q Quadrant) int {
	switch q {
	case NW:
		return sqNWOff
	case NE:
		return sqNEOff
	case SW:
		return sqSWOff
	default:
		return sqSEOff
	}
}

func (b *Builder) childOffset(region []byte, squareOffset uint64, q Quadrant) uint64 {
	off := quadrantOffset(q)
	ptr := getPtr(region, off)
	return ptr.Target(squareOffset + uint64(off))
}

// appendEntry allocates a new entry record and links it at the head of
// square's chain, then bumps the square's count. Caller holds square's
// lock.
func (b *Builder) appendEntry(squareOffset uint64, squareRegion []byte, e IndexEntry) error {
	entryOffset, entryRegion, err := b.alloc.Reserve(1, entrySize, 8)
	if err != nil {
		return err
	}

	// squareRegion may be stale if Reserve above triggered a grow/remap;
	// re-fetch before writing into it.
	squareRegion, err = b.alloc.File().ReadMut(int64(squareOffset), squareSize)
	if err != nil {
		return err
	}

	head := getPtr(squareRegion, sqEntHeadOff)
	encodeEntry(entryRegion, entryOffset, e, head)

	putPtr(squareRegion, sqEntHeadOff, relptr.New(squareOffset+sqEntHeadOff, entryOffset))
	putU64(squareRegion, sqCountOff, getU64(squareRegion, sqCountOff)+1)
	return nil
}

// quadrasect splits the overfull leaf at squareOffset into four leaf
// children (I2), redistributes its entries among them by geometric
// center (I1), then atomically publishes the branch transition (I4):
// the four child pointers are written first, the Branch flag last, so a
// concurrent reader either sees a fully-formed leaf or a fully-formed
// branch, never a partial one. Caller holds square's lock.
func (b *Builder) quadrasect(squareOffset uint64, squareRegion []byte) error {
	bounds := decodeBox(squareRegion, sqSWLatOff, sqSWLonOff, sqNELatOff, sqNELonOff)
	entries, err := b.readChain(squareOffset, squareRegion)
	if err != nil {
		return err
	}

	quads := bounds.Quadrants()
	var childOffsets [4]uint64
	for q := 0; q < 4; q++ {
		off, region, err := b.alloc.Reserve(1, squareSize, 8)
		if err != nil {
			return err
		}
		encodeSquare(region, off, quads[q])
		childOffsets[q] = off
	}

	for _, e := range entries {
		q := QuadrantOf(bounds, e.Bounds.Center())
		childOffset := childOffsets[q]

		lock := b.lockFor(childOffset)
		lock.Lock()
		childRegion, err := b.alloc.File().ReadMut(int64(childOffset), squareSize)
		if err != nil {
			lock.Unlock()
			return err
		}
		err = b.appendEntry(childOffset, childRegion, e)
		lock.Unlock()
		if err != nil {
			return err
		}
	}

	squareRegion, err = b.alloc.File().ReadMut(int64(squareOffset), squareSize)
	if err != nil {
		return err
	}
	for q := 0; q < 4; q++ {
		off := quadrantOffset(Quadrant(q))
		putPtr(squareRegion, off, relptr.New(squareOffset+uint64(off), childOffsets[q]))
	}

	atomicStoreU64(squareRegion, sqBranchOff, 1)
	return nil
}

// readChain walks a leaf's entry list and decodes every entry. Caller
// holds square's lock, so the chain cannot be mutated concurrently.
func (b *Builder) readChain(squareOffset uint64, squareRegion []byte) ([]IndexEntry, error) {
	var entries []IndexEntry

	ptr := getPtr(squareRegion, sqEntHeadOff)
	at := squareOffset + sqEntHeadOff

	for !ptr.IsNull(at) {
		entryOffset := ptr.Target(at)

		entryRegion, err := b.alloc.File().Read(int64(entryOffset), entrySize)
		if err != nil {
			return nil, err
		}

		entries = append(entries, decodeEntry(entryRegion, entryOffset))

		ptr = getPtr(entryRegion, entNextOff)
		at = entryOffset + entNextOff
	}

	return entries, nil
}

// Close flushes and unmaps the backing file.
func (b *Builder) Close() error {
	if err := b.alloc.File().Sync(); err != nil {
		return err
	}
	return b.alloc.File().Close()
}
