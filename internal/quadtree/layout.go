package quadtree

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"

	"github.com/leapus/mapindexer/internal/relptr"
)

// On-disk layout. All persisted integers are little-endian, matching
// github.com/sirgallo/mari's Serialize.go convention for its own records
// (the OSM wire format's big-endian framing is a separate concern,
// confined to internal/byteorder and the blob length prefix).

const (
	// metaSize is the fixed-size header at file offset 0.
	metaMagicOff        = 0
	metaNodeMaxItemsOff = 8
	metaRootOffsetOff   = 16
	metaReservedOff     = 24
	metaSize            = 32

	metaMagic uint64 = 0x4d415058514f4431 // "MAPXQOD1"
)

// squareSize is the fixed size of a serialized QuadtreeSquare record.
const (
	sqSWLatOff   = 0
	sqSWLonOff   = 8
	sqNELatOff   = 16
	sqNELonOff   = 24
	sqNWOff      = 32
	sqNEOff      = 40
	sqSWOff      = 48
	sqSEOff      = 56
	sqBranchOff  = 64 // atomic discriminant: 0 = leaf, 1 = branch
	sqCountOff   = 72
	sqEntHeadOff = 80
	squareSize   = 88
)

// entrySize is the fixed size of a serialized IndexEntry record,
// including the intrusive "next" link chaining a leaf's entries.
const (
	entKindOff      = 0
	entSWLatOff     = 8
	entSWLonOff     = 16
	entNELatOff     = 24
	entNELonOff     = 32
	entBlobPosOff   = 40
	entItemPosOff   = 48
	entReductionOff = 56
	entNextOff      = 64
	entrySize       = 72
)

func putI64(b []byte, off int, v int64)   { binary.LittleEndian.PutUint64(b[off:], uint64(v)) }
func getI64(b []byte, off int) int64      { return int64(binary.LittleEndian.Uint64(b[off:])) }
func putU64(b []byte, off int, v uint64)  { binary.LittleEndian.PutUint64(b[off:], v) }
func getU64(b []byte, off int) uint64     { return binary.LittleEndian.Uint64(b[off:]) }
func putI32(b []byte, off int, v int32)   { binary.LittleEndian.PutUint32(b[off:], uint32(v)) }
func getI32(b []byte, off int) int32      { return int32(binary.LittleEndian.Uint32(b[off:])) }

func putPtr(b []byte, off int, p relptr.Ptr) { putI64(b, off, int64(p)) }
func getPtr(b []byte, off int) relptr.Ptr    { return relptr.Ptr(getI64(b, off)) }

// atomicLoadU64 / atomicStoreU64 address a uint64 word directly inside a
// shared mmap region, the same unsafe.Pointer-over-the-mapping trick
// github.com/sirgallo/mari's Meta.go/Version.go use for its version and
// offset words.
func atomicLoadU64(b []byte, off int) uint64 {
	return atomic.LoadUint64((*uint64)(unsafe.Pointer(&b[off])))
}

func atomicStoreU64(b []byte, off int, v uint64) {
	atomic.StoreUint64((*uint64)(unsafe.Pointer(&b[off])), v)
}

func encodeBox(b []byte, swLatOff, swLonOff, neLatOff, neLonOff int, box Box) {
	putI64(b, swLatOff, box.SW.Lat)
	putI64(b, swLonOff, box.SW.Lon)
	putI64(b, neLatOff, box.NE.Lat)
	putI64(b, neLonOff, box.NE.Lon)
}

func decodeBox(b []byte, swLatOff, swLonOff, neLatOff, neLonOff int) Box {
	return Box{
		SW: Coordinate{Lat: getI64(b, swLatOff), Lon: getI64(b, swLonOff)},
		NE: Coordinate{Lat: getI64(b, neLatOff), Lon: getI64(b, neLonOff)},
	}
}

// encodeSquare writes a freshly allocated square's bounds and a leaf
// state (all children null, no entries) into b. selfOffset is the
// square's own absolute file offset, needed to encode null child
// pointers per the relptr convention.
func encodeSquare(b []byte, selfOffset uint64, bounds Box) {
	encodeBox(b, sqSWLatOff, sqSWLonOff, sqNELatOff, sqNELonOff, bounds)
	putPtr(b, sqNWOff, relptr.NullAt(selfOffset+sqNWOff))
	putPtr(b, sqNEOff, relptr.NullAt(selfOffset+sqNEOff))
	putPtr(b, sqSWOff, relptr.NullAt(selfOffset+sqSWOff))
	putPtr(b, sqSEOff, relptr.NullAt(selfOffset+sqSEOff))
	putU64(b, sqBranchOff, 0)
	putU64(b, sqCountOff, 0)
	putPtr(b, sqEntHeadOff, relptr.NullAt(selfOffset+sqEntHeadOff))
}

// encodeEntry writes an index entry's fixed fields into b. selfOffset is
// the entry's own absolute file offset; next is the (possibly null)
// successor entry in the same leaf's chain.
func encodeEntry(b []byte, selfOffset uint64, e IndexEntry, next relptr.Ptr) {
	b[entKindOff] = byte(e.Kind)
	encodeBox(b, entSWLatOff, entSWLonOff, entNELatOff, entNELonOff, e.Bounds)
	putU64(b, entBlobPosOff, e.Address.BlobPos)
	putI32(b, entItemPosOff, e.Address.ItemPos)

	if e.ReductionDetailOffset == 0 {
		putPtr(b, entReductionOff, relptr.NullAt(selfOffset+entReductionOff))
	} else {
		putPtr(b, entReductionOff, relptr.New(selfOffset+entReductionOff, e.ReductionDetailOffset))
	}

	putPtr(b, entNextOff, next)
}

func decodeEntry(b []byte, selfOffset uint64) IndexEntry {
	e := IndexEntry{
		Kind:   EntryKind(b[entKindOff]),
		Bounds: decodeBox(b, entSWLatOff, entSWLonOff, entNELatOff, entNELonOff),
		Address: OSMAddress{
			BlobPos: getU64(b, entBlobPosOff),
			ItemPos: getI32(b, entItemPosOff),
		},
	}

	redPtr := getPtr(b, entReductionOff)
	if !redPtr.IsNull(selfOffset + entReductionOff) {
		e.ReductionDetailOffset = redPtr.Target(selfOffset + entReductionOff)
	}

	return e
}
