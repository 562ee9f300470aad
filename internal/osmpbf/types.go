// Package osmpbf implements the Protobuf File Adapter (C5): decoders for
// the OSM PBF schema messages (BlobHeader, Blob, HeaderBlock,
// PrimitiveBlock), consumed elsewhere only through this package's
// exported structs — the rest of the system never touches wire bytes
// directly. No .proto compiler is run; fields are walked field-by-field
// with google.golang.org/protobuf/encoding/protowire, the same
// tag/varint walk protoc-generated code performs.
package osmpbf

// BlobHeader precedes every blob: its type name and the blob's
// serialized size.
type BlobHeader struct {
	Type       string
	IndexData  []byte
	DataSize   int32
}

// Blob carries one of three payload encodings. At most one of Raw,
// ZlibData, LzmaData is populated, per the wire format's oneof-like
// convention (expressed as plain optional fields, as upstream OSM does).
type Blob struct {
	Raw      []byte
	RawSize  int32
	ZlibData []byte
	LzmaData []byte
}

// Kind reports which payload encoding is present.
func (b *Blob) Kind() Codec {
	switch {
	case b.Raw != nil:
		return CodecRaw
	case b.ZlibData != nil:
		return CodecZlib
	case b.LzmaData != nil:
		return CodecLzma
	default:
		return CodecUnknown
	}
}

// Payload returns the compressed (or raw) bytes for whichever codec is
// present.
func (b *Blob) Payload() []byte {
	switch b.Kind() {
	case CodecRaw:
		return b.Raw
	case CodecZlib:
		return b.ZlibData
	case CodecLzma:
		return b.LzmaData
	default:
		return nil
	}
}

// Codec identifies a Blob payload's compression.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecRaw
	CodecZlib
	CodecLzma
)

// HeaderBBox is the optional bounding box carried by the file header
// blob, in nanodegrees.
type HeaderBBox struct {
	Left, Right, Top, Bottom int64
}

// HeaderBlock is the decoded "OSMHeader" blob payload.
type HeaderBlock struct {
	Bbox             *HeaderBBox
	RequiredFeatures []string
	OptionalFeatures []string
}

// PrimitiveBlock is the decoded "OSMData" blob payload: a shared string
// table plus one or more primitive groups.
type PrimitiveBlock struct {
	StringTable [][]byte
	Granularity int32 // nanodegrees per delta-coded unit; default 100
	LatOffset   int64
	LonOffset   int64
	Groups      []PrimitiveGroup
}

// PrimitiveGroup holds the decoded primitives of one group within a
// block. Relations are intentionally not decoded: their
// bounding boxes require resolving member ways/nodes, which in turn
// require resolving node coordinates that are frequently not all present
// in the same block; that cross-block resolution is out of scope for the
// indexing core described by this spec.
type PrimitiveGroup struct {
	Dense *DenseNodes
	Ways  []Way
}

// DenseNodes holds fully delta-decoded (absolute, not zigzag-coded)
// node ids and raw lat/lon coordinate units. Lats/Lons are not yet in
// nanodegrees: apply ResolveCoordinate with the owning PrimitiveBlock's
// Granularity/LatOffset/LonOffset first.
type DenseNodes struct {
	IDs  []int64
	Lats []int64
	Lons []int64
}

// Way holds a fully delta-decoded (absolute) list of referenced node ids.
// Tags are not retained; the indexing core only needs the way's id and
// its node references to compute a bounding box.
type Way struct {
	ID   int64
	Refs []int64
}

// Granularity and offsets for a block lacking explicit values, per the
// OSM PBF spec's documented defaults.
const (
	DefaultGranularity     = 100
	DefaultLatLonOffset    = 0
	DefaultDateGranularity = 1000
)
