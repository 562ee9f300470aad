package osmpbf

import "bytes"
import "testing"

import "github.com/klauspost/compress/zlib"
import "github.com/stretchr/testify/assert"
import "google.golang.org/protobuf/encoding/protowire"

func appendTagVarint(b []byte, field protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, field, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendTagBytes(b []byte, field protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, field, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func TestDecodeBlobHeaderRoundTrip(t *testing.T) {
	var b []byte
	b = appendTagBytes(b, 1, []byte("OSMData"))
	b = appendTagVarint(b, 3, 1234)

	hdr, err := DecodeBlobHeader(b)
	assert.NoError(t, err)
	assert.Equal(t, "OSMData", hdr.Type)
	assert.Equal(t, int32(1234), hdr.DataSize)
}

func TestDecodeBlobRawPayload(t *testing.T) {
	var b []byte
	b = appendTagBytes(b, 1, []byte("hello"))
	b = appendTagVarint(b, 2, 5)

	blob, err := DecodeBlob(b)
	assert.NoError(t, err)
	assert.Equal(t, CodecRaw, blob.Kind())
	assert.Equal(t, []byte("hello"), blob.Payload())
}

func TestDecompressZlibBlob(t *testing.T) {
	var compressed bytes.Buffer
	w := zlib.NewWriter(&compressed)
	_, err := w.Write([]byte("the quick brown fox"))
	assert.NoError(t, err)
	assert.NoError(t, w.Close())

	blob := &Blob{ZlibData: compressed.Bytes(), RawSize: int32(len("the quick brown fox"))}
	assert.Equal(t, CodecZlib, blob.Kind())

	out, err := Decompress(blob)
	assert.NoError(t, err)
	assert.Equal(t, "the quick brown fox", string(out))
}

func TestDecompressLzmaUnsupported(t *testing.T) {
	blob := &Blob{LzmaData: []byte{0x01, 0x02}}
	_, err := Decompress(blob)
	assert.Error(t, err)
}

func encodeDenseNodesGroup(ids, lats, lons []int64) []byte {
	packVals := func(field protowire.Number, vals []int64) []byte {
		var inner []byte
		var prev int64
		for _, v := range vals {
			delta := v - prev
			inner = protowire.AppendVarint(inner, protowire.EncodeZigZag(delta))
			prev = v
		}
		return appendTagBytes(nil, field, inner)
	}

	var dense []byte
	dense = append(dense, packVals(1, ids)...)
	dense = append(dense, packVals(8, lats)...)
	dense = append(dense, packVals(9, lons)...)

	var group []byte
	group = appendTagBytes(group, 2, dense)
	return group
}

func TestDecodePrimitiveBlockDenseNodes(t *testing.T) {
	group := encodeDenseNodesGroup(
		[]int64{1, 2, 5},
		[]int64{100, 200, 50},
		[]int64{-10, 10, 0},
	)

	var block []byte
	block = appendTagBytes(block, 2, group)
	block = appendTagVarint(block, 17, 100)

	pb, err := DecodePrimitiveBlock(block)
	assert.NoError(t, err)
	assert.Equal(t, int32(100), pb.Granularity)
	assert.Len(t, pb.Groups, 1)

	dn := pb.Groups[0].Dense
	assert.NotNil(t, dn)
	assert.Equal(t, []int64{1, 2, 5}, dn.IDs)
	assert.Equal(t, []int64{100, 200, 50}, dn.Lats)
	assert.Equal(t, []int64{-10, 10, 0}, dn.Lons)
}

func TestResolveCoordinateAppliesGranularityAndOffset(t *testing.T) {
	assert.Equal(t, int64(500), ResolveCoordinate(0, 100, 5))
	assert.Equal(t, int64(510), ResolveCoordinate(10, 100, 5))
	// granularity 0 falls back to DefaultGranularity (100), not 0.
	assert.Equal(t, int64(500), ResolveCoordinate(0, 0, 5))
}

func TestDecodeWay(t *testing.T) {
	var refsInner []byte
	var prev int64
	for _, ref := range []int64{10, 15, 12} {
		delta := ref - prev
		refsInner = protowire.AppendVarint(refsInner, protowire.EncodeZigZag(delta))
		prev = ref
	}

	var way []byte
	way = appendTagVarint(way, 1, 99)
	way = appendTagBytes(way, 8, refsInner)

	w, err := decodeWay(way)
	assert.NoError(t, err)
	assert.Equal(t, int64(99), w.ID)
	assert.Equal(t, []int64{10, 15, 12}, w.Refs)
}
