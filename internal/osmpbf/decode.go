package osmpbf

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// walkFields calls fn once per top-level field in b, in wire order. fn
// receives the already-consumed field payload; it returns an error to
// abort the walk.
func walkFields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		var payload []byte
		var consumed int

		switch typ {
		case protowire.VarintType:
			_, consumed = protowire.ConsumeVarint(b)
			if consumed < 0 {
				return protowire.ParseError(consumed)
			}
			payload = b[:consumed]
		case protowire.BytesType:
			v, cn := protowire.ConsumeBytes(b)
			if cn < 0 {
				return protowire.ParseError(cn)
			}
			consumed = cn
			payload = v
		case protowire.Fixed64Type:
			_, consumed = protowire.ConsumeFixed64(b)
			if consumed < 0 {
				return protowire.ParseError(consumed)
			}
			payload = b[:consumed]
		case protowire.Fixed32Type:
			_, consumed = protowire.ConsumeFixed32(b)
			if consumed < 0 {
				return protowire.ParseError(consumed)
			}
			payload = b[:consumed]
		default:
			return fmt.Errorf("osmpbf: unsupported wire type %v for field %d", typ, num)
		}

		if typ == protowire.BytesType {
			// payload is already the inner bytes for BytesType; consumed
			// counts the whole length-prefixed region in the source slice.
			if err := fn(num, typ, payload); err != nil {
				return err
			}
			b = b[consumed:]
			continue
		}

		if err := fn(num, typ, payload); err != nil {
			return err
		}
		b = b[consumed:]
	}
	return nil
}

func varintAt(v []byte) uint64 {
	n, _ := protowire.ConsumeVarint(v)
	return n
}

// packedVarints decodes a length-delimited, packed-varint repeated field
// (DenseNodes ids/lat/lon, Way refs/keys/vals) into a slice of raw
// varints, without zigzag decoding.
func packedVarints(v []byte) ([]uint64, error) {
	var out []uint64
	for len(v) > 0 {
		val, n := protowire.ConsumeVarint(v)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		out = append(out, val)
		v = v[n:]
	}
	return out, nil
}

// DecodeBlobHeader parses a BlobHeader message from raw bytes.
func DecodeBlobHeader(b []byte) (*BlobHeader, error) {
	hdr := &BlobHeader{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 1: // type (string)
			hdr.Type = string(v)
		case 2: // indexdata (bytes)
			hdr.IndexData = append([]byte(nil), v...)
		case 3: // datasize (int32)
			hdr.DataSize = int32(varintAt(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return hdr, nil
}

// DecodeBlob parses a Blob message from raw bytes.
func DecodeBlob(b []byte) (*Blob, error) {
	blob := &Blob{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 1:
			blob.Raw = append([]byte(nil), v...)
		case 2:
			blob.RawSize = int32(varintAt(v))
		case 3:
			blob.ZlibData = append([]byte(nil), v...)
		case 4:
			blob.LzmaData = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// DecodeHeaderBlock parses a HeaderBlock message from decompressed blob
// bytes.
func DecodeHeaderBlock(b []byte) (*HeaderBlock, error) {
	out := &HeaderBlock{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 1: // bbox (message HeaderBBox)
			bbox, err := decodeHeaderBBox(v)
			if err != nil {
				return err
			}
			out.Bbox = bbox
		case 4: // required_features (repeated string)
			out.RequiredFeatures = append(out.RequiredFeatures, string(v))
		case 5: // optional_features (repeated string)
			out.OptionalFeatures = append(out.OptionalFeatures, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func decodeHeaderBBox(b []byte) (*HeaderBBox, error) {
	bbox := &HeaderBBox{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		val := protowire.DecodeZigZag(varintAt(v))
		switch num {
		case 1:
			bbox.Left = val
		case 2:
			bbox.Right = val
		case 3:
			bbox.Top = val
		case 4:
			bbox.Bottom = val
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bbox, nil
}

// DecodePrimitiveBlock parses a PrimitiveBlock message from decompressed
// blob bytes into a freshly allocated block.
func DecodePrimitiveBlock(b []byte) (*PrimitiveBlock, error) {
	out := &PrimitiveBlock{}
	if err := DecodePrimitiveBlockInto(b, out); err != nil {
		return nil, err
	}
	return out, nil
}

// DecodePrimitiveBlockInto parses a PrimitiveBlock message into an
// already-allocated, zeroed block, letting a caller reuse one across
// many blobs via BlockPool instead of allocating on every decode.
func DecodePrimitiveBlockInto(b []byte, out *PrimitiveBlock) error {
	out.Granularity = DefaultGranularity
	out.LatOffset = DefaultLatLonOffset
	out.LonOffset = DefaultLatLonOffset

	return walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 1: // stringtable (message StringTable { repeated bytes s = 1; })
			st, err := decodeStringTable(v)
			if err != nil {
				return err
			}
			out.StringTable = st
		case 2: // primitivegroup (repeated message)
			grp, err := decodePrimitiveGroup(v)
			if err != nil {
				return err
			}
			out.Groups = append(out.Groups, grp)
		case 17:
			out.Granularity = int32(varintAt(v))
		case 19:
			out.LatOffset = int64(varintAt(v))
		case 20:
			out.LonOffset = int64(varintAt(v))
		}
		return nil
	})
}

func decodeStringTable(b []byte) ([][]byte, error) {
	var table [][]byte
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		if num == 1 {
			table = append(table, append([]byte(nil), v...))
		}
		return nil
	})
	return table, err
}

func decodePrimitiveGroup(b []byte) (PrimitiveGroup, error) {
	var grp PrimitiveGroup
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 2: // dense (message DenseNodes)
			dn, err := decodeDenseNodes(v)
			if err != nil {
				return err
			}
			grp.Dense = dn
		case 3: // ways (repeated message Way)
			w, err := decodeWay(v)
			if err != nil {
				return err
			}
			grp.Ways = append(grp.Ways, w)
		}
		return nil
	})
	return grp, err
}

func decodeDenseNodes(b []byte) (*DenseNodes, error) {
	dn := &DenseNodes{}
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 1: // id (packed sint64, delta coded)
			raw, err := packedVarints(v)
			if err != nil {
				return err
			}
			dn.IDs = deltaDecodeZigZag(raw)
		case 8: // lat (packed sint64, delta coded)
			raw, err := packedVarints(v)
			if err != nil {
				return err
			}
			dn.Lats = deltaDecodeZigZag(raw)
		case 9: // lon (packed sint64, delta coded)
			raw, err := packedVarints(v)
			if err != nil {
				return err
			}
			dn.Lons = deltaDecodeZigZag(raw)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dn, nil
}

func decodeWay(b []byte) (Way, error) {
	var w Way
	err := walkFields(b, func(num protowire.Number, typ protowire.Type, v []byte) error {
		switch num {
		case 1: // id
			w.ID = int64(varintAt(v))
		case 8: // refs (packed sint64, delta coded)
			raw, err := packedVarints(v)
			if err != nil {
				return err
			}
			w.Refs = deltaDecodeZigZag(raw)
		}
		return nil
	})
	return w, err
}

// deltaDecodeZigZag reverses zigzag+delta encoding: each raw varint is a
// zigzag-coded delta from the previous decoded value.
func deltaDecodeZigZag(raw []uint64) []int64 {
	out := make([]int64, len(raw))
	var running int64
	for i, r := range raw {
		running += protowire.DecodeZigZag(r)
		out[i] = running
	}
	return out
}

// ResolveCoordinate converts a dense-node's raw delta-decoded lat/lon unit
// into nanodegrees using the block's granularity and offset, per the OSM
// PBF spec's formula: value = offset + (granularity * coordinate).
func ResolveCoordinate(offset int64, granularity int32, coord int64) int64 {
	if granularity == 0 {
		granularity = DefaultGranularity
	}
	return offset + int64(granularity)*coord
}
