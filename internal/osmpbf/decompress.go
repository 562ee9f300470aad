package osmpbf

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// Decompress is the pure function the spec treats as an external
// collaborator: given a Blob's codec and payload, it returns the
// uncompressed bytes. Grounded on github.com/klauspost/compress, which
// both direktiv-vorteil and distr1-distri require directly.
//
// lzma_data is not supported: no lzma decoder appears anywhere in the
// retrieved corpus (klauspost/compress has none), and OSM planet extracts
// in practice are written with zlib. A blob using lzma_data surfaces a
// typed error here rather than a silent, incorrect pass-through — callers
// treat it like any other per-blob decode failure (logged and skipped).
func Decompress(blob *Blob) ([]byte, error) {
	switch blob.Kind() {
	case CodecRaw:
		return blob.Raw, nil
	case CodecZlib:
		return decompressZlib(blob.ZlibData, int(blob.RawSize))
	case CodecLzma:
		return nil, fmt.Errorf("osmpbf: lzma_data blobs are not supported")
	default:
		return nil, fmt.Errorf("osmpbf: blob has no payload")
	}
}

func decompressZlib(data []byte, rawSize int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("osmpbf: zlib init: %w", err)
	}
	defer r.Close()

	var buf bytes.Buffer
	if rawSize > 0 {
		buf.Grow(rawSize)
	}

	if _, err := io.Copy(&buf, r); err != nil {
		return nil, fmt.Errorf("osmpbf: zlib inflate: %w", err)
	}

	return buf.Bytes(), nil
}
