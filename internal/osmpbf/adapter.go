package osmpbf

import (
	"github.com/leapus/mapindexer/internal/ierr"
	"github.com/leapus/mapindexer/internal/mmapfile"
)

// FileAdapter parses protobuf messages out of a mapped file's byte
// regions (C5). It does not know message schemas itself; it delegates to
// the Decode* functions in decode.go, one per OSM PBF message, and wraps any
// failure as a PbfParseError carrying the message type name and offset.
type FileAdapter struct {
	file *mmapfile.File
}

// NewFileAdapter binds an adapter to a mapped file.
func NewFileAdapter(file *mmapfile.File) *FileAdapter {
	return &FileAdapter{file: file}
}

// ReadBlobHeader reads and decodes a BlobHeader message at (pos, size).
func (a *FileAdapter) ReadBlobHeader(pos, size int64) (*BlobHeader, error) {
	raw, err := a.file.Read(pos, size)
	if err != nil {
		return nil, err
	}
	hdr, err := DecodeBlobHeader(raw)
	if err != nil {
		return nil, &ierr.PbfParseError{TypeName: "BlobHeader", Offset: pos, Cause: err}
	}
	return hdr, nil
}

// ReadBlob reads and decodes a Blob message at (pos, size).
func (a *FileAdapter) ReadBlob(pos, size int64) (*Blob, error) {
	raw, err := a.file.Read(pos, size)
	if err != nil {
		return nil, err
	}
	blob, err := DecodeBlob(raw)
	if err != nil {
		return nil, &ierr.PbfParseError{TypeName: "Blob", Offset: pos, Cause: err}
	}
	return blob, nil
}

// ParseHeaderBlock decompresses and decodes a HeaderBlock payload already
// extracted from a Blob.
func ParseHeaderBlock(blob *Blob) (*HeaderBlock, error) {
	raw, err := Decompress(blob)
	if err != nil {
		return nil, &ierr.PbfParseError{TypeName: "HeaderBlock", Cause: err}
	}
	hb, err := DecodeHeaderBlock(raw)
	if err != nil {
		return nil, &ierr.PbfParseError{TypeName: "HeaderBlock", Cause: err}
	}
	return hb, nil
}

// ParsePrimitiveBlock decompresses and decodes a PrimitiveBlock payload
// already extracted from a Blob.
func ParsePrimitiveBlock(blob *Blob) (*PrimitiveBlock, error) {
	raw, err := Decompress(blob)
	if err != nil {
		return nil, &ierr.PbfParseError{TypeName: "PrimitiveBlock", Cause: err}
	}
	pb, err := DecodePrimitiveBlock(raw)
	if err != nil {
		return nil, &ierr.PbfParseError{TypeName: "PrimitiveBlock", Cause: err}
	}
	return pb, nil
}

// ParsePrimitiveBlockWithPool is ParsePrimitiveBlock, but decodes into a
// block borrowed from pool instead of allocating one. The caller must
// return it via pool.Put once done with it.
func ParsePrimitiveBlockWithPool(blob *Blob, pool *BlockPool) (*PrimitiveBlock, error) {
	raw, err := Decompress(blob)
	if err != nil {
		return nil, &ierr.PbfParseError{TypeName: "PrimitiveBlock", Cause: err}
	}

	pb := pool.Get()
	if err := DecodePrimitiveBlockInto(raw, pb); err != nil {
		pool.Put(pb)
		return nil, &ierr.PbfParseError{TypeName: "PrimitiveBlock", Cause: err}
	}
	return pb, nil
}
