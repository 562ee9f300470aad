// Package blobstream implements the OSM Blob Stream (C6): a lazy,
// forward-only iterator over (BlobHeader, Blob) pairs framed per the OSM
// PBF container format.
//
// Grounded line-for-line on
// original_source/include/astrolib/osmfile.hpp's blob_iterator<File>:
// the same m_blob_pos/m_blob_populated deferred-state memoization, the
// same ~1MiB readahead hint issued right after the header is decoded.
// Go's idiom trades operator*/operator++ for a pull-style
// for stream.Next() { ... } loop.
package blobstream

import (
	"github.com/leapus/mapindexer/internal/byteorder"
	"github.com/leapus/mapindexer/internal/mmapfile"
	"github.com/leapus/mapindexer/internal/osmpbf"
)

const readaheadSize = 1024 * 1024 // 1MiB, per spec §4.6

// Stream walks the blobs of a PBF file, one at a time, in file order.
// Not safe for concurrent use by multiple goroutines (each caller should
// own its own Stream over the same underlying file if parallel walking
// is needed — the file itself is safely shared for reads).
type Stream struct {
	file    *mmapfile.File
	adapter *osmpbf.FileAdapter

	pos     int64 // offset of the 4-byte length prefix of the current blob
	blobPos int64 // offset of the blob payload, 0 until the header is read

	header    *osmpbf.BlobHeader
	blob      *osmpbf.Blob
	populated bool
	started   bool
}

// New opens a stream positioned at the start of file.
func New(file *mmapfile.File) *Stream {
	return &Stream{file: file, adapter: osmpbf.NewFileAdapter(file)}
}

// BlobPos returns the byte offset of the current blob's payload (after
// the length prefix and header) — the `blob_pos` half of an OSM address.
// Only valid once the header has been populated (after Next or Header).
func (s *Stream) BlobPos() int64 { return s.blobPos }

// Pos returns the offset of the length prefix for the blob the stream is
// currently positioned at.
func (s *Stream) Pos() int64 { return s.pos }

// Done reports whether the stream has reached the end of the file, per
// spec §4.6 ("it == end_it iff pos == file.size()").
func (s *Stream) Done() bool {
	return s.pos == s.file.Size()
}

func (s *Stream) populateHeader() error {
	if s.blobPos != 0 {
		return nil
	}

	lenPrefix, err := s.file.Read(s.pos, 4)
	if err != nil {
		return err
	}
	headerLen := int64(byteorder.BigToHost(lenPrefix))

	headerStart := s.pos + 4
	hdr, err := s.adapter.ReadBlobHeader(headerStart, headerLen)
	if err != nil {
		return err
	}

	s.header = hdr
	s.blobPos = headerStart + headerLen
	s.file.Readahead(s.blobPos, readaheadSize)
	return nil
}

func (s *Stream) populateBlob() error {
	if err := s.populateHeader(); err != nil {
		return err
	}
	if s.populated {
		return nil
	}

	blob, err := s.adapter.ReadBlob(s.blobPos, int64(s.header.DataSize))
	if err != nil {
		return err
	}

	s.blob = blob
	s.populated = true
	return nil
}

// Next advances the stream to the next blob and reports whether one is
// available. Like the standard library's sql.Rows, Next must be called
// before the first Header/Blob access; the very first call positions the
// stream at the first blob without skipping it (it does not decode a
// header and then discard it — that initial populate happens lazily in
// Header/Blob, exactly per the source's populate_header/populate_blob
// memoization).
//
// It returns false once the stream is exhausted (and nil error), or on a
// framing-level failure (non-nil error) — framing failures (as opposed to
// a single blob's payload failing to decode) are not recoverable by
// skipping, since the next blob's position cannot be computed without
// this one's header.
func (s *Stream) Next() (bool, error) {
	if s.started {
		if s.Done() {
			return false, nil
		}

		if err := s.populateHeader(); err != nil {
			return false, err
		}

		s.pos = s.blobPos + int64(s.header.DataSize)
		s.blobPos = 0
		s.header = nil
		s.blob = nil
		s.populated = false
	}
	s.started = true

	return !s.Done(), nil
}

// Header returns the current blob's header, decoding it on first access.
func (s *Stream) Header() (*osmpbf.BlobHeader, error) {
	if err := s.populateHeader(); err != nil {
		return nil, err
	}
	return s.header, nil
}

// Blob returns the current blob, decoding it on first access.
func (s *Stream) Blob() (*osmpbf.Blob, error) {
	if err := s.populateBlob(); err != nil {
		return nil, err
	}
	return s.blob, nil
}

// Reset repositions the stream at the start of the file.
func (s *Stream) Reset() {
	s.pos = 0
	s.blobPos = 0
	s.header = nil
	s.blob = nil
	s.populated = false
	s.started = false
}
