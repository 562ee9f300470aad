// Package quadtree implements the Quadtree Builder (C9): a persistent,
// concurrently-built spatial index whose nodes live inside a growable
// mapped output file, addressed by self-relative offsets.
//
// The data model (Coordinate, Box, OSM Address, Index Entry, Quadtree
// Square) and invariants I1-I5 are per spec §3.
// original_source/include/astrolib/index.hpp supplies only bare type
// declarations (quadtree_square, index_entry, WRQuadSquare/Index are
// unimplemented skeletons); the allocate-and-link discipline below is
// grounded on github.com/sirgallo/mari's copy-on-write node construction
// in Node.go/Operation.go (StartOffset-addressed, bump-allocated
// records), recast onto a quadtree with relptr.Ptr children instead of
// mari's absolute offsets because this format must be position-independent
// (I5), which mari's format is not required to be.
package quadtree

import "fmt"

// Coordinate is a point in nanodegrees (OSM's native precision).
type Coordinate struct {
	Lat, Lon int64
}

// Box is an axis-aligned envelope. Empty boxes (SW > NE on either axis)
// are forbidden by the caller; this package does not construct them.
type Box struct {
	SW, NE Coordinate
}

// Center returns the box's geometric center, used to deterministically
// place boundary-straddling entries into a single child (I1).
func (b Box) Center() Coordinate {
	return Coordinate{
		Lat: midpoint(b.SW.Lat, b.NE.Lat),
		Lon: midpoint(b.SW.Lon, b.NE.Lon),
	}
}

func midpoint(a, b int64) int64 {
	// Avoids the overflow a naive (a+b)/2 risks for the rare box near the
	// int64 extremes; nanodegree values never approach that range in
	// practice, but the safer form costs nothing.
	return a + (b-a)/2
}

// Contains reports whether c lies within b, inclusive of the boundary.
func (b Box) Contains(c Coordinate) bool {
	return c.Lat >= b.SW.Lat && c.Lat <= b.NE.Lat && c.Lon >= b.SW.Lon && c.Lon <= b.NE.Lon
}

// Quadrant identifies one of the four children of a branch square.
type Quadrant int

const (
	NW Quadrant = iota
	NE
	SW
	SE
)

// Quadrants splits b into its four equal quadrants per I2: north/south at
// the latitude midpoint, east/west at the longitude midpoint.
func (b Box) Quadrants() [4]Box {
	mid := b.Center()
	return [4]Box{
		NW: {SW: Coordinate{Lat: mid.Lat, Lon: b.SW.Lon}, NE: Coordinate{Lat: b.NE.Lat, Lon: mid.Lon}},
		NE: {SW: Coordinate{Lat: mid.Lat, Lon: mid.Lon}, NE: Coordinate{Lat: b.NE.Lat, Lon: b.NE.Lon}},
		SW: {SW: Coordinate{Lat: b.SW.Lat, Lon: b.SW.Lon}, NE: Coordinate{Lat: mid.Lat, Lon: mid.Lon}},
		SE: {SW: Coordinate{Lat: b.SW.Lat, Lon: mid.Lon}, NE: Coordinate{Lat: mid.Lat, Lon: b.NE.Lon}},
	}
}

// QuadrantOf reports which quadrant of b contains c, given b's midpoint.
// A coordinate exactly on a midline is assigned deterministically (I1):
// latitude ties go north, longitude ties go east, matching the
// half-open-on-the-low-side convention Quadrants() constructs above
// (each quadrant's SW corner is inclusive, NE corner is exclusive of the
// midline except at the outer edge).
func QuadrantOf(b Box, c Coordinate) Quadrant {
	mid := b.Center()
	north := c.Lat >= mid.Lat
	east := c.Lon >= mid.Lon

	switch {
	case north && !east:
		return NW
	case north && east:
		return NE
	case !north && !east:
		return SW
	default:
		return SE
	}
}

// EntryKind is the closed set of index entry kinds; consulted only at
// render time, per spec §9 ("no dynamic dispatch is required for
// indexing").
type EntryKind byte

const (
	KindLine EntryKind = iota
	KindPolygon
	KindLabel
	KindWidget
)

func (k EntryKind) String() string {
	switch k {
	case KindLine:
		return "line"
	case KindPolygon:
		return "polygon"
	case KindLabel:
		return "label"
	case KindWidget:
		return "widget"
	default:
		return fmt.Sprintf("unknown(%d)", byte(k))
	}
}

// OSMAddress uniquely identifies a primitive inside the input PBF file.
type OSMAddress struct {
	BlobPos uint64
	ItemPos int32
}

// IndexEntry is one leaf-level record: a kind, its spatial envelope, the
// source OSM primitive it was derived from, and an optional pointer to a
// generated detail-reduction replacement.
type IndexEntry struct {
	Kind    EntryKind
	Bounds  Box
	Address OSMAddress

	// ReductionDetailOffset is the absolute file offset of a generated
	// replacement object, or 0 if none. Represented here as a plain
	// absolute offset at the API boundary; only the on-disk encoding uses
	// the relptr self-relative convention (see layout.go).
	ReductionDetailOffset uint64
}
