package indexer

import (
	"github.com/leapus/mapindexer/internal/osmpbf"
	"github.com/leapus/mapindexer/internal/quadtree"
)

// entriesFromBlock turns one decoded PrimitiveBlock into the index
// entries it contributes: every dense node becomes a point label entry,
// and every way becomes a line entry whose bounding box is computed from
// whatever of its referenced node ids resolve against this same block's
// dense nodes. A way with no locally resolvable refs (the common case —
// OSM extracts typically place node and way primitives in separate
// blocks) is skipped rather than indexed with a degenerate box; a wider
// cross-block resolution pass is out of scope here (see DESIGN.md).
func entriesFromBlock(block *osmpbf.PrimitiveBlock, blobPos uint64) []quadtree.IndexEntry {
	var entries []quadtree.IndexEntry

	var coords map[int64]quadtree.Coordinate

	// itemPos runs over the block's whole decoded primitive stream (every
	// dense node, then every way, per group, in decode order) so that no
	// two primitives in the same blob share an (BlobPos, ItemPos)
	// address, per spec §3's uniqueness requirement for an OSM Address.
	var itemPos int32

	for _, group := range block.Groups {
		if group.Dense != nil {
			entries = append(entries, denseNodeEntries(block, group.Dense, blobPos, &itemPos)...)
		}

		if len(group.Ways) == 0 {
			continue
		}

		if coords == nil {
			coords = nodeCoordsByID(block)
		}
		for _, way := range group.Ways {
			pos := itemPos
			itemPos++
			if e, ok := wayEntry(way, coords, blobPos, pos); ok {
				entries = append(entries, e)
			}
		}
	}

	return entries
}

// resolveCoord turns a block-local delta-decoded (lat, lon) pair into
// absolute nanodegree coordinates per the OSM PBF granularity/offset
// formula (internal/osmpbf.ResolveCoordinate).
func resolveCoord(block *osmpbf.PrimitiveBlock, rawLat, rawLon int64) quadtree.Coordinate {
	return quadtree.Coordinate{
		Lat: osmpbf.ResolveCoordinate(block.LatOffset, block.Granularity, rawLat),
		Lon: osmpbf.ResolveCoordinate(block.LonOffset, block.Granularity, rawLon),
	}
}

func denseNodeEntries(block *osmpbf.PrimitiveBlock, dense *osmpbf.DenseNodes, blobPos uint64, itemPos *int32) []quadtree.IndexEntry {
	entries := make([]quadtree.IndexEntry, 0, len(dense.IDs))
	for i := range dense.IDs {
		c := resolveCoord(block, dense.Lats[i], dense.Lons[i])
		entries = append(entries, quadtree.IndexEntry{
			Kind:   quadtree.KindLabel,
			Bounds: quadtree.Box{SW: c, NE: c},
			Address: quadtree.OSMAddress{
				BlobPos: blobPos,
				ItemPos: *itemPos,
			},
		})
		*itemPos++
	}
	return entries
}

// nodeCoordsByID builds an id -> absolute coordinate lookup from every
// DenseNodes group in the same block, so a way's refs can be resolved
// without a second pass over the file.
func nodeCoordsByID(block *osmpbf.PrimitiveBlock) map[int64]quadtree.Coordinate {
	coords := make(map[int64]quadtree.Coordinate)
	for _, g := range block.Groups {
		if g.Dense == nil {
			continue
		}
		for i, id := range g.Dense.IDs {
			coords[id] = resolveCoord(block, g.Dense.Lats[i], g.Dense.Lons[i])
		}
	}
	return coords
}

func wayEntry(way osmpbf.Way, coords map[int64]quadtree.Coordinate, blobPos uint64, itemPos int32) (quadtree.IndexEntry, bool) {
	var box quadtree.Box
	found := false

	for _, ref := range way.Refs {
		c, ok := coords[ref]
		if !ok {
			continue
		}
		if !found {
			box = quadtree.Box{SW: c, NE: c}
			found = true
			continue
		}
		if c.Lat < box.SW.Lat {
			box.SW.Lat = c.Lat
		}
		if c.Lon < box.SW.Lon {
			box.SW.Lon = c.Lon
		}
		if c.Lat > box.NE.Lat {
			box.NE.Lat = c.Lat
		}
		if c.Lon > box.NE.Lon {
			box.NE.Lon = c.Lon
		}
	}

	if !found {
		return quadtree.IndexEntry{}, false
	}

	return quadtree.IndexEntry{
		Kind:   quadtree.KindLine,
		Bounds: box,
		Address: quadtree.OSMAddress{
			BlobPos: blobPos,
			ItemPos: itemPos,
		},
	}, true
}
