package quadtree

import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"

func openBuilder(t *testing.T, nodeMaxItems int) *Builder {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.qt")

	b, err := Open(path, 0, worldBox(), nodeMaxItems)
	assert.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	return b
}

func pointEntry(lat, lon int64, itemPos int32) IndexEntry {
	c := Coordinate{Lat: lat, Lon: lon}
	return IndexEntry{
		Kind:    KindLabel,
		Bounds:  Box{SW: c, NE: c},
		Address: OSMAddress{BlobPos: 1, ItemPos: itemPos},
	}
}

func TestInsertSingleEntryStaysLeaf(t *testing.T) {
	b := openBuilder(t, 64)

	err := b.Insert(pointEntry(100, 100, 0))
	assert.NoError(t, err)

	root, err := b.rootOffset()
	assert.NoError(t, err)

	region, err := b.alloc.File().Read(int64(root), squareSize)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0), atomicLoadU64(region, sqBranchOff))
	assert.Equal(t, uint64(1), getU64(region, sqCountOff))
}

// countEntries recursively sums every entry reachable from the square
// at offset, across however many levels it has split into.
func countEntries(t *testing.T, b *Builder, offset uint64) int {
	t.Helper()

	region, err := b.alloc.File().Read(int64(offset), squareSize)
	assert.NoError(t, err)

	if atomicLoadU64(region, sqBranchOff) == 0 {
		return int(getU64(region, sqCountOff))
	}

	total := 0
	for _, q := range []Quadrant{NW, NE, SW, SE} {
		total += countEntries(t, b, b.childOffset(region, offset, q))
	}
	return total
}

func TestInsertPastNodeMaxItemsQuadrasects(t *testing.T) {
	const maxItems = 4
	b := openBuilder(t, maxItems)

	// All points share a quadrant (positive lat/lon), forcing the
	// overfull leaf to recursively split rather than merely
	// redistributing evenly across the four top-level children.
	for i := 0; i < maxItems+1; i++ {
		err := b.Insert(pointEntry(int64(i+1)*1000, int64(i+1)*1000, int32(i)))
		assert.NoError(t, err)
	}

	root, err := b.rootOffset()
	assert.NoError(t, err)

	region, err := b.alloc.File().Read(int64(root), squareSize)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), atomicLoadU64(region, sqBranchOff))

	assert.Equal(t, maxItems+1, countEntries(t, b, root))
}

func TestInsertDistributesAcrossQuadrants(t *testing.T) {
	const maxItems = 2
	b := openBuilder(t, maxItems)

	entries := []IndexEntry{
		pointEntry(500000000, 900000000, 0),   // NE
		pointEntry(500000000, -900000000, 1),  // NW
		pointEntry(-500000000, -900000000, 2), // SW (triggers root quadrasection on insert)
		pointEntry(-500000000, 900000000, 3),  // SE
		pointEntry(600000000, 900000000, 4),   // second NE point, after the split
	}
	for _, e := range entries {
		assert.NoError(t, b.Insert(e))
	}

	root, err := b.rootOffset()
	assert.NoError(t, err)
	region, err := b.alloc.File().Read(int64(root), squareSize)
	assert.NoError(t, err)
	assert.Equal(t, uint64(1), atomicLoadU64(region, sqBranchOff))

	neOffset := b.childOffset(region, root, NE)
	neRegion, err := b.alloc.File().Read(int64(neOffset), squareSize)
	assert.NoError(t, err)
	assert.Equal(t, uint64(2), getU64(neRegion, sqCountOff))

	for _, q := range []Quadrant{NW, SW, SE} {
		childOffset := b.childOffset(region, root, q)
		childRegion, err := b.alloc.File().Read(int64(childOffset), squareSize)
		assert.NoError(t, err)
		assert.Equal(t, uint64(1), getU64(childRegion, sqCountOff))
	}
}

func TestReopenExistingIndexPreservesNodeMaxItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.qt")

	b1, err := Open(path, 0, worldBox(), 17)
	assert.NoError(t, err)
	assert.NoError(t, b1.Insert(pointEntry(1, 1, 0)))
	assert.NoError(t, b1.Close())

	b2, err := Open(path, 0, worldBox(), 0)
	assert.NoError(t, err)
	defer b2.Close()
	assert.Equal(t, 17, b2.nodeMaxItems)
}
