package indexer

import "testing"

import "github.com/stretchr/testify/assert"

import "github.com/leapus/mapindexer/internal/osmpbf"
import "github.com/leapus/mapindexer/internal/quadtree"

func TestEntriesFromBlockDenseNodesBecomeLabels(t *testing.T) {
	block := &osmpbf.PrimitiveBlock{
		Granularity: 100,
		Groups: []osmpbf.PrimitiveGroup{
			{Dense: &osmpbf.DenseNodes{
				IDs:  []int64{1, 2},
				Lats: []int64{10, 20},
				Lons: []int64{-5, 5},
			}},
		},
	}

	entries := entriesFromBlock(block, 42)
	assert.Len(t, entries, 2)

	assert.Equal(t, quadtree.KindLabel, entries[0].Kind)
	assert.Equal(t, int64(1000), entries[0].Bounds.SW.Lat) // 10 * granularity 100
	assert.Equal(t, int64(-500), entries[0].Bounds.SW.Lon)
	assert.Equal(t, entries[0].Bounds.SW, entries[0].Bounds.NE)
	assert.Equal(t, uint64(42), entries[0].Address.BlobPos)
	assert.Equal(t, int32(0), entries[0].Address.ItemPos)
}

func TestEntriesFromBlockWayWithResolvableRefs(t *testing.T) {
	block := &osmpbf.PrimitiveBlock{
		Granularity: 1,
		Groups: []osmpbf.PrimitiveGroup{
			{
				Dense: &osmpbf.DenseNodes{
					IDs:  []int64{1, 2, 3},
					Lats: []int64{0, 10, -5},
					Lons: []int64{0, 5, -10},
				},
				Ways: []osmpbf.Way{
					{ID: 100, Refs: []int64{1, 2, 3}},
				},
			},
		},
	}

	entries := entriesFromBlock(block, 7)

	var way *quadtree.IndexEntry
	for i := range entries {
		if entries[i].Kind == quadtree.KindLine {
			way = &entries[i]
		}
	}
	assert.NotNil(t, way)
	assert.Equal(t, int64(-5), way.Bounds.SW.Lat)
	assert.Equal(t, int64(-10), way.Bounds.SW.Lon)
	assert.Equal(t, int64(10), way.Bounds.NE.Lat)
	assert.Equal(t, int64(5), way.Bounds.NE.Lon)
}

func TestEntriesFromBlockItemPosIsUniqueAcrossKinds(t *testing.T) {
	block := &osmpbf.PrimitiveBlock{
		Granularity: 1,
		Groups: []osmpbf.PrimitiveGroup{
			{
				Dense: &osmpbf.DenseNodes{
					IDs:  []int64{1, 2},
					Lats: []int64{0, 10},
					Lons: []int64{0, 5},
				},
				Ways: []osmpbf.Way{
					{ID: 100, Refs: []int64{1, 2}},
				},
			},
		},
	}

	entries := entriesFromBlock(block, 7)
	assert.Len(t, entries, 3)

	seen := make(map[int32]bool)
	for _, e := range entries {
		assert.False(t, seen[e.Address.ItemPos], "duplicate ItemPos %d", e.Address.ItemPos)
		seen[e.Address.ItemPos] = true
	}
}

func TestEntriesFromBlockWayWithNoResolvableRefsIsSkipped(t *testing.T) {
	block := &osmpbf.PrimitiveBlock{
		Granularity: 1,
		Groups: []osmpbf.PrimitiveGroup{
			{
				Ways: []osmpbf.Way{
					{ID: 100, Refs: []int64{999}},
				},
			},
		},
	}

	entries := entriesFromBlock(block, 1)
	for _, e := range entries {
		assert.NotEqual(t, quadtree.KindLine, e.Kind)
	}
}
