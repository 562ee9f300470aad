package quadtree

import "testing"

import "github.com/stretchr/testify/assert"

func worldBox() Box {
	return Box{
		SW: Coordinate{Lat: -900000000, Lon: -1800000000},
		NE: Coordinate{Lat: 900000000, Lon: 1800000000},
	}
}

func TestBoxCenter(t *testing.T) {
	b := worldBox()
	c := b.Center()
	assert.Equal(t, int64(0), c.Lat)
	assert.Equal(t, int64(0), c.Lon)
}

func TestBoxContainsInclusiveBoundary(t *testing.T) {
	b := worldBox()
	assert.True(t, b.Contains(b.SW))
	assert.True(t, b.Contains(b.NE))
	assert.False(t, b.Contains(Coordinate{Lat: b.NE.Lat + 1, Lon: 0}))
}

func TestQuadrantsPartitionTheBox(t *testing.T) {
	b := worldBox()
	quads := b.Quadrants()

	assert.Equal(t, b.SW.Lat, quads[SW].SW.Lat)
	assert.Equal(t, b.NE.Lat, quads[NE].NE.Lat)
	assert.Equal(t, int64(0), quads[NW].SW.Lat)
	assert.Equal(t, int64(0), quads[SE].NE.Lat)
}

func TestQuadrantOfDeterministicOnMidline(t *testing.T) {
	b := worldBox()
	center := b.Center()

	// Ties go to the "greater or equal" side per QuadrantOf's convention.
	assert.Equal(t, NE, QuadrantOf(b, center))
	assert.Equal(t, NW, QuadrantOf(b, Coordinate{Lat: center.Lat, Lon: center.Lon - 1}))
	assert.Equal(t, SE, QuadrantOf(b, Coordinate{Lat: center.Lat - 1, Lon: center.Lon}))
}

func TestEntryKindString(t *testing.T) {
	assert.Equal(t, "line", KindLine.String())
	assert.Equal(t, "polygon", KindPolygon.String())
	assert.Equal(t, "label", KindLabel.String())
	assert.Equal(t, "widget", KindWidget.String())
	assert.Contains(t, EntryKind(99).String(), "unknown")
}
