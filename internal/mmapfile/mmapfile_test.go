package mmapfile

import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}

func TestOpenWritableGrowsAndPersists(t *testing.T) {
	path := tempPath(t, "growable")

	f, err := Open(path, true, 0)
	assert.NoError(t, err)
	defer f.Close()

	region, err := f.ReadMut(0, 16)
	assert.NoError(t, err)
	copy(region, []byte("0123456789ABCDEF"))

	assert.Equal(t, int64(16), f.Size())

	back, err := f.Read(0, 16)
	assert.NoError(t, err)
	assert.Equal(t, []byte("0123456789ABCDEF"), back)
}

func TestReadRejectsOutOfRange(t *testing.T) {
	path := tempPath(t, "small")

	f, err := Open(path, true, 0)
	assert.NoError(t, err)
	defer f.Close()

	_, err = f.ReadMut(0, 8)
	assert.NoError(t, err)

	_, err = f.Read(0, 100)
	assert.Error(t, err)
}

func TestReadRejectsZeroSize(t *testing.T) {
	path := tempPath(t, "zero")

	f, err := Open(path, true, 8)
	assert.NoError(t, err)
	defer f.Close()

	_, err = f.Read(0, 0)
	assert.Error(t, err)
}

func TestGrowBeyondMappingRemaps(t *testing.T) {
	path := tempPath(t, "remap")

	f, err := Open(path, true, 0)
	assert.NoError(t, err)
	defer f.Close()

	// Force a grow well past the 64MiB mapping floor to exercise the
	// unmap/remap path, then verify previously written data survives.
	region, err := f.ReadMut(0, 8)
	assert.NoError(t, err)
	copy(region, []byte("ABCDEFGH"))

	big := int64(80 * 1024 * 1024)
	_, err = f.ReadMut(big, 8)
	assert.NoError(t, err)

	back, err := f.Read(0, 8)
	assert.NoError(t, err)
	assert.Equal(t, []byte("ABCDEFGH"), back)
}

func TestReopenReadOnlySeesPersistedData(t *testing.T) {
	path := tempPath(t, "reopen")

	f, err := Open(path, true, 0)
	assert.NoError(t, err)

	region, err := f.ReadMut(0, 4)
	assert.NoError(t, err)
	copy(region, []byte("OSM!"))
	assert.NoError(t, f.Sync())
	assert.NoError(t, f.Close())

	ro, err := Open(path, false, 0)
	assert.NoError(t, err)
	defer ro.Close()

	assert.Equal(t, int64(4), ro.Size())

	back, err := ro.Read(0, 4)
	assert.NoError(t, err)
	assert.Equal(t, []byte("OSM!"), back)

	_, err = ro.ReadMut(0, 4)
	assert.Error(t, err)
}

func TestReadaheadOnEmptyFileIsNoop(t *testing.T) {
	path := tempPath(t, "empty")

	f, err := Open(path, true, 0)
	assert.NoError(t, err)
	defer f.Close()

	assert.False(t, f.Readahead(0, 4096))
}

func TestOpenNonWritableMissingFileErrors(t *testing.T) {
	path := tempPath(t, "missing")

	_, err := Open(path, false, 0)
	assert.Error(t, err)
}
