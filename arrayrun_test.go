package kvstore

import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func writeTestEntries(t *testing.T, entries []Entry, pageSize int) (*PageFile, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "run.sst")

	require.NoError(t, writeEntriesToPath(path, entries, pageSize))

	pf, err := openPageFile(path, pageSize)
	require.NoError(t, err)
	t.Cleanup(func() { pf.Close() })

	return pf, path
}

func TestArrayGetFindsEveryKey(t *testing.T) {
	entries := []Entry{{0, 1}, {10, 100}, {20, 200}, {30, 300}, {40, 400}}
	pageSize := 32 // entries_per_page = 2
	pf, path := writeTestEntries(t, entries, pageSize)

	for _, e := range entries {
		value, found, err := arrayGet(pf, nil, path, e.Key, len(entries), pageSize)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, e.Value, value)
	}

	_, found, err := arrayGet(pf, nil, path, -1, len(entries), pageSize)
	require.NoError(t, err)
	assert.False(t, found)

	_, found, err = arrayGet(pf, nil, path, 300, len(entries), pageSize)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestArrayScanBoundaries(t *testing.T) {
	entries := []Entry{{0, 1}, {10, 100}, {20, 200}, {30, 300}, {40, 400}}
	pageSize := 32
	pf, path := writeTestEntries(t, entries, pageSize)

	t.Run("lo greater than hi returns empty", func(t *testing.T) {
		result, err := arrayScan(pf, nil, path, 50, 10, len(entries), pageSize)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("single matching point", func(t *testing.T) {
		result, err := arrayScan(pf, nil, path, 20, 20, len(entries), pageSize)
		require.NoError(t, err)
		assert.Equal(t, []Entry{{20, 200}}, result)
	})

	t.Run("single non-matching point", func(t *testing.T) {
		result, err := arrayScan(pf, nil, path, 21, 21, len(entries), pageSize)
		require.NoError(t, err)
		assert.Empty(t, result)
	})

	t.Run("bounded sub-range", func(t *testing.T) {
		result, err := arrayScan(pf, nil, path, 1, 19, len(entries), pageSize)
		require.NoError(t, err)
		assert.Equal(t, []Entry{{10, 100}}, result)
	})

	t.Run("full range", func(t *testing.T) {
		result, err := arrayScan(pf, nil, path, -1, 9999, len(entries), pageSize)
		require.NoError(t, err)
		assert.Equal(t, entries, result)
	})
}

func TestEntryCountFromFileLength(t *testing.T) {
	count, err := entryCountFromFileLength(EntrySize * 5)
	require.NoError(t, err)
	assert.Equal(t, 5, count)

	_, err = entryCountFromFileLength(EntrySize + 1)
	require.Error(t, err)
}

func TestReadAllArrayEntriesRoundTrip(t *testing.T) {
	entries := []Entry{{0, 1}, {10, 100}, {20, 200}}
	pageSize := 32
	_, path := writeTestEntries(t, entries, pageSize)

	decoded, err := readAllArrayEntries(path, pageSize)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)
}
