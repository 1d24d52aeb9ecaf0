package kvstore

import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestBtreeLevelCountsMatchesClosedForm(t *testing.T) {
	// fanout = 2, 5 leaves: nodes(0)=1 (root), nodes(1)=2, nodes(2)=3 (leaves' parents).
	counts := btreeLevelCounts(5, 2)
	assert.Equal(t, []int{1, 2, 3}, counts)
}

func TestBtreeLevelCountsDegenerateCase(t *testing.T) {
	assert.Nil(t, btreeLevelCounts(1, 8))
	assert.Nil(t, btreeLevelCounts(0, 8))
}

func TestBtreeIndexThreeLevelsForFanoutSquaredPlusOne(t *testing.T) {
	// page_size 16 => entries_per_page 1, fanout = page_size/key_size = 2.
	// fanout^2 + 1 = 5 entries forces three inner-node levels.
	pageSize := 16
	entries := []Entry{{0, 0}, {1, 10}, {2, 20}, {3, 30}, {4, 40}}

	dir := t.TempDir()
	entryPath := filepath.Join(dir, "run.sst")
	indexPath := filepath.Join(dir, "run.btree")

	require.NoError(t, writeEntriesToPath(entryPath, entries, pageSize))
	require.NoError(t, writeBtreeIndexToPath(indexPath, entries, pageSize))

	entryPf, err := openPageFile(entryPath, pageSize)
	require.NoError(t, err)
	t.Cleanup(func() { entryPf.Close() })

	indexPf, err := openPageFile(indexPath, pageSize)
	require.NoError(t, err)
	t.Cleanup(func() { indexPf.Close() })

	numLeaves := 5
	for _, e := range entries {
		leafPage, err := btreeNavigate(indexPf, nil, indexPath, e.Key, len(entries), pageSize)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, int(leafPage), 0)
		assert.Less(t, int(leafPage), numLeaves)

		value, found, err := btreeGet(entryPf, indexPf, nil, entryPath, indexPath, e.Key, len(entries), pageSize)
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, e.Value, value)
	}

	_, found, err := btreeGet(entryPf, indexPf, nil, entryPath, indexPath, 99, len(entries), pageSize)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHasBtreeIndexDegenerateBoundary(t *testing.T) {
	entriesPerPage := EntriesPerPage(64)
	assert.False(t, hasBtreeIndex(entriesPerPage, entriesPerPage))
	assert.True(t, hasBtreeIndex(entriesPerPage+1, entriesPerPage))
}

func TestWriteBtreeIndexWritesNoFileForDegenerateRun(t *testing.T) {
	pageSize := 64
	entriesPerPage := EntriesPerPage(pageSize)
	entries := make([]Entry, entriesPerPage)
	for i := range entries {
		entries[i] = Entry{Key: Key(i), Value: Key(i) * 10}
	}

	path := filepath.Join(t.TempDir(), "degenerate.btree")
	require.NoError(t, writeBtreeIndexToPath(path, entries, pageSize))
	assert.False(t, fileExists(path))
}

func TestWriteBtreeIndexWritesFileOnePastDegenerateBoundary(t *testing.T) {
	pageSize := 64
	entriesPerPage := EntriesPerPage(pageSize)
	entries := make([]Entry, entriesPerPage+1)
	for i := range entries {
		entries[i] = Entry{Key: Key(i), Value: Key(i) * 10}
	}

	path := filepath.Join(t.TempDir(), "present.btree")
	require.NoError(t, writeBtreeIndexToPath(path, entries, pageSize))
	assert.True(t, fileExists(path))
}
