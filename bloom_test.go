package kvstore

import "path/filepath"
import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestBloomFilterContainsEveryInsertedKey(t *testing.T) {
	entries := make([]Entry, 0, 200)
	for i := 0; i < 200; i++ {
		entries = append(entries, Entry{Key: Key(i * 7), Value: Key(i)})
	}

	filter := buildBloomFilter(entries, 8)
	for _, e := range entries {
		assert.True(t, filter.contains(e.Key))
	}
}

func TestBloomFilterOnDiskMatchesInMemory(t *testing.T) {
	pageSize := 64
	entries := make([]Entry, 0, 50)
	for i := 0; i < 50; i++ {
		entries = append(entries, Entry{Key: Key(i * 3), Value: Key(i)})
	}

	filter := buildBloomFilter(entries, 8)
	path := filepath.Join(t.TempDir(), "run.bloom")
	require.NoError(t, writeBloomToPath(path, filter, pageSize))

	pf, err := openPageFile(path, pageSize)
	require.NoError(t, err)
	t.Cleanup(func() { pf.Close() })

	for _, e := range entries {
		present, err := bloomContainsOnDisk(pf, nil, path, e.Key, len(entries), 8, pageSize)
		require.NoError(t, err)
		assert.True(t, present)
	}
}

func TestNumHashFunctionsIsAtLeastOne(t *testing.T) {
	assert.Equal(t, 1, numHashFunctions(0))
	assert.GreaterOrEqual(t, numHashFunctions(1), 1)
	assert.Greater(t, numHashFunctions(10), numHashFunctions(1))
}
