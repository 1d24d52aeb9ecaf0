package kvstore

import "testing"

import "github.com/stretchr/testify/assert"
import "github.com/stretchr/testify/require"

func TestEntrySerializationRoundTrip(t *testing.T) {
	entries := []Entry{{0, 1}, {10, 100}, {20, 200}, {40, 400}}

	buf := serializeEntries(entries)
	assert.Len(t, buf, len(entries)*EntrySize)

	decoded, err := deserializeEntries(buf)
	require.NoError(t, err)
	assert.Equal(t, entries, decoded)

	for i, entry := range entries {
		assert.Equal(t, entry, deserializeEntryAt(buf, i))
	}
}

func TestDeserializeEntriesRejectsMisalignedLength(t *testing.T) {
	_, err := deserializeEntries(make([]byte, EntrySize+1))
	require.Error(t, err)

	var consistencyErr *ConsistencyError
	assert.ErrorAs(t, err, &consistencyErr)
}

func TestInnerNodeSerializationRoundTrip(t *testing.T) {
	pageSize := 64 // fanout = 8, max 7 delimiters
	delimiters := []Key{1, 5, 9, 20}

	page := serializeInnerNode(delimiters, pageSize)
	assert.Len(t, page, pageSize)

	decoded, err := deserializeInnerNode(page, pageSize)
	require.NoError(t, err)
	assert.Equal(t, delimiters, decoded)
}

func TestInnerNodeSerializationTruncatesExcessDelimiters(t *testing.T) {
	pageSize := 64 // fanout = 8, max 7 delimiters
	delimiters := []Key{1, 2, 3, 4, 5, 6, 7, 8, 9}

	page := serializeInnerNode(delimiters, pageSize)
	decoded, err := deserializeInnerNode(page, pageSize)
	require.NoError(t, err)
	assert.Equal(t, delimiters[:7], decoded)
}

func TestDeserializeInnerNodeRejectsWrongLength(t *testing.T) {
	_, err := deserializeInnerNode(make([]byte, 10), 64)
	require.Error(t, err)
}

func TestNearestMinWriteMultiple(t *testing.T) {
	pageSize := 4096
	mws := minWriteSize(pageSize)

	assert.Equal(t, 0, nearestMinWriteMultiple(0, pageSize))
	assert.Equal(t, mws, nearestMinWriteMultiple(1, pageSize))
	assert.Equal(t, mws, nearestMinWriteMultiple(mws, pageSize))
	assert.Equal(t, mws*2, nearestMinWriteMultiple(mws+1, pageSize))
}
