package kvstore

import "testing"

import "github.com/stretchr/testify/assert"

func TestBufferPoolSizeNeverExceedsCapacity(t *testing.T) {
	bp := newBufferPool(4, 3, 16)

	for i := 0; i < 50; i++ {
		bp.insert("run.sst", PageIndex(i), []byte("0123456789abcdef"))
		assert.LessOrEqual(t, bp.size(), bp.capacityOf())
	}
	assert.Equal(t, 4, bp.size())
}

func TestBufferPoolGetHitAndMiss(t *testing.T) {
	bp := newBufferPool(8, 3, 16)
	bp.insert("a.sst", 0, []byte("0123456789abcdef"))

	data, ok := bp.get("a.sst", 0)
	assert.True(t, ok)
	assert.Equal(t, []byte("0123456789abcdef"), data)

	_, ok = bp.get("a.sst", 1)
	assert.False(t, ok)
}

func TestBufferPoolRemoveInvalidatesEveryFrameForPath(t *testing.T) {
	bp := newBufferPool(8, 3, 16)
	bp.insert("a.sst", 0, []byte("0123456789abcdef"))
	bp.insert("a.sst", 1, []byte("fedcba9876543210"))
	bp.insert("b.sst", 0, []byte("0000000000000000"))

	bp.remove("a.sst")

	_, ok := bp.get("a.sst", 0)
	assert.False(t, ok)
	_, ok = bp.get("a.sst", 1)
	assert.False(t, ok)
	_, ok = bp.get("b.sst", 0)
	assert.True(t, ok)
}

func TestBufferPoolRenameMovesEveryFrame(t *testing.T) {
	bp := newBufferPool(8, 3, 16)
	bp.insert("old.sst", 0, []byte("0123456789abcdef"))
	bp.insert("old.sst", 1, []byte("fedcba9876543210"))

	bp.rename("old.sst", "new.sst")

	_, ok := bp.get("old.sst", 0)
	assert.False(t, ok)
	_, ok = bp.get("old.sst", 1)
	assert.False(t, ok)

	data0, ok := bp.get("new.sst", 0)
	assert.True(t, ok)
	assert.Equal(t, []byte("0123456789abcdef"), data0)

	data1, ok := bp.get("new.sst", 1)
	assert.True(t, ok)
	assert.Equal(t, []byte("fedcba9876543210"), data1)
}

func TestBufferPoolSetCapacityEvictsImmediately(t *testing.T) {
	bp := newBufferPool(8, 3, 16)
	for i := 0; i < 8; i++ {
		bp.insert("a.sst", PageIndex(i), []byte("0123456789abcdef"))
	}
	assert.Equal(t, 8, bp.size())

	bp.setCapacity(3)
	assert.Equal(t, 3, bp.size())
	assert.LessOrEqual(t, bp.size(), bp.capacityOf())
}
