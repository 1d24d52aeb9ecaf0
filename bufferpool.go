package kvstore

import "container/list"
import "sync"

import "github.com/cespare/xxhash/v2"


//============================================= Buffer Pool


// frameKey
//	Identifies a cached page uniquely within a Database.
type frameKey struct {
	path string
	page PageIndex
}

// frameEntry
//	A live cached page plus enough bookkeeping to locate it within its
//	bucket's recency list in O(1).
type frameEntry struct {
	bucketIdx int
	elem      *list.Element
	data      []byte
}

// bucket
//	One hash bucket of the buffer pool. refBit is the bucket-level
//	reference bit the clock hand inspects; order holds live frameKeys
//	for this bucket, most-recently-accessed at the front.
type bucket struct {
	refBit bool
	order  *list.List
}

// BufferPool
//	Bounded cache of pages keyed by (path, page_index), organized into
//	hash buckets with a rotating clock hand for eviction. Frame byte
//	slices are recycled through a sync.Pool so steady-state operation
//	does not keep allocating page-sized buffers.
type BufferPool struct {
	capacity  int
	pageSize  int
	buckets   []*bucket
	frames    map[frameKey]*frameEntry
	pathIndex map[string]map[frameKey]struct{}
	clockHand int
	bufPool   sync.Pool
}

// newBufferPool
//	Creates a buffer pool with the given frame capacity and the given
//	number of hash buckets (buffer_pool_initial_size).
func newBufferPool(capacity, numBuckets, pageSize int) *BufferPool {
	if numBuckets < 1 {
		numBuckets = 1
	}

	buckets := make([]*bucket, numBuckets)
	for i := range buckets {
		buckets[i] = &bucket{order: list.New()}
	}

	bp := &BufferPool{
		capacity:  capacity,
		pageSize:  pageSize,
		buckets:   buckets,
		frames:    make(map[frameKey]*frameEntry),
		pathIndex: make(map[string]map[frameKey]struct{}),
	}
	bp.bufPool.New = func() interface{} {
		return make([]byte, pageSize)
	}

	return bp
}

// bucketFor
//	Hash-distributes a frameKey across buckets using the same stable
//	keyed hash the Bloom filter uses (cespare/xxhash), so the buffer
//	pool needs no hash function of its own.
func (bp *BufferPool) bucketFor(key frameKey) int {
	h := xxhash.Sum64String(key.path)
	h ^= uint64(key.page) + 0x9e3779b97f4a7c15 + (h << 6) + (h >> 2)
	return int(h % uint64(len(bp.buckets)))
}

// get
//	Returns a cached copy of the page at (path, page) and marks its
//	frame recently used, or reports absence.
func (bp *BufferPool) get(path string, page PageIndex) ([]byte, bool) {
	key := frameKey{path: path, page: page}
	fe, ok := bp.frames[key]
	if !ok { return nil, false }

	b := bp.buckets[fe.bucketIdx]
	b.order.MoveToFront(fe.elem)
	b.refBit = true

	out := make([]byte, len(fe.data))
	copy(out, fe.data)
	return out, true
}

// insert
//	Stores bytes for (path, page), evicting if at capacity so at least
//	one slot stays free. Overwrites an existing frame for the same key
//	in place.
func (bp *BufferPool) insert(path string, page PageIndex, data []byte) {
	key := frameKey{path: path, page: page}

	if fe, ok := bp.frames[key]; ok {
		fe.data = append(fe.data[:0], data...)
		b := bp.buckets[fe.bucketIdx]
		b.order.MoveToFront(fe.elem)
		b.refBit = true
		return
	}

	if bp.capacity > 0 && len(bp.frames) >= bp.capacity {
		bp.evict(1)
	}

	stored := bp.bufPool.Get().([]byte)
	if cap(stored) < len(data) {
		stored = make([]byte, len(data))
	}
	stored = stored[:len(data)]
	copy(stored, data)

	bIdx := bp.bucketFor(key)
	elem := bp.buckets[bIdx].order.PushFront(key)
	bp.buckets[bIdx].refBit = true
	bp.frames[key] = &frameEntry{bucketIdx: bIdx, elem: elem, data: stored}

	if bp.pathIndex[path] == nil {
		bp.pathIndex[path] = make(map[frameKey]struct{})
	}
	bp.pathIndex[path][key] = struct{}{}
}

// evict
//	Advances the clock hand, clearing reference bits on buckets it finds
//	set, and evicting the least-recently-accessed frame of the first
//	bucket it finds with an unset bit and at least one frame.
func (bp *BufferPool) evict(n int) {
	numBuckets := len(bp.buckets)

	for evicted := 0; evicted < n && len(bp.frames) > 0; {
		visited := 0
		for visited < numBuckets*2 {
			b := bp.buckets[bp.clockHand]
			bp.clockHand = (bp.clockHand + 1) % numBuckets
			visited++

			if b.refBit {
				b.refBit = false
				continue
			}

			if b.order.Len() == 0 {
				continue
			}

			back := b.order.Back()
			key := back.Value.(frameKey)
			b.order.Remove(back)

			if fe, ok := bp.frames[key]; ok {
				bp.bufPool.Put(fe.data[:0])
				delete(bp.frames, key)
			}
			if set, ok := bp.pathIndex[key.path]; ok {
				delete(set, key)
				if len(set) == 0 {
					delete(bp.pathIndex, key.path)
				}
			}

			evicted++
			break
		}
	}
}

// remove
//	Invalidates every frame associated with path.
func (bp *BufferPool) remove(path string) {
	keys, ok := bp.pathIndex[path]
	if !ok { return }

	for key := range keys {
		fe, ok := bp.frames[key]
		if !ok {
			continue
		}
		bp.buckets[fe.bucketIdx].order.Remove(fe.elem)
		bp.bufPool.Put(fe.data[:0])
		delete(bp.frames, key)
	}

	delete(bp.pathIndex, path)
}

// rename
//	Rekeys every frame associated with oldPath so it is addressed under
//	newPath instead, leaving page indices and cached bytes untouched.
func (bp *BufferPool) rename(oldPath, newPath string) {
	keys, ok := bp.pathIndex[oldPath]
	if !ok { return }

	if bp.pathIndex[newPath] == nil {
		bp.pathIndex[newPath] = make(map[frameKey]struct{})
	}

	for oldKey := range keys {
		fe := bp.frames[oldKey]
		newKey := frameKey{path: newPath, page: oldKey.page}

		delete(bp.frames, oldKey)
		bp.frames[newKey] = fe
		fe.elem.Value = newKey
		bp.pathIndex[newPath][newKey] = struct{}{}
	}

	delete(bp.pathIndex, oldPath)
}

// setCapacity
//	Grows or shrinks the pool's frame capacity, evicting immediately if
//	the new capacity is below the current size.
func (bp *BufferPool) setCapacity(capacity int) {
	bp.capacity = capacity
	if capacity >= 0 && len(bp.frames) > capacity {
		bp.evict(len(bp.frames) - capacity)
	}
}

// size
//	Number of frames currently cached.
func (bp *BufferPool) size() int {
	return len(bp.frames)
}

// capacityOf
//	Current configured frame capacity.
func (bp *BufferPool) capacityOf() int {
	return bp.capacity
}
