package kvstore

import "math"
import "os"

import "github.com/cespare/xxhash/v2"


//============================================= Bloom Filter


// numHashFunctions
//	k = max(1, ceil(bpe * ln 2)), minimizing false positives for large n.
func numHashFunctions(bitsPerEntry int) int {
	k := int(math.Ceil(float64(bitsPerEntry) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return k
}

// bloomBitmapLen
//	Bitmap length in bytes for n entries at bitsPerEntry bits each.
func bloomBitmapLen(n int, bitsPerEntry int) int {
	return ceilDiv(n*bitsPerEntry, 8)
}

// hashKey
//	Stable keyed 64-bit hash of key under seed, built on
//	github.com/cespare/xxhash/v2. Stable across process runs so a filter
//	file written by one process reopens correctly in another: xxhash's
//	digest is a pure function of its input bytes.
func hashKey(key Key, seed uint64) uint64 {
	var buf [16]byte
	putUint64LE(buf[0:8], uint64(key))
	putUint64LE(buf[8:16], seed)
	return xxhash.Sum64(buf[:])
}

func putUint64LE(dst []byte, v uint64) {
	for i := 0; i < 8; i++ {
		dst[i] = byte(v >> (8 * i))
	}
}

// BloomFilter
//	In-memory bitmap used while building a filter during flush/compact.
type BloomFilter struct {
	bitmap       []byte
	bitsPerEntry int
	k            int
}

// newBloomFilter
//	Creates an empty filter sized for numEntries at bitsPerEntry bits
//	each.
func newBloomFilter(numEntries int, bitsPerEntry int) *BloomFilter {
	return &BloomFilter{
		bitmap:       make([]byte, bloomBitmapLen(numEntries, bitsPerEntry)),
		bitsPerEntry: bitsPerEntry,
		k:            numHashFunctions(bitsPerEntry),
	}
}

// buildBloomFilter
//	Builds a filter containing every key in entries.
func buildBloomFilter(entries []Entry, bitsPerEntry int) *BloomFilter {
	filter := newBloomFilter(len(entries), bitsPerEntry)
	for _, entry := range entries {
		filter.insert(entry.Key)
	}
	return filter
}

func (bf *BloomFilter) numBits() int {
	return len(bf.bitmap) * 8
}

func (bf *BloomFilter) insert(key Key) {
	m := bf.numBits()
	if m == 0 { return }
	for seed := 0; seed < bf.k; seed++ {
		idx := int(hashKey(key, uint64(seed)) % uint64(m))
		byteIdx, bitIdx := idx/8, idx%8
		bf.bitmap[byteIdx] |= 1 << uint(bitIdx)
	}
}

// contains
//	In-memory membership test against the bitmap held by bf; the
//	engine's lookups use the on-disk path, bloomContainsOnDisk below.
func (bf *BloomFilter) contains(key Key) bool {
	m := bf.numBits()
	if m == 0 { return false }
	for seed := 0; seed < bf.k; seed++ {
		idx := int(hashKey(key, uint64(seed)) % uint64(m))
		byteIdx, bitIdx := idx/8, idx%8
		if bf.bitmap[byteIdx]&(1<<uint(bitIdx)) == 0 { return false }
	}
	return true
}

// writeBloomFilter
//	Persists the filter's bitmap to the .bloom file for (dbName, level,
//	run).
func writeBloomFilter(dbName string, level Level, run RunIndex, filter *BloomFilter, pageSize int) error {
	dir := levelDirPath(dbName, level)
	if err := os.MkdirAll(dir, 0755); err != nil { return newIOError("mkdir", dir, err) }

	return writeBloomToPath(bloomFilePath(dbName, level, run), filter, pageSize)
}

// writeBloomToPath
//	Same as writeBloomFilter, but to an explicit path; shared by normal
//	run writes and by compaction's scratch-file output.
func writeBloomToPath(path string, filter *BloomFilter, pageSize int) error {
	pf, err := createPageFile(path, pageSize)
	if err != nil { return err }
	defer pf.Close()

	return pf.WriteAll(filter.bitmap)
}

// bloomContainsOnDisk
//	Tests membership by reading only the pages containing the tested
//	bits, through the buffer pool, caching the last page read locally
//	rather than loading the whole bitmap.
func bloomContainsOnDisk(pf *PageFile, bufferPool *BufferPool, path string, key Key, entryCount int, bitsPerEntry int, pageSize int) (bool, error) {
	m := bloomBitmapLen(entryCount, bitsPerEntry) * 8
	if m == 0 { return false, nil }
	k := numHashFunctions(bitsPerEntry)
	bitsPerPage := pageSize * 8

	var cachedPageIndex PageIndex = -1
	var cachedPage []byte

	for seed := 0; seed < k; seed++ {
		idx := int(hashKey(key, uint64(seed)) % uint64(m))
		pageIdx := PageIndex(idx / bitsPerPage)
		bitInPage := idx % bitsPerPage
		byteIdx, bitIdx := bitInPage/8, bitInPage%8

		if pageIdx != cachedPageIndex {
			page, err := fetchPage(pf, bufferPool, path, pageIdx)
			if err != nil { return false, err }
			cachedPage = page
			cachedPageIndex = pageIdx
		}

		if byteIdx >= len(cachedPage) || cachedPage[byteIdx]&(1<<uint(bitIdx)) == 0 { return false, nil }
	}

	return true, nil
}
