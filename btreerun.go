package kvstore

import "os"


//============================================= B-tree Run


// btreeLevelCounts
//	Computes, root-first, the number of inner-node pages at each depth
//	of the static B-tree index covering L leaf pages with the given
//	fanout. Purely a function of (L, fanout) so both index construction
//	and navigation derive the same layout independently.
func btreeLevelCounts(numLeaves int, fanout int) []int {
	if numLeaves <= 1 { return nil }

	var bottomUp []int
	length := numLeaves
	for length > 1 {
		length = ceilDiv(length, fanout)
		bottomUp = append(bottomUp, length)
	}

	rootFirst := make([]int, len(bottomUp))
	for i, v := range bottomUp {
		rootFirst[len(bottomUp)-1-i] = v
	}
	return rootFirst
}

// btreePageIndex
//	Page index within the index file of the node at depth with sibling
//	index sibling, given the root-first level counts.
func btreePageIndex(levelCounts []int, depth int, sibling int) int64 {
	var offset int64
	for d := 0; d < depth; d++ {
		offset += int64(levelCounts[d])
	}
	return offset + int64(sibling)
}

// hasBtreeIndex
//	True when entryCount exceeds one leaf page's worth of entries; runs
//	at or under that threshold have no index file and fall back to a
//	plain array scan.
func hasBtreeIndex(entryCount int, entriesPerPage int) bool {
	return entryCount > entriesPerPage
}

// writeBtreeIndex
//	Builds and writes the static B-tree index file for a run whose
//	entries are already on disk. Delimiters are the last key of each
//	leaf page; higher levels chunk the level below by fanout, keeping
//	the last key of each chunk as the next level's delimiter and storing
//	every key but the chunk's last (implicit) one in the node itself.
func writeBtreeIndex(dbName string, level Level, run RunIndex, entries []Entry, pageSize int) error {
	entriesPerPage := EntriesPerPage(pageSize)
	if !hasBtreeIndex(len(entries), entriesPerPage) { return nil }

	dir := levelDirPath(dbName, level)
	if err := os.MkdirAll(dir, 0755); err != nil { return newIOError("mkdir", dir, err) }

	return writeBtreeIndexToPath(btreeFilePath(dbName, level, run), entries, pageSize)
}

// writeBtreeIndexToPath
//	Same construction as writeBtreeIndex, but to an explicit path;
//	shared by normal run writes and by compaction's scratch-file output.
//	No file is written (and none is an error) when entries fit in one
//	leaf page — the degenerate array-run case.
func writeBtreeIndexToPath(path string, entries []Entry, pageSize int) error {
	entriesPerPage := EntriesPerPage(pageSize)
	numLeaves := ceilDiv(len(entries), entriesPerPage)

	if !hasBtreeIndex(len(entries), entriesPerPage) { return nil }

	fanout := Fanout(pageSize)
	levelCounts := btreeLevelCounts(numLeaves, fanout)

	leafDelims := make([]Key, numLeaves)
	for i := 0; i < numLeaves; i++ {
		lastIdx := (i+1)*entriesPerPage - 1
		if lastIdx >= len(entries) {
			lastIdx = len(entries) - 1
		}
		leafDelims[i] = entries[lastIdx].Key
	}

	pf, err := createPageFile(path, pageSize)
	if err != nil { return err }
	defer pf.Close()

	totalPages := int64(0)
	for _, c := range levelCounts {
		totalPages += int64(c)
	}
	if err := pf.Truncate(totalPages * int64(pageSize)); err != nil { return err }

	currentLevel := leafDelims
	for depth := len(levelCounts) - 1; depth >= 0; depth-- {
		nextLevel := make([]Key, 0, levelCounts[depth])

		for sibling := 0; sibling < levelCounts[depth]; sibling++ {
			start := sibling * fanout
			end := start + fanout
			if end > len(currentLevel) {
				end = len(currentLevel)
			}
			chunk := currentLevel[start:end]

			nodeDelims := chunk
			if len(chunk) > 0 {
				nodeDelims = chunk[:len(chunk)-1]
			}

			page := serializeInnerNode(nodeDelims, pageSize)
			pageIdx := btreePageIndex(levelCounts, depth, sibling)
			if err := pf.WriteAt(page, pageIdx*int64(pageSize)); err != nil { return err }

			nextLevel = append(nextLevel, chunk[len(chunk)-1])
		}

		currentLevel = nextLevel
	}

	return nil
}

// btreeNavigate
//	Descends the static B-tree index from the root to the leaf page that
//	would contain key, returning the leaf's page index within the entry
//	file.
func btreeNavigate(pf *PageFile, bufferPool *BufferPool, path string, key Key, entryCount int, pageSize int) (PageIndex, error) {
	entriesPerPage := EntriesPerPage(pageSize)
	numLeaves := ceilDiv(entryCount, entriesPerPage)
	fanout := Fanout(pageSize)

	levelCounts := btreeLevelCounts(numLeaves, fanout)
	if levelCounts == nil { return 0, newConsistencyError("btreeNavigate called on a run with no index") }

	sibling := 0
	for depth := 0; depth < len(levelCounts); depth++ {
		pageIdx := btreePageIndex(levelCounts, depth, sibling)
		page, err := fetchPage(pf, bufferPool, path, PageIndex(pageIdx))
		if err != nil { return 0, err }

		delimiters, err := deserializeInnerNode(page, pageSize)
		if err != nil { return 0, err }

		i := binarySearchLeftmost(delimiters, key)
		if i == len(delimiters) {
			i = len(delimiters)
		}

		sibling = sibling*fanout + i
	}

	return PageIndex(sibling), nil
}

// btreeGet
//	Navigates to the candidate leaf page, then binary-searches within it
//	exactly as an array run would.
func btreeGet(entryPf, indexPf *PageFile, bufferPool *BufferPool, entryPath, indexPath string, key Key, entryCount int, pageSize int) (Value, bool, error) {
	entriesPerPage := EntriesPerPage(pageSize)

	if !hasBtreeIndex(entryCount, entriesPerPage) { return arrayGet(entryPf, bufferPool, entryPath, key, entryCount, pageSize) }

	leafPage, err := btreeNavigate(indexPf, bufferPool, indexPath, key, entryCount, pageSize)
	if err != nil { return 0, false, err }

	page, err := fetchPage(entryPf, bufferPool, entryPath, leafPage)
	if err != nil { return 0, false, err }

	slots := len(page) / EntrySize
	keys := make([]Key, slots)
	for i := 0; i < slots; i++ {
		keys[i] = deserializeEntryAt(page, i).Key
	}

	idx := binarySearchLeftmost(keys, key)
	if idx < slots && keys[idx] == key { return deserializeEntryAt(page, idx).Value, true, nil }
	return 0, false, nil
}

// btreeScan
//	Runs the same lower/upper-bound binary search over the entry file
//	that arrayScan uses and returns its result. The B-tree index is not
//	read: indexPf and indexPath are accepted but unused, and the bounds
//	are not narrowed by navigating the index.
func btreeScan(entryPf, indexPf *PageFile, bufferPool *BufferPool, entryPath, indexPath string, lo, hi Key, entryCount int, pageSize int) ([]Entry, error) {
	entriesPerPage := EntriesPerPage(pageSize)

	if lo > hi || entryCount == 0 { return nil, nil }

	if !hasBtreeIndex(entryCount, entriesPerPage) { return arrayScan(entryPf, bufferPool, entryPath, lo, hi, entryCount, pageSize) }

	// Full array-style bounded binary search over the entry file;
	// btreeNavigate is not called, so the search covers every entry.
	return arrayScan(entryPf, bufferPool, entryPath, lo, hi, entryCount, pageSize)
}
