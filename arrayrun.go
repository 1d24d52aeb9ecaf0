package kvstore

import "os"


//============================================= Array Run


// writeArrayEntries
//	Serializes ascending entries to the .sst file at (dbName, level,
//	run), padding to a minimum-write multiple and truncating to the
//	exact byte length.
func writeArrayEntries(dbName string, level Level, run RunIndex, entries []Entry, pageSize int) error {
	dir := levelDirPath(dbName, level)
	if err := os.MkdirAll(dir, 0755); err != nil { return newIOError("mkdir", dir, err) }

	return writeEntriesToPath(sstFilePath(dbName, level, run), entries, pageSize)
}

// writeEntriesToPath
//	Same serialization as writeArrayEntries, but to an explicit path;
//	shared by normal run writes and by compaction's scratch-file output.
func writeEntriesToPath(path string, entries []Entry, pageSize int) error {
	pf, err := createPageFile(path, pageSize)
	if err != nil { return err }
	defer pf.Close()

	return pf.WriteAll(serializeEntries(entries))
}

// entryCountFromFileLength
//	Recovers an entry count from a file's exact byte length, failing if
//	the length is not a whole number of entries.
func entryCountFromFileLength(length int64) (int, error) {
	if length%EntrySize != 0 { return 0, newConsistencyError("entry file length is not a multiple of entry size") }
	return int(length / EntrySize), nil
}

// arrayEntryAt
//	Fetches the single entry at logical index idx within an entry file
//	of entriesPerPage entries per page, routing the page read through
//	the buffer pool when provided.
func arrayEntryAt(pf *PageFile, bufferPool *BufferPool, path string, idx int, entriesPerPage int) (Entry, error) {
	pageIndex := PageIndex(idx / entriesPerPage)
	slot := idx % entriesPerPage

	page, err := fetchPage(pf, bufferPool, path, pageIndex)
	if err != nil { return Entry{}, err }
	if (slot+1)*EntrySize > len(page) { return Entry{}, newConsistencyError("entry slot falls outside the page read from disk") }

	return deserializeEntryAt(page, slot), nil
}

// arrayGet
//	Standard binary search over the logical entry array of an array run,
//	translating entry indices to (page_index, slot_index) and caching
//	the last page read to avoid re-fetching the same page across probes.
//	Tombstone values are returned verbatim; only the engine converts them
//	to absence.
func arrayGet(pf *PageFile, bufferPool *BufferPool, path string, key Key, count int, pageSize int) (Value, bool, error) {
	entriesPerPage := EntriesPerPage(pageSize)

	var cachedPageIndex PageIndex = -1
	var cachedPage []byte

	readAt := func(idx int) (Entry, error) {
		pageIndex := PageIndex(idx / entriesPerPage)
		slot := idx % entriesPerPage

		if pageIndex != cachedPageIndex {
			page, err := fetchPage(pf, bufferPool, path, pageIndex)
			if err != nil { return Entry{}, err }
			cachedPage = page
			cachedPageIndex = pageIndex
		}

		if (slot+1)*EntrySize > len(cachedPage) { return Entry{}, newConsistencyError("entry slot falls outside the page read from disk") }
		return deserializeEntryAt(cachedPage, slot), nil
	}

	lo, hi := 0, count-1
	for lo <= hi {
		mid := (lo + hi) / 2
		entry, err := readAt(mid)
		if err != nil { return 0, false, err }

		switch {
		case entry.Key == key:
			return entry.Value, true, nil
		case entry.Key < key:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}

	return 0, false, nil
}

// arrayScan
//	Finds the leftmost index with key >= lo and the rightmost index with
//	key <= hi via two bounded binary searches, then concatenates: the
//	tail of the lower-bound page, every whole page strictly between, and
//	the prefix of the upper-bound page. Each page in that span is fetched
//	once regardless of how many entries within it are read, via the same
//	single-page local cache arrayGet uses.
func arrayScan(pf *PageFile, bufferPool *BufferPool, path string, lo, hi Key, count int, pageSize int) ([]Entry, error) {
	if lo > hi || count == 0 { return nil, nil }

	entriesPerPage := EntriesPerPage(pageSize)

	loIdx, err := arrayLowerBoundIndex(pf, bufferPool, path, lo, count, entriesPerPage)
	if err != nil { return nil, err }
	hiIdx, err := arrayUpperBoundIndex(pf, bufferPool, path, hi, count, entriesPerPage)
	if err != nil { return nil, err }

	if loIdx > hiIdx || loIdx >= count || hiIdx < 0 { return nil, nil }

	var cachedPageIndex PageIndex = -1
	var cachedPage []byte

	readAt := func(idx int) (Entry, error) {
		pageIndex := PageIndex(idx / entriesPerPage)
		slot := idx % entriesPerPage

		if pageIndex != cachedPageIndex {
			page, err := fetchPage(pf, bufferPool, path, pageIndex)
			if err != nil { return Entry{}, err }
			cachedPage = page
			cachedPageIndex = pageIndex
		}

		if (slot+1)*EntrySize > len(cachedPage) { return Entry{}, newConsistencyError("entry slot falls outside the page read from disk") }
		return deserializeEntryAt(cachedPage, slot), nil
	}

	result := make([]Entry, 0, hiIdx-loIdx+1)
	for idx := loIdx; idx <= hiIdx; idx++ {
		entry, err := readAt(idx)
		if err != nil { return nil, err }
		result = append(result, entry)
	}

	return result, nil
}

// arrayLowerBoundIndex
//	Index of the leftmost entry with key >= target, or count if none.
func arrayLowerBoundIndex(pf *PageFile, bufferPool *BufferPool, path string, target Key, count int, entriesPerPage int) (int, error) {
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		entry, err := arrayEntryAt(pf, bufferPool, path, mid, entriesPerPage)
		if err != nil { return 0, err }
		if entry.Key < target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo, nil
}

// arrayUpperBoundIndex
//	Index of the rightmost entry with key <= target, or -1 if none.
func arrayUpperBoundIndex(pf *PageFile, bufferPool *BufferPool, path string, target Key, count int, entriesPerPage int) (int, error) {
	lo, hi := 0, count
	for lo < hi {
		mid := (lo + hi) / 2
		entry, err := arrayEntryAt(pf, bufferPool, path, mid, entriesPerPage)
		if err != nil { return 0, err }
		if entry.Key <= target {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	return lo - 1, nil
}

// readAllArrayEntries
//	Reads every entry in the run, in order, for use by compaction.
//	Bypasses the buffer pool since every page is touched exactly once.
func readAllArrayEntries(path string, pageSize int) ([]Entry, error) {
	pf, err := openPageFile(path, pageSize)
	if err != nil { return nil, err }
	defer pf.Close()

	size, err := pf.Size()
	if err != nil { return nil, err }

	buf := make([]byte, size)
	if size > 0 {
		if err := readFull(pf, buf); err != nil { return nil, err }
	}

	return deserializeEntries(buf)
}

// readFull reads exactly len(buf) bytes from the start of pf's file.
func readFull(pf *PageFile, buf []byte) error {
	n, err := pf.file.ReadAt(buf, 0)
	if err != nil && n != len(buf) { return newIOError("read", pf.path, err) }
	return nil
}
