package kvstore

import "os"
import "sort"
import "strings"


//============================================= LSM Engine


// Database
//	The integrator component: memtable, runs, and compaction united
//	behind Open/Put/Delete/Get/Scan/Close. A Database handle is
//	single-threaded and owns its buffer pool and every file under its
//	directory exclusively.
type Database struct {
	name       string
	cfg        Config
	meta       *Metadata
	memtable   *Memtable
	bufferPool *BufferPool
	pageSize   int
	closed     bool
}

// Open
//	Creates name's directory and writes initial config/metadata if
//	absent, or loads the existing config/metadata if present, then
//	activates an empty memtable.
func Open(name string, cfg Config) (*Database, error) {
	return openWithPageSize(name, cfg, PageSize)
}

// openWithPageSize
//	Same as Open, but pins the page size explicitly; Open passes the
//	host page size, and the package's own tests call it directly with
//	small deterministic page sizes
//	to exercise multi-page and multi-level-B-tree scenarios without
//	generating gigabytes of fixture data.
func openWithPageSize(name string, cfg Config, pageSize int) (*Database, error) {
	if strings.TrimSpace(name) == "" { return nil, newUserInputError("open", ErrInvalidName) }
	if cfg.MemtableCapacity <= 0 || cfg.BufferPoolCapacity <= 0 || cfg.SSTSizeRatio <= 0 { return nil, newUserInputError("open", ErrNonPositiveCapacity) }

	db := &Database{name: name, memtable: newMemtable(), pageSize: pageSize}

	if !fileExists(name) {
		if err := os.MkdirAll(name, 0755); err != nil { return nil, newIOError("mkdir", name, err) }
		db.cfg = cfg
		db.meta = newMetadata()
		if err := writeConfig(name, db.cfg); err != nil { return nil, err }
		if err := writeMetadata(name, db.meta); err != nil { return nil, err }
	} else {
		loadedCfg, err := readConfig(name)
		if err != nil { return nil, err }
		loadedMeta, err := readMetadata(name)
		if err != nil { return nil, err }
		db.cfg = loadedCfg
		db.meta = loadedMeta
	}

	if db.cfg.EnableBufferPool {
		db.bufferPool = newBufferPool(db.cfg.BufferPoolCapacity, db.cfg.BufferPoolInitialSize, db.pageSize)
	}

	return db, nil
}

// Close
//	Flushes the memtable, persists config and metadata, and clears
//	in-memory state.
func (db *Database) Close() error {
	if db.closed { return nil }

	if db.memtable.size() > 0 {
		if err := db.flush(); err != nil { return err }
	}
	if err := writeConfig(db.name, db.cfg); err != nil { return err }
	if err := writeMetadata(db.name, db.meta); err != nil { return err }

	db.memtable.clear()
	db.closed = true
	return nil
}

// Put
//	Rejects the reserved tombstone value and forbidden key before
//	touching state, otherwise inserts (flushing first if the memtable is
//	already at capacity).
func (db *Database) Put(key Key, value Value) error {
	if key == ForbiddenKey { return newUserInputError("put", ErrForbiddenKey) }
	if value == TombstoneValue { return newUserInputError("put", ErrTombstoneValue) }
	return db.putUnchecked(key, value)
}

// Delete
//	Implemented as putUnchecked(key, tombstone).
func (db *Database) Delete(key Key) error {
	if key == ForbiddenKey { return newUserInputError("delete", ErrForbiddenKey) }
	return db.putUnchecked(key, TombstoneValue)
}

func (db *Database) putUnchecked(key Key, value Value) error {
	if db.memtable.size() >= db.cfg.MemtableCapacity {
		if err := db.flush(); err != nil { return err }
	}
	db.memtable.put(key, value)
	return nil
}

// Get
//	Checks the memtable first; otherwise iterates levels youngest first,
//	runs within a level youngest first, consulting each run's Bloom
//	filter before touching its files.
func (db *Database) Get(key Key) (Value, bool, error) {
	if value, ok := db.memtable.get(key); ok {
		if value == TombstoneValue { return 0, false, nil }
		return value, true, nil
	}

	for level := 0; level < len(db.meta.EntryCounts); level++ {
		runs := db.meta.runsAt(level)
		for run := runs - 1; run >= 0; run-- {
			count := db.meta.EntryCounts[level][run]
			if count == 0 {
				continue
			}

			value, found, err := db.getFromRun(level, run, count, key)
			if err != nil { return 0, false, err }
			if found {
				if value == TombstoneValue { return 0, false, nil }
				return value, true, nil
			}
		}
	}

	return 0, false, nil
}

func (db *Database) getFromRun(level Level, run RunIndex, count int, key Key) (Value, bool, error) {
	entryPath := sstFilePath(db.name, level, run)

	if db.cfg.EnableBloomFilter {
		bloomPath := bloomFilePath(db.name, level, run)
		if fileExists(bloomPath) {
			present, err := db.bloomContains(bloomPath, key, count)
			if err != nil { return 0, false, err }
			if !present { return 0, false, nil }
		}
	}

	entryPf, err := openPageFile(entryPath, db.pageSize)
	if err != nil { return 0, false, err }
	defer entryPf.Close()

	entriesPerPage := EntriesPerPage(db.pageSize)
	useBtree := db.cfg.SSTImplementation == SstBtree &&
		db.cfg.SSTSearchAlgorithm == SearchDefault &&
		hasBtreeIndex(count, entriesPerPage)

	if useBtree {
		btreePath := btreeFilePath(db.name, level, run)
		if fileExists(btreePath) {
			idxPf, err := openPageFile(btreePath, db.pageSize)
			if err != nil { return 0, false, err }
			defer idxPf.Close()
			return btreeGet(entryPf, idxPf, db.bufferPool, entryPath, btreePath, key, count, db.pageSize)
		}
	}

	return arrayGet(entryPf, db.bufferPool, entryPath, key, count, db.pageSize)
}

func (db *Database) bloomContains(bloomPath string, key Key, count int) (bool, error) {
	pf, err := openPageFile(bloomPath, db.pageSize)
	if err != nil { return false, err }
	defer pf.Close()
	return bloomContainsOnDisk(pf, db.bufferPool, bloomPath, key, count, db.cfg.BloomFilterBitsPerEntry, db.pageSize)
}

// Scan
//	Returns every key in [lo, hi] with its most-recent non-tombstone
//	value, in ascending order. Implemented as youngest-source-wins
//	deduplication: memtable first, then levels ascending with runs
//	within a level descending, so the first writer of a key to be seen
//	is always the most recent one.
func (db *Database) Scan(lo, hi Key) ([]Entry, error) {
	if lo > hi { return nil, nil }

	seen := make(map[Key]bool)
	values := make(map[Key]Entry)
	order := make([]Key, 0)

	absorb := func(entries []Entry) {
		for _, entry := range entries {
			if seen[entry.Key] {
				continue
			}
			seen[entry.Key] = true
			values[entry.Key] = entry
			order = append(order, entry.Key)
		}
	}

	absorb(db.memtable.scan(lo, hi))

	for level := 0; level < len(db.meta.EntryCounts); level++ {
		runs := db.meta.runsAt(level)
		for run := runs - 1; run >= 0; run-- {
			count := db.meta.EntryCounts[level][run]
			if count == 0 {
				continue
			}
			entries, err := db.scanRun(level, run, count, lo, hi)
			if err != nil { return nil, err }
			absorb(entries)
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	result := make([]Entry, 0, len(order))
	for _, key := range order {
		entry := values[key]
		if entry.Value == TombstoneValue {
			continue
		}
		result = append(result, entry)
	}

	return result, nil
}

func (db *Database) scanRun(level Level, run RunIndex, count int, lo, hi Key) ([]Entry, error) {
	entryPath := sstFilePath(db.name, level, run)
	entryPf, err := openPageFile(entryPath, db.pageSize)
	if err != nil { return nil, err }
	defer entryPf.Close()

	entriesPerPage := EntriesPerPage(db.pageSize)
	useBtree := db.cfg.SSTImplementation == SstBtree &&
		db.cfg.SSTSearchAlgorithm == SearchDefault &&
		hasBtreeIndex(count, entriesPerPage)

	if useBtree {
		btreePath := btreeFilePath(db.name, level, run)
		if fileExists(btreePath) {
			idxPf, err := openPageFile(btreePath, db.pageSize)
			if err != nil { return nil, err }
			defer idxPf.Close()
			return btreeScan(entryPf, idxPf, db.bufferPool, entryPath, btreePath, lo, hi, count, db.pageSize)
		}
	}

	return arrayScan(entryPf, db.bufferPool, entryPath, lo, hi, count, db.pageSize)
}
