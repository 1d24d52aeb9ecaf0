package kvstore

import "os"
import "path/filepath"


//============================================= Flush & Compaction


// flush
//	Extracts the memtable as an ascending vector and writes it as a new
//	level-0 run, then hands off to compaction.
func (db *Database) flush() error {
	entries := db.memtable.asSortedVector()
	if len(entries) == 0 {
		db.memtable.clear()
		return nil
	}

	if db.levelZeroMovesOnFlush() {
		if err := db.moveRuns(LevelZero); err != nil { return err }
	}

	run := db.meta.runsAt(LevelZero)

	if err := db.writeRun(LevelZero, run, entries); err != nil { return err }

	db.meta.ensureLevel(LevelZero)
	db.meta.EntryCounts[LevelZero] = append(db.meta.EntryCounts[LevelZero], len(entries))
	db.memtable.clear()

	if db.cfg.CompactionPolicy == CompactionNone { return nil }
	return db.triggerCompaction(LevelZero)
}

// levelZeroMovesOnFlush
//	Reports whether flush should push level 0's existing runs down to
//	level 1 before writing the new one. Leveled relies on this: its own
//	triggerLeveled never acts on level 0, so a flush-time move is the
//	only thing keeping level 0 a singleton. Tiered and Dostoyevsky (while
//	level 0 is not yet the deepest level with data) instead let runs
//	accumulate at level 0 and rely on triggerTiered's own threshold
//	check to compact and move them once enough have built up.
func (db *Database) levelZeroMovesOnFlush() bool {
	switch db.cfg.CompactionPolicy {
	case CompactionLeveled:
		return true
	case CompactionDostoyevsky:
		return db.deepestLevelWithData() <= LevelZero
	default:
		return false
	}
}

// writeRun
//	Writes the entry file, and (per configuration) the B-tree index and
//	Bloom filter, for a brand-new run built from entries.
func (db *Database) writeRun(level Level, run RunIndex, entries []Entry) error {
	if err := writeArrayEntries(db.name, level, run, entries, db.pageSize); err != nil { return err }

	if db.cfg.SSTImplementation == SstBtree {
		if err := writeBtreeIndex(db.name, level, run, entries, db.pageSize); err != nil { return err }
	}

	if db.cfg.EnableBloomFilter {
		filter := buildBloomFilter(entries, db.cfg.BloomFilterBitsPerEntry)
		if err := writeBloomFilter(db.name, level, run, filter, db.pageSize); err != nil { return err }
	}

	return nil
}

// moveRuns
//	Atomically renames every run at level to level+1, allocating fresh
//	run indices at the destination tail, then considers compaction at
//	the destination.
func (db *Database) moveRuns(level Level) error {
	runs := db.meta.runsAt(level)
	if runs == 0 { return nil }

	dest := level + 1
	destStart := db.meta.runsAt(dest)

	for r := 0; r < runs; r++ {
		if err := db.renameRunFiles(level, r, dest, destStart+r); err != nil { return err }
	}

	db.meta.ensureLevel(dest)
	db.meta.EntryCounts[dest] = append(db.meta.EntryCounts[dest], db.meta.EntryCounts[level]...)
	db.meta.EntryCounts[level] = make([]int, 0)

	return db.triggerCompaction(dest)
}

// renameRunFiles
//	Renames a run's entry, B-tree, and Bloom files (whichever exist) to
//	their destination path, rekeying buffer pool frames to match.
func (db *Database) renameRunFiles(srcLevel Level, srcRun RunIndex, destLevel Level, destRun RunIndex) error {
	if err := ensureLevelDir(db.name, destLevel); err != nil { return err }

	pairs := [][2]string{
		{sstFilePath(db.name, srcLevel, srcRun), sstFilePath(db.name, destLevel, destRun)},
		{btreeFilePath(db.name, srcLevel, srcRun), btreeFilePath(db.name, destLevel, destRun)},
		{bloomFilePath(db.name, srcLevel, srcRun), bloomFilePath(db.name, destLevel, destRun)},
	}

	for _, pair := range pairs {
		oldPath, newPath := pair[0], pair[1]
		if !fileExists(oldPath) {
			continue
		}
		if err := renameFile(oldPath, newPath); err != nil { return err }
		if db.bufferPool != nil {
			db.bufferPool.rename(oldPath, newPath)
		}
	}

	return nil
}

// triggerCompaction
//	Dispatches to the configured compaction policy for level.
func (db *Database) triggerCompaction(level Level) error {
	switch db.cfg.CompactionPolicy {
	case CompactionNone:
		return nil
	case CompactionLeveled:
		return db.triggerLeveled(level)
	case CompactionTiered:
		return db.triggerTiered(level)
	case CompactionDostoyevsky:
		if level == db.deepestLevelWithData() { return db.triggerLeveled(level) }
		return db.triggerTiered(level)
	default:
		return nil
	}
}

// triggerLeveled
//	Level 0 never compacts internally. Every other level always compacts
//	on ingress; if the resulting entry count reaches the level's
//	capacity (size_ratio * memtable_capacity * size_ratio^(level-1)),
//	the compacted run moves down.
func (db *Database) triggerLeveled(level Level) error {
	if level == LevelZero { return nil }

	discard := level == db.deepestLevelWithData()
	if err := db.compactLevelNow(level, discard); err != nil { return err }

	threshold := db.cfg.SSTSizeRatio * db.cfg.MemtableCapacity
	for p := 1; p < level; p++ {
		threshold *= db.cfg.SSTSizeRatio
	}

	if db.totalEntriesAt(level) >= threshold { return db.moveRuns(level) }
	return nil
}

// triggerTiered
//	Does nothing until the level holds size_ratio runs, then compacts
//	all of them and moves the result down.
func (db *Database) triggerTiered(level Level) error {
	if db.meta.runsAt(level) < db.cfg.SSTSizeRatio { return nil }

	discard := level == db.deepestLevelWithData()
	if err := db.compactLevelNow(level, discard); err != nil { return err }
	return db.moveRuns(level)
}

func (db *Database) deepestLevelWithData() Level {
	deepest := -1
	for level, runs := range db.meta.EntryCounts {
		if len(runs) > 0 {
			deepest = level
		}
	}
	return deepest
}

func (db *Database) totalEntriesAt(level Level) int {
	total := 0
	if level < len(db.meta.EntryCounts) {
		for _, c := range db.meta.EntryCounts[level] {
			total += c
		}
	}
	return total
}

// compactLevelNow
//	k-way merges every run at level into a single ascending run written
//	to a scratch path, then deletes every superseded run and renames the
//	scratch files over run 0. A no-op when the level already holds at
//	most one run.
func (db *Database) compactLevelNow(level Level, discardTombstones bool) error {
	runs := db.meta.runsAt(level)
	if runs <= 1 { return nil }

	sources := make([]kWayMergeSource, 0, runs)
	for r := 0; r < runs; r++ {
		count := db.meta.EntryCounts[level][r]
		if count == 0 {
			continue
		}
		entries, err := readAllArrayEntries(sstFilePath(db.name, level, r), db.pageSize)
		if err != nil { return err }
		sources = append(sources, kWayMergeSource{entries: entries, runIndex: r})
	}

	merged := kWayMerge(sources, discardTombstones)

	if len(merged) == 0 {
		for r := 0; r < runs; r++ {
			db.removeRunFiles(level, r)
		}
		db.meta.EntryCounts[level] = make([]int, 0)
		return nil
	}

	entryScratch := compactionScratchPath(db.name, level)
	btreeScratch := filepath.Join(levelDirPath(db.name, level), "compaction.btree")
	bloomScratch := filepath.Join(levelDirPath(db.name, level), "compaction.bloom")

	if err := writeEntriesToPath(entryScratch, merged, db.pageSize); err != nil { return err }
	if db.cfg.SSTImplementation == SstBtree {
		if err := writeBtreeIndexToPath(btreeScratch, merged, db.pageSize); err != nil { return err }
	}
	if db.cfg.EnableBloomFilter {
		filter := buildBloomFilter(merged, db.cfg.BloomFilterBitsPerEntry)
		if err := writeBloomToPath(bloomScratch, filter, db.pageSize); err != nil { return err }
	}

	for r := 0; r < runs; r++ {
		db.removeRunFiles(level, r)
	}

	finalEntry := sstFilePath(db.name, level, 0)
	finalBtree := btreeFilePath(db.name, level, 0)
	finalBloom := bloomFilePath(db.name, level, 0)

	if err := renameFile(entryScratch, finalEntry); err != nil { return err }
	if fileExists(btreeScratch) {
		if err := renameFile(btreeScratch, finalBtree); err != nil { return err }
	}
	if fileExists(bloomScratch) {
		if err := renameFile(bloomScratch, finalBloom); err != nil { return err }
	}

	db.meta.EntryCounts[level] = []int{len(merged)}
	return nil
}

// removeRunFiles
//	Deletes a run's entry, B-tree, and Bloom files (whichever exist) and
//	invalidates any cached buffer pool frames for them.
func (db *Database) removeRunFiles(level Level, run RunIndex) {
	paths := []string{
		sstFilePath(db.name, level, run),
		btreeFilePath(db.name, level, run),
		bloomFilePath(db.name, level, run),
	}
	for _, path := range paths {
		_ = removeFile(path)
		if db.bufferPool != nil {
			db.bufferPool.remove(path)
		}
	}
}

func ensureLevelDir(dbName string, level Level) error {
	dir := levelDirPath(dbName, level)
	if fileExists(dir) { return nil }
	if err := os.MkdirAll(dir, 0755); err != nil { return newIOError("mkdir", dir, err) }
	return nil
}
