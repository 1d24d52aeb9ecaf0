package kvstore

import "path/filepath"
import "strconv"


//============================================= Path Helpers


// configFilePath
//	<db>/config.bin
func configFilePath(dbName string) string {
	return filepath.Join(dbName, "config.bin")
}

// metadataFilePath
//	<db>/meta.bin
func metadataFilePath(dbName string) string {
	return filepath.Join(dbName, "meta.bin")
}

// levelDirPath
//	<db>/<level>/
func levelDirPath(dbName string, level Level) string {
	return filepath.Join(dbName, strconv.Itoa(level))
}

// sstFilePath
//	<db>/<level>/<run>.sst
func sstFilePath(dbName string, level Level, run RunIndex) string {
	return filepath.Join(levelDirPath(dbName, level), strconv.Itoa(run)+".sst")
}

// btreeFilePath
//	<db>/<level>/<run>.btree
func btreeFilePath(dbName string, level Level, run RunIndex) string {
	return filepath.Join(levelDirPath(dbName, level), strconv.Itoa(run)+".btree")
}

// bloomFilePath
//	<db>/<level>/<run>.bloom
func bloomFilePath(dbName string, level Level, run RunIndex) string {
	return filepath.Join(levelDirPath(dbName, level), strconv.Itoa(run)+".bloom")
}

// compactionScratchPath
//	<db>/<level>/compaction.bin, the scratch file a compaction writes to
//	before renaming it to run 0 on success.
func compactionScratchPath(dbName string, level Level) string {
	return filepath.Join(levelDirPath(dbName, level), "compaction.bin")
}
