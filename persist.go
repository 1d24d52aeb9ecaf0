package kvstore

import "bytes"
import "encoding/binary"
import "os"

import atomicfile "github.com/natefinch/atomic"


//============================================= Config/Metadata Persistence


// writeConfig
//	Atomically replaces config.bin with cfg's serialized form, using
//	natefinch/atomic so a crash mid-write never leaves a half-written
//	file behind.
func writeConfig(dbName string, cfg Config) error {
	path := configFilePath(dbName)

	var buf bytes.Buffer
	fields := []int64{
		int64(cfg.MemtableCapacity),
		int64(cfg.SSTSizeRatio),
		int64(cfg.SSTImplementation),
		int64(cfg.SSTSearchAlgorithm),
		boolToInt64(cfg.EnableBufferPool),
		int64(cfg.BufferPoolCapacity),
		int64(cfg.BufferPoolInitialSize),
		int64(cfg.CompactionPolicy),
		boolToInt64(cfg.EnableBloomFilter),
		int64(cfg.BloomFilterBitsPerEntry),
	}
	for _, f := range fields {
		if err := binary.Write(&buf, binary.LittleEndian, f); err != nil { return newIOError("serialize", path, err) }
	}

	if err := atomicfile.WriteFile(path, &buf); err != nil { return newIOError("write", path, err) }
	return nil
}

// readConfig
//	Reads and deserializes config.bin written by writeConfig.
func readConfig(dbName string) (Config, error) {
	path := configFilePath(dbName)

	data, err := os.ReadFile(path)
	if err != nil { return Config{}, newConfigError(path, err) }

	fields := make([]int64, 10)
	reader := bytes.NewReader(data)
	for i := range fields {
		if err := binary.Read(reader, binary.LittleEndian, &fields[i]); err != nil { return Config{}, newConfigError(path, err) }
	}

	return Config{
		MemtableCapacity:        int(fields[0]),
		SSTSizeRatio:            int(fields[1]),
		SSTImplementation:       SstImplementation(fields[2]),
		SSTSearchAlgorithm:      SearchAlgorithm(fields[3]),
		EnableBufferPool:        fields[4] != 0,
		BufferPoolCapacity:      int(fields[5]),
		BufferPoolInitialSize:   int(fields[6]),
		CompactionPolicy:        CompactionPolicy(fields[7]),
		EnableBloomFilter:       fields[8] != 0,
		BloomFilterBitsPerEntry: int(fields[9]),
	}, nil
}

// writeMetadata
//	Atomically replaces meta.bin with meta's serialized entry_counts.
func writeMetadata(dbName string, meta *Metadata) error {
	path := metadataFilePath(dbName)

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, int64(len(meta.EntryCounts))); err != nil { return newIOError("serialize", path, err) }
	for _, level := range meta.EntryCounts {
		if err := binary.Write(&buf, binary.LittleEndian, int64(len(level))); err != nil { return newIOError("serialize", path, err) }
		for _, count := range level {
			if err := binary.Write(&buf, binary.LittleEndian, int64(count)); err != nil { return newIOError("serialize", path, err) }
		}
	}

	if err := atomicfile.WriteFile(path, &buf); err != nil { return newIOError("write", path, err) }
	return nil
}

// readMetadata
//	Reads and deserializes meta.bin written by writeMetadata.
func readMetadata(dbName string) (*Metadata, error) {
	path := metadataFilePath(dbName)

	data, err := os.ReadFile(path)
	if err != nil { return nil, newConfigError(path, err) }
	reader := bytes.NewReader(data)

	var numLevels int64
	if err := binary.Read(reader, binary.LittleEndian, &numLevels); err != nil { return nil, newConfigError(path, err) }

	meta := newMetadata()
	for l := int64(0); l < numLevels; l++ {
		var numRuns int64
		if err := binary.Read(reader, binary.LittleEndian, &numRuns); err != nil { return nil, newConfigError(path, err) }
		runs := make([]int, numRuns)
		for r := int64(0); r < numRuns; r++ {
			var count int64
			if err := binary.Read(reader, binary.LittleEndian, &count); err != nil { return nil, newConfigError(path, err) }
			runs[r] = int(count)
		}
		meta.EntryCounts = append(meta.EntryCounts, runs)
	}

	return meta, nil
}

func boolToInt64(b bool) int64 {
	if b { return 1 }
	return 0
}
