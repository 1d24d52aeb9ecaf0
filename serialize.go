package kvstore

import "encoding/binary"


//============================================= Entry Stream Serialization


// serializeEntries
//	Packs ascending entries as key_le || value_le, 16 bytes each, with no
//	padding applied here (padding to a minimum-write multiple is the
//	caller's concern, see nearestMinWriteMultiple).
func serializeEntries(entries []Entry) []byte {
	buf := make([]byte, len(entries)*EntrySize)
	for i, entry := range entries {
		off := i * EntrySize
		binary.LittleEndian.PutUint64(buf[off:off+8], uint64(entry.Key))
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(entry.Value))
	}
	return buf
}

// deserializeEntries
//	Inverts serializeEntries. buf's length must be an exact multiple of
//	EntrySize or a ConsistencyError is returned.
func deserializeEntries(buf []byte) ([]Entry, error) {
	if len(buf)%EntrySize != 0 { return nil, newConsistencyError("entry buffer length is not a multiple of entry size") }

	count := len(buf) / EntrySize
	entries := make([]Entry, count)
	for i := 0; i < count; i++ {
		off := i * EntrySize
		entries[i] = Entry{
			Key:   int64(binary.LittleEndian.Uint64(buf[off : off+8])),
			Value: int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
		}
	}
	return entries, nil
}

// deserializeEntryAt
//	Reads the single entry at byte offset idx*EntrySize within buf.
func deserializeEntryAt(buf []byte, idx int) Entry {
	off := idx * EntrySize
	return Entry{
		Key:   int64(binary.LittleEndian.Uint64(buf[off : off+8])),
		Value: int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
	}
}


//============================================= Inner-Node Serialization


// serializeInnerNode
//	Writes a single B-tree inner-node page: up to fanout-1 ascending
//	delimiter keys, zero-padded to pageSize, with a trailing 8-byte
//	little-endian count of the keys actually present.
func serializeInnerNode(delimiters []Key, pageSize int) []byte {
	fanout := Fanout(pageSize)
	maxKeys := fanout - 1

	if len(delimiters) > maxKeys {
		delimiters = delimiters[:maxKeys]
	}

	page := make([]byte, pageSize)
	for i, key := range delimiters {
		binary.LittleEndian.PutUint64(page[i*KeySize:(i+1)*KeySize], uint64(key))
	}
	binary.LittleEndian.PutUint64(page[pageSize-8:pageSize], uint64(len(delimiters)))

	return page
}

// deserializeInnerNode
//	Recovers the delimiter keys from a page serialized by
//	serializeInnerNode. page must be exactly pageSize bytes.
func deserializeInnerNode(page []byte, pageSize int) ([]Key, error) {
	if len(page) != pageSize { return nil, newConsistencyError("inner node page is not exactly one page long") }

	count := int64(binary.LittleEndian.Uint64(page[pageSize-8 : pageSize]))
	fanout := Fanout(pageSize)
	if count < 0 || count > int64(fanout-1) { return nil, newConsistencyError("inner node reports an impossible delimiter count") }

	keys := make([]Key, count)
	for i := int64(0); i < count; i++ {
		keys[i] = int64(binary.LittleEndian.Uint64(page[i*KeySize : (i+1)*KeySize]))
	}
	return keys, nil
}


//============================================= Write-Size Alignment


// minWriteSize
//	The smallest multiple in which writes to a run file are padded:
//	one eighth of a page.
func minWriteSize(pageSize int) int {
	return pageSize / 8
}

// nearestMinWriteMultiple
//	Rounds size up to the nearest multiple of the minimum write size.
func nearestMinWriteMultiple(size int, pageSize int) int {
	mws := minWriteSize(pageSize)
	if mws <= 0 { return size }
	return ceilDiv(size, mws) * mws
}

// ceilDiv
//	Integer ceiling division for non-negative operands.
func ceilDiv(a, b int) int {
	if b == 0 { return 0 }
	return (a + b - 1) / b
}
