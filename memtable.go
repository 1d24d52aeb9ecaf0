package kvstore

import "math"

import "github.com/google/btree"


//============================================= Memtable


// memtableDegree controls the branching factor of the underlying
// google/btree; it has no observable effect beyond performance.
const memtableDegree = 32


// memtableItem
//	Wraps a single Entry so the memtable's ordering is purely by Key,
//	regardless of Value (including a tombstone Value).
type memtableItem Entry

func (item memtableItem) Less(than btree.Item) bool {
	return item.Key < than.(memtableItem).Key
}


// Memtable
//	Ordered in-memory map from Key to Value, preserving insertion-time
//	overwrites. Backed by github.com/google/btree so put/get are
//	O(log n) and in-order traversal is deterministic ascending by key.
type Memtable struct {
	tree *btree.BTree
}

// newMemtable
//	Creates an empty memtable.
func newMemtable() *Memtable {
	return &Memtable{tree: btree.New(memtableDegree)}
}

// put
//	Inserts or overwrites the value for key.
func (mt *Memtable) put(key Key, value Value) {
	mt.tree.ReplaceOrInsert(memtableItem{Key: key, Value: value})
}

// get
//	Returns the value for key and whether it was present.
func (mt *Memtable) get(key Key) (Value, bool) {
	found := mt.tree.Get(memtableItem{Key: key})
	if found == nil { return 0, false }
	return found.(memtableItem).Value, true
}

// scan
//	Returns every entry with lo <= key <= hi in ascending order.
func (mt *Memtable) scan(lo, hi Key) []Entry {
	if lo > hi { return nil }

	entries := make([]Entry, 0)
	collect := func(item btree.Item) bool {
		entries = append(entries, Entry(item.(memtableItem)))
		return true
	}

	if hi == math.MaxInt64 {
		mt.tree.AscendGreaterOrEqual(memtableItem{Key: lo}, collect)
	} else {
		mt.tree.AscendRange(memtableItem{Key: lo}, memtableItem{Key: hi + 1}, collect)
	}

	return entries
}

// asSortedVector
//	Returns every entry currently held, in ascending key order.
func (mt *Memtable) asSortedVector() []Entry {
	entries := make([]Entry, 0, mt.tree.Len())
	mt.tree.Ascend(func(item btree.Item) bool {
		entries = append(entries, Entry(item.(memtableItem)))
		return true
	})

	return entries
}

// size
//	Number of entries currently held.
func (mt *Memtable) size() int {
	return mt.tree.Len()
}

// clear
//	Removes every entry, leaving the memtable empty.
func (mt *Memtable) clear() {
	mt.tree.Clear(false)
}
