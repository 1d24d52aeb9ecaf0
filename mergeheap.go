package kvstore

import "container/heap"


//============================================= K-Way Merge


// mergeHeapItem
//	One candidate entry in the k-way merge, tagged with the run index it
//	came from so ties on key can be broken in favor of the younger
//	(higher-index) run.
type mergeHeapItem struct {
	entry     Entry
	runIndex  int
	sourceIdx int
}

// mergeHeap
//	A classic min-heap k-way merge ordered by (key ascending, run_index
//	descending).
type mergeHeap []mergeHeapItem

func (h mergeHeap) Len() int { return len(h) }

func (h mergeHeap) Less(i, j int) bool {
	if h[i].entry.Key != h[j].entry.Key { return h[i].entry.Key < h[j].entry.Key }
	return h[i].runIndex > h[j].runIndex
}

func (h mergeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *mergeHeap) Push(x interface{}) {
	*h = append(*h, x.(mergeHeapItem))
}

func (h *mergeHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// kWayMergeSource
//	One input to the merge: the run's entries in ascending order, plus
//	its run index for tie-breaking.
type kWayMergeSource struct {
	entries  []Entry
	runIndex int
}

// kWayMerge
//	Merges sources into a single ascending sequence with no duplicate
//	keys, keeping the value from the highest run index that wrote each
//	key. Tombstones are kept unless discardTombstones is true.
func kWayMerge(sources []kWayMergeSource, discardTombstones bool) []Entry {
	h := &mergeHeap{}
	heap.Init(h)

	positions := make([]int, len(sources))
	for i, src := range sources {
		if len(src.entries) > 0 {
			heap.Push(h, mergeHeapItem{entry: src.entries[0], runIndex: src.runIndex, sourceIdx: i})
			positions[i] = 1
		}
	}

	result := make([]Entry, 0)
	var lastKey Key
	haveLastKey := false

	for h.Len() > 0 {
		top := heap.Pop(h).(mergeHeapItem)

		pos := positions[top.sourceIdx]
		src := sources[top.sourceIdx]
		if pos < len(src.entries) {
			heap.Push(h, mergeHeapItem{entry: src.entries[pos], runIndex: src.runIndex, sourceIdx: top.sourceIdx})
			positions[top.sourceIdx] = pos + 1
		}

		if haveLastKey && top.entry.Key == lastKey {
			continue
		}
		lastKey = top.entry.Key
		haveLastKey = true

		if discardTombstones && top.entry.Value == TombstoneValue {
			continue
		}

		result = append(result, top.entry)
	}

	return result
}
