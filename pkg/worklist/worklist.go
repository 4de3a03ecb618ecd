// Package worklist implements the deterministic, block-id-ordered queue
// the top-level driver uses to decide which block to parse next.
// spec.md §4.7 and §9 both call out block-id order rather than reverse
// postorder or discovery order: two compiles of the same method under
// the same options must walk blocks in the same sequence so that node
// ids come out identical run to run.
package worklist

import "golang.org/x/exp/slices"

// Worklist holds a set of pending block ids, always drained in ascending
// id order regardless of insertion order. The "on worklist" set prevents
// a block reachable from two already-parsed predecessors from being
// queued twice.
type Worklist struct {
	pending  []int32
	enqueued map[int32]bool
}

// New returns an empty Worklist.
func New() *Worklist {
	return &Worklist{enqueued: make(map[int32]bool)}
}

// Push adds id to the worklist if it is not already pending, keeping
// pending sorted in ascending order.
func (w *Worklist) Push(id int32) {
	if w.enqueued[id] {
		return
	}
	w.enqueued[id] = true
	i, _ := slices.BinarySearch(w.pending, id)
	w.pending = slices.Insert(w.pending, i, id)
}

// Pop removes and returns the smallest pending id. ok is false if the
// worklist is empty.
func (w *Worklist) Pop() (id int32, ok bool) {
	if len(w.pending) == 0 {
		return 0, false
	}
	id = w.pending[0]
	w.pending = w.pending[1:]
	delete(w.enqueued, id)
	return id, true
}

// Len reports the number of pending entries.
func (w *Worklist) Len() int { return len(w.pending) }

// Contains reports whether id is currently pending.
func (w *Worklist) Contains(id int32) bool { return w.enqueued[id] }
