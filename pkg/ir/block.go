package ir

// Block is the begin-node of a basic block (spec.md §3: "Basic-block
// begin-node"). It is kept as its own struct rather than folded into the
// Node sum type because its fields (predecessors, loop-header flag,
// state-before) are accumulated incrementally across multiple visits,
// unlike a Node's immutable-once-emitted Inputs/Aux.
type Block struct {
	ID       BlockID
	StartBCI int

	// StateBefore is set on first arrival and merged on every
	// subsequent arrival (pkg/merge.Merge). Nil until the block
	// has been reached at least once.
	StateBefore *FrameState

	// End is the NodeID of this block's terminating node (one of the
	// OpEnd* variants). InvalidNodeID until the block has been parsed.
	End NodeID

	// Preds lists the predecessor blocks in arrival order. A φ-node
	// owned by this block has exactly len(Preds) inputs, in the same
	// order.
	Preds []BlockID

	IsLoopHeader bool

	// Body is the linear sequence of non-control-flow value nodes
	// emitted while parsing this block, in program order.
	Body []NodeID

	// Phis lists the φ-nodes owned by this block.
	Phis []NodeID

	// Unreachable marks a block with zero predecessors after the
	// worklist has drained; such blocks are dropped rather than parsed
	// (spec.md §4.7 step 7).
	Unreachable bool
}

// Handler is an exception handler record: a covered BCI range, a handler
// target, and a catch-type reference. Declaration order is significant —
// the dispatch builder walks handlers covering a BCI in this order and
// stops after the first catch-all.
type Handler struct {
	StartBCI   int
	EndBCI     int
	HandlerBCI int
	CatchType  TypeRef // Resolved && Name == "" is used as the catch-all sentinel
	EntryBlock BlockID
}

// IsCatchAll reports whether this handler catches every exception type.
func (h Handler) IsCatchAll() bool {
	return h.CatchType.Resolved && h.CatchType.Name == ""
}

// Covers reports whether this handler's range covers bci ([start, end)).
func (h Handler) Covers(bci int) bool {
	return bci >= h.StartBCI && bci < h.EndBCI
}
