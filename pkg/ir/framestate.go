package ir

// FrameState is the abstract-interpretation state of locals, operand
// stack, and lock stack at a specific bytecode index. A FrameState is
// immutable once attached to a Node or recorded as a Block's
// state-before: callers that need to keep mutating must hold their own
// working copy (see pkg/frame.Builder) and call Clone before handing a
// snapshot to the graph.
//
// Invariant (spec.md §3): local/stack/lock sizes at a given BCI are
// identical across every path reaching that BCI. The merge engine
// enforces this at every join point.
type FrameState struct {
	// ResumeBCI is where execution should resume if this snapshot is
	// used as a deoptimization target.
	ResumeBCI int

	Locals     []NodeID
	LocalKinds []Kind

	Stack      []NodeID
	StackKinds []Kind

	Locks []NodeID
}

// Clone returns a deep copy safe for independent mutation.
func (fs *FrameState) Clone() *FrameState {
	if fs == nil {
		return nil
	}
	out := &FrameState{ResumeBCI: fs.ResumeBCI}
	out.Locals = append(out.Locals[:0:0], fs.Locals...)
	out.LocalKinds = append(out.LocalKinds[:0:0], fs.LocalKinds...)
	out.Stack = append(out.Stack[:0:0], fs.Stack...)
	out.StackKinds = append(out.StackKinds[:0:0], fs.StackKinds...)
	out.Locks = append(out.Locks[:0:0], fs.Locks...)
	return out
}

// StackDepth returns the number of logical stack slots (two-slot values
// counted once), used by callers that need to report verifier-style
// diagnostics.
func (fs *FrameState) StackDepth() int {
	depth := 0
	for _, k := range fs.StackKinds {
		if k != KindContinuation {
			depth++
		}
	}
	return depth
}

// LockDepth returns the current monitor nesting depth.
func (fs *FrameState) LockDepth() int {
	return len(fs.Locks)
}
