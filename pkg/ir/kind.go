// Package ir defines the value model of the graph builder: the tagged IR
// node hierarchy, the immutable frame-state snapshot type, and the graph
// arena that owns every node and block for the duration of one method
// compile.
//
// No edge of the graph is a pointer. Every edge between nodes and blocks
// (an input, a predecessor, a frame-state slot) is a stable,
// dense, monotonically assigned handle (NodeID, BlockID) into the arena's
// backing slices. This is what lets a loop-phi node appear as its own
// eventual input without Go's ownership rules getting in the way: the
// arena owns every node uniformly, and a handle is just an index.
package ir

// Kind is the typed kind tag carried by values and frame-state slots:
// int, long, float, double, object, or void. Two internal-only tags,
// KindContinuation and KindDead, mark the upper half of a two-slot value
// and an absent/dead slot respectively; they never appear on a Node
// itself, only inside a FrameState's Locals/Stack kind vectors.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindLong
	KindFloat
	KindDouble
	KindObject

	// KindContinuation marks the upper slot of a two-slot (long/double)
	// local or stack entry. It is never a value's own kind, only a
	// marker recorded alongside the lower slot's value (the
	// continuation slot's NodeID is InvalidNodeID).
	KindContinuation

	// KindDead marks a slot with no live value, per the merge engine's
	// tie-break rule (ir §4.4): if either side of a merge has a dead
	// slot, the merged slot is dead. A dead slot may not be read by a
	// later load.
	KindDead
)

func (k Kind) String() string {
	switch k {
	case KindVoid:
		return "void"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindFloat:
		return "float"
	case KindDouble:
		return "double"
	case KindObject:
		return "object"
	case KindContinuation:
		return "continuation"
	case KindDead:
		return "dead"
	default:
		return "unknown"
	}
}

// IsTwoSlot reports whether a value of this kind occupies two stack or
// local slots (long and double), per the verifier's two-slot-word rule.
func (k Kind) IsTwoSlot() bool {
	return k == KindLong || k == KindDouble
}
