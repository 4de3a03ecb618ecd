// Package dispatch builds the exception-dispatch sub-graph: the chain of
// OpTypeCheck + OpEndIf nodes that test a thrown object against each
// handler covering a given bytecode index, in declaration order, falling
// through to the method's unwind block if none match.
//
// The chain is built lazily and shared structurally: two throw sites
// covered by the identical handler list (same sequence of (catchType,
// handlerEntry) pairs, for the same unwind target) reuse the same chain
// of test blocks instead of each growing their own copy — the common
// case of several throwing instructions inside one try block. Sharing
// below the level of the whole list (a throw site whose handler list is
// a suffix of another's) is not attempted; it would need every test
// block, not just the entry, to carry an eager φ, which is not worth the
// complexity for a narrow-in-practice case.
//
// The entry test block's incoming exception value is an eager φ created
// at construction time (mirroring pkg/merge's loop-header treatment):
// the chain's own OpTypeCheck nodes are built once and reference that φ
// by id, so a later throw site sharing the chain only needs to append a
// φ input — the already-built test nodes automatically see the new edge
// through the φ's SSA semantics, with no node needing to be rebuilt.
package dispatch

import (
	"fmt"
	"strings"

	"github.com/kristofer/graphbuilder/pkg/ir"
	"github.com/kristofer/graphbuilder/pkg/merge"
)

// CanonicalFrame is the locals/lock picture shared by every throw site
// covered by one handler list — conventionally the state-before of the
// block containing the try range's start BCI.
type CanonicalFrame struct {
	Locals     []ir.NodeID
	LocalKinds []ir.Kind
	Locks      []ir.NodeID
}

// Builder constructs and memoizes exception-dispatch chains for one
// method compile.
type Builder struct {
	g       *ir.Graph
	unwind  ir.BlockID
	entries map[string]ir.BlockID
}

// New returns a Builder that falls through to unwind when no handler
// matches.
func New(g *ir.Graph, unwind ir.BlockID) *Builder {
	return &Builder{g: g, unwind: unwind, entries: make(map[string]ir.BlockID)}
}

// Dispatch wires a new exception edge, from fromBlock, carrying excValue
// (an object reference), into the dispatch chain for handlers. It builds
// the chain on first use for this exact handler signature and reuses it
// on every later call with the same signature, returning the block id the
// caller should treat as the throwing node's exception successor.
func (b *Builder) Dispatch(fromBlock ir.BlockID, handlers []ir.Handler, frame CanonicalFrame, excValue ir.NodeID) (ir.BlockID, error) {
	sig := signature(handlers, b.unwind)
	if entry, ok := b.entries[sig]; ok {
		b.g.AddPred(entry, fromBlock)
		if err := merge.Merge(b.g, entry, stackFrame(frame, excValue)); err != nil {
			return ir.InvalidBlockID, err
		}
		return entry, nil
	}

	entry, err := b.construct(handlers, frame, fromBlock, excValue)
	if err != nil {
		return ir.InvalidBlockID, err
	}
	b.entries[sig] = entry
	return entry, nil
}

// construct builds the chain exactly once, recursing through
// handlers[0:], handlers[1:], ... . At each level, fromBlock and
// excValue describe the edge actually arriving at that level: the real
// throw site and its value for the first (outermost) handler, or the
// prior level's test block and its φ for every level after.
func (b *Builder) construct(handlers []ir.Handler, frame CanonicalFrame, fromBlock ir.BlockID, excValue ir.NodeID) (ir.BlockID, error) {
	if len(handlers) == 0 {
		return b.wireOrdinary(b.unwind, fromBlock, frame, excValue)
	}
	h := handlers[0]
	if h.IsCatchAll() {
		return b.wireOrdinary(h.EntryBlock, fromBlock, frame, excValue)
	}

	testBlock := b.g.NewBlock(-1, false)
	phi, err := b.g.NewPhi(testBlock, ir.KindObject, false, excValue)
	if err != nil {
		return ir.InvalidBlockID, err
	}
	b.g.AddPred(testBlock, fromBlock)
	b.g.Block(testBlock).StateBefore = stackFrame(frame, phi)

	checkID, err := b.g.NewNode(ir.OpTypeCheck, ir.KindInt, testBlock, []ir.NodeID{phi}, nil, h.CatchType)
	if err != nil {
		return ir.InvalidBlockID, err
	}
	b.g.AppendBody(testBlock, checkID)

	if _, err := b.wireOrdinary(h.EntryBlock, testBlock, frame, phi); err != nil {
		return ir.InvalidBlockID, err
	}

	nextEntry, err := b.construct(handlers[1:], frame, testBlock, phi)
	if err != nil {
		return ir.InvalidBlockID, err
	}

	endID, err := b.g.NewNode(ir.OpEndIf, ir.KindVoid, testBlock, []ir.NodeID{checkID}, nil, ir.IfTargets{TrueTarget: h.EntryBlock, FalseTarget: nextEntry})
	if err != nil {
		return ir.InvalidBlockID, err
	}
	b.g.SetEnd(testBlock, endID)

	return testBlock, nil
}

// wireOrdinary folds a dispatch edge into a real graph block (a handler
// entry or the unwind block) via the ordinary merge engine — these
// blocks may have other, non-dispatch predecessors too, so they get no
// special eager-φ treatment; pkg/merge's normal lazy φ creation already
// handles everything that reads them, since nothing outside this package
// locks in a reference to their stack slot before the worklist visits
// them.
func (b *Builder) wireOrdinary(target ir.BlockID, fromBlock ir.BlockID, frame CanonicalFrame, excValue ir.NodeID) (ir.BlockID, error) {
	b.g.AddPred(target, fromBlock)
	if err := merge.Merge(b.g, target, stackFrame(frame, excValue)); err != nil {
		return ir.InvalidBlockID, err
	}
	return target, nil
}

func stackFrame(frame CanonicalFrame, excValue ir.NodeID) *ir.FrameState {
	return &ir.FrameState{
		Locals:     frame.Locals,
		LocalKinds: frame.LocalKinds,
		Stack:      []ir.NodeID{excValue},
		StackKinds: []ir.Kind{ir.KindObject},
		Locks:      frame.Locks,
	}
}

func signature(handlers []ir.Handler, unwind ir.BlockID) string {
	var sb strings.Builder
	for _, h := range handlers {
		fmt.Fprintf(&sb, "%t|%s|%d;", h.CatchType.Resolved, h.CatchType.Name, h.EntryBlock)
	}
	fmt.Fprintf(&sb, "u%d", unwind)
	return sb.String()
}
