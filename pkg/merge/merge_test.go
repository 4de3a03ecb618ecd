package merge

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/graphbuilder/pkg/ir"
)

func constOf(g *ir.Graph, kind ir.Kind, v any) ir.NodeID {
	id, err := g.NewNode(ir.OpConstant, kind, ir.InvalidBlockID, nil, nil, v)
	if err != nil {
		panic(err)
	}
	return id
}

func state(locals []ir.NodeID, localKinds []ir.Kind, stack []ir.NodeID, stackKinds []ir.Kind, locks []ir.NodeID) *ir.FrameState {
	return &ir.FrameState{Locals: locals, LocalKinds: localKinds, Stack: stack, StackKinds: stackKinds, Locks: locks}
}

// A single predecessor needs no phi: the first state merged into an
// ordinary block is simply adopted.
func TestMergeFirstArrivalAdoptsState(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	pred := g.NewBlock(0, false)
	g.AddPred(target, pred)

	v := constOf(g, ir.KindInt, int32(1))
	in := state([]ir.NodeID{v}, []ir.Kind{ir.KindInt}, nil, nil, nil)

	require.NoError(t, Merge(g, target, in))
	require.Equal(t, v, g.Block(target).StateBefore.Locals[0])
}

// Two predecessors disagreeing on a local's value produce a 2-input phi
// owned by the target block.
func TestMergeTwoPredecessorsDisagreeCreatesPhi(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	g.AddPred(target, p0)
	g.AddPred(target, p1)

	a := constOf(g, ir.KindInt, int32(1))
	b := constOf(g, ir.KindInt, int32(2))

	require.NoError(t, Merge(g, target, state([]ir.NodeID{a}, []ir.Kind{ir.KindInt}, nil, nil, nil)))
	require.NoError(t, Merge(g, target, state([]ir.NodeID{b}, []ir.Kind{ir.KindInt}, nil, nil, nil)))

	blk := g.Block(target)
	require.Len(t, blk.Phis, 1)
	phi := blk.Phis[0]
	require.Equal(t, ir.OpPhi, g.Node(phi).Op)
	require.Equal(t, []ir.NodeID{a, b}, g.Node(phi).Inputs)
	require.Equal(t, phi, blk.StateBefore.Locals[0])
}

// Two predecessors agreeing on a value need no phi at all.
func TestMergeTwoPredecessorsAgreeNoPhi(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	g.AddPred(target, p0)
	g.AddPred(target, p1)

	a := constOf(g, ir.KindInt, int32(1))

	require.NoError(t, Merge(g, target, state([]ir.NodeID{a}, []ir.Kind{ir.KindInt}, nil, nil, nil)))
	require.NoError(t, Merge(g, target, state([]ir.NodeID{a}, []ir.Kind{ir.KindInt}, nil, nil, nil)))

	blk := g.Block(target)
	require.Empty(t, blk.Phis)
	require.Equal(t, a, blk.StateBefore.Locals[0])
}

// A third predecessor arriving after a phi already exists for the slot
// just appends an input rather than creating a second phi.
func TestMergeThirdPredecessorAppendsExistingPhi(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	p2 := g.NewBlock(6, false)

	a := constOf(g, ir.KindInt, int32(1))
	b := constOf(g, ir.KindInt, int32(2))
	c := constOf(g, ir.KindInt, int32(3))

	g.AddPred(target, p0)
	require.NoError(t, Merge(g, target, state([]ir.NodeID{a}, []ir.Kind{ir.KindInt}, nil, nil, nil)))
	g.AddPred(target, p1)
	require.NoError(t, Merge(g, target, state([]ir.NodeID{b}, []ir.Kind{ir.KindInt}, nil, nil, nil)))
	g.AddPred(target, p2)
	require.NoError(t, Merge(g, target, state([]ir.NodeID{c}, []ir.Kind{ir.KindInt}, nil, nil, nil)))

	blk := g.Block(target)
	require.Len(t, blk.Phis, 1)
	require.Equal(t, []ir.NodeID{a, b, c}, g.Node(blk.Phis[0]).Inputs)
}

// A loop header eagerly materializes a phi for every live slot on first
// arrival, so a later back-edge only ever appends an input.
func TestMergeLoopHeaderEagerPhis(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, true)
	pred := g.NewBlock(0, false)
	g.AddPred(target, pred)

	v := constOf(g, ir.KindInt, int32(1))
	in := state([]ir.NodeID{v}, []ir.Kind{ir.KindInt}, nil, nil, nil)

	require.NoError(t, Merge(g, target, in))
	blk := g.Block(target)
	require.Len(t, blk.Phis, 1)
	phi := blk.Phis[0]
	meta := g.Node(phi).Aux.(*ir.PhiMeta)
	require.True(t, meta.IsLoopPhi)
	require.Equal(t, []ir.NodeID{v}, g.Node(phi).Inputs)

	g.AddPred(target, g.NewBlock(20, false))
	back := constOf(g, ir.KindInt, int32(2))
	require.NoError(t, Merge(g, target, state([]ir.NodeID{back}, []ir.Kind{ir.KindInt}, nil, nil, nil)))
	require.Equal(t, []ir.NodeID{v, back}, g.Node(phi).Inputs)
	require.Len(t, blk.Phis, 1, "the back edge must reuse the eager phi, never create a second one")
}

// A dead slot on either side of a merge makes the merged slot dead,
// regardless of what the other side holds.
func TestMergeDeadSlotTieBreak(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	g.AddPred(target, p0)
	g.AddPred(target, p1)

	live := constOf(g, ir.KindInt, int32(1))

	require.NoError(t, Merge(g, target, state([]ir.NodeID{live}, []ir.Kind{ir.KindInt}, nil, nil, nil)))
	require.NoError(t, Merge(g, target, state([]ir.NodeID{ir.InvalidNodeID}, []ir.Kind{ir.KindDead}, nil, nil, nil)))

	blk := g.Block(target)
	require.Equal(t, ir.KindDead, blk.StateBefore.LocalKinds[0])
	require.Empty(t, blk.Phis)
}

// A continuation slot disagreeing with a live one-slot value on the other
// path cannot be used again through this join, and becomes dead.
func TestMergeContinuationMismatchGoesDead(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	g.AddPred(target, p0)
	g.AddPred(target, p1)

	v := constOf(g, ir.KindInt, int32(1))

	require.NoError(t, Merge(g, target, state(nil, nil, []ir.NodeID{ir.InvalidNodeID}, []ir.Kind{ir.KindContinuation}, nil)))
	require.NoError(t, Merge(g, target, state(nil, nil, []ir.NodeID{v}, []ir.Kind{ir.KindInt}, nil)))

	blk := g.Block(target)
	require.Equal(t, ir.KindDead, blk.StateBefore.StackKinds[0])
}

// A matching continuation slot on both sides of a merge stays a
// continuation marker.
func TestMergeContinuationAgreeStaysContinuation(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	g.AddPred(target, p0)
	g.AddPred(target, p1)

	c := state(nil, nil, []ir.NodeID{ir.InvalidNodeID}, []ir.Kind{ir.KindContinuation}, nil)
	require.NoError(t, Merge(g, target, c))
	require.NoError(t, Merge(g, target, c))

	require.Equal(t, ir.KindContinuation, g.Block(target).StateBefore.StackKinds[0])
}

func TestMergeLocalCountMismatchIsInternalError(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	g.AddPred(target, p0)
	g.AddPred(target, p1)

	require.NoError(t, Merge(g, target, state([]ir.NodeID{1}, []ir.Kind{ir.KindInt}, nil, nil, nil)))
	err := Merge(g, target, state([]ir.NodeID{1, 2}, []ir.Kind{ir.KindInt, ir.KindInt}, nil, nil, nil))
	require.ErrorIs(t, err, ErrLocalCountMismatch)
}

func TestMergeLockIdentityMismatch(t *testing.T) {
	g := ir.NewGraph(0)
	target := g.NewBlock(10, false)
	p0 := g.NewBlock(0, false)
	p1 := g.NewBlock(5, false)
	g.AddPred(target, p0)
	g.AddPred(target, p1)

	require.NoError(t, Merge(g, target, state(nil, nil, nil, nil, []ir.NodeID{1})))
	err := Merge(g, target, state(nil, nil, nil, nil, []ir.NodeID{2}))
	require.ErrorIs(t, err, ErrLockIdentityMismatch)
}
