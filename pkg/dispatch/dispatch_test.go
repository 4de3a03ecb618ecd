package dispatch

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/graphbuilder/pkg/ir"
)

func newExcValue(g *ir.Graph, block ir.BlockID) ir.NodeID {
	id, err := g.NewNode(ir.OpExceptionObject, ir.KindObject, block, nil, nil, nil)
	if err != nil {
		panic(err)
	}
	return id
}

func TestDispatchNoHandlersFallsThroughToUnwind(t *testing.T) {
	g := ir.NewGraph(0)
	unwind := g.NewBlock(-1, false)
	from := g.NewBlock(0, false)
	b := New(g, unwind)
	exc := newExcValue(g, from)

	entry, err := b.Dispatch(from, nil, CanonicalFrame{}, exc)
	require.NoError(t, err)
	require.Equal(t, unwind, entry)
	require.Contains(t, g.Block(unwind).Preds, from)
	require.Equal(t, []ir.NodeID{exc}, g.Block(unwind).StateBefore.Stack)
}

func TestDispatchCatchAllWiresHandlerEntryDirectly(t *testing.T) {
	g := ir.NewGraph(0)
	unwind := g.NewBlock(-1, false)
	from := g.NewBlock(0, false)
	handlerEntry := g.NewBlock(5, false)
	b := New(g, unwind)
	exc := newExcValue(g, from)

	before := g.BlockCount()
	handlers := []ir.Handler{{CatchType: ir.TypeRef{Resolved: true, Name: ""}, EntryBlock: handlerEntry}}
	entry, err := b.Dispatch(from, handlers, CanonicalFrame{Locals: []ir.NodeID{42}, LocalKinds: []ir.Kind{ir.KindInt}}, exc)
	require.NoError(t, err)

	require.Equal(t, handlerEntry, entry, "a catch-all needs no type test, so the handler's own block is the entry")
	require.Equal(t, before, g.BlockCount(), "no synthetic test block was built")
	require.Equal(t, []ir.NodeID{42}, g.Block(handlerEntry).StateBefore.Locals)
	require.Equal(t, []ir.NodeID{exc}, g.Block(handlerEntry).StateBefore.Stack)
}

func TestDispatchTypedHandlerBuildsTestBlockFallingThroughToUnwind(t *testing.T) {
	g := ir.NewGraph(0)
	unwind := g.NewBlock(-1, false)
	from := g.NewBlock(0, false)
	handlerEntry := g.NewBlock(7, false)
	b := New(g, unwind)
	exc := newExcValue(g, from)

	catchType := ir.TypeRef{Resolved: true, Name: "java/lang/Exception"}
	handlers := []ir.Handler{{CatchType: catchType, EntryBlock: handlerEntry}}
	entry, err := b.Dispatch(from, handlers, CanonicalFrame{}, exc)
	require.NoError(t, err)

	require.NotEqual(t, handlerEntry, entry)
	require.NotEqual(t, unwind, entry)

	testBlk := g.Block(entry)
	require.Len(t, testBlk.Phis, 1)
	require.Len(t, testBlk.Body, 1)

	check := g.Node(testBlk.Body[0])
	require.Equal(t, ir.OpTypeCheck, check.Op)
	require.Equal(t, catchType, check.Aux)
	require.Equal(t, []ir.NodeID{testBlk.Phis[0]}, check.Inputs)

	end := g.Node(testBlk.End)
	require.Equal(t, ir.OpEndIf, end.Op)
	targets, ok := end.Aux.(ir.IfTargets)
	require.True(t, ok)
	require.Equal(t, handlerEntry, targets.TrueTarget)
	require.Equal(t, unwind, targets.FalseTarget)

	require.Contains(t, g.Block(handlerEntry).Preds, entry)
	require.Contains(t, g.Block(unwind).Preds, entry)
}

// Two throw sites covered by the identical handler list reuse the same
// test-block chain: the second call appends a φ input instead of
// building a second chain.
func TestDispatchSharesChainAcrossThrowSitesWithIdenticalSignature(t *testing.T) {
	g := ir.NewGraph(0)
	unwind := g.NewBlock(-1, false)
	fromA := g.NewBlock(0, false)
	fromB := g.NewBlock(20, false)
	handlerEntry := g.NewBlock(7, false)
	b := New(g, unwind)
	excA := newExcValue(g, fromA)
	excB := newExcValue(g, fromB)

	handlers := []ir.Handler{{CatchType: ir.TypeRef{Resolved: true, Name: "java/lang/Exception"}, EntryBlock: handlerEntry}}
	entryA, err := b.Dispatch(fromA, handlers, CanonicalFrame{}, excA)
	require.NoError(t, err)

	before := g.BlockCount()
	entryB, err := b.Dispatch(fromB, handlers, CanonicalFrame{}, excB)
	require.NoError(t, err)

	require.Equal(t, entryA, entryB, "the identical handler signature must reuse the existing chain")
	require.Equal(t, before, g.BlockCount(), "no second chain was built")

	testBlk := g.Block(entryA)
	require.Len(t, testBlk.Phis, 1)
	phi := g.Node(testBlk.Phis[0])
	require.Equal(t, []ir.NodeID{excA, excB}, phi.Inputs)
	require.Contains(t, g.Block(entryA).Preds, fromA)
	require.Contains(t, g.Block(entryA).Preds, fromB)
}

// A different unwind target or a different handler list produces a
// distinct signature, so two otherwise-similar dispatches never
// accidentally collapse onto the same chain.
func TestDispatchDifferentHandlerListsBuildSeparateChains(t *testing.T) {
	g := ir.NewGraph(0)
	unwind := g.NewBlock(-1, false)
	fromA := g.NewBlock(0, false)
	fromB := g.NewBlock(20, false)
	handlerA := g.NewBlock(7, false)
	handlerB := g.NewBlock(9, false)
	b := New(g, unwind)

	entryA, err := b.Dispatch(fromA, []ir.Handler{{CatchType: ir.TypeRef{Resolved: true, Name: "Foo"}, EntryBlock: handlerA}}, CanonicalFrame{}, newExcValue(g, fromA))
	require.NoError(t, err)
	entryB, err := b.Dispatch(fromB, []ir.Handler{{CatchType: ir.TypeRef{Resolved: true, Name: "Bar"}, EntryBlock: handlerB}}, CanonicalFrame{}, newExcValue(g, fromB))
	require.NoError(t, err)

	require.NotEqual(t, entryA, entryB)
}

func TestSignatureDistinguishesByCatchTypeEntryAndUnwind(t *testing.T) {
	h := func(name string, entry ir.BlockID) []ir.Handler {
		return []ir.Handler{{CatchType: ir.TypeRef{Resolved: true, Name: name}, EntryBlock: entry}}
	}

	require.Equal(t, signature(h("Foo", 3), 9), signature(h("Foo", 3), 9))
	require.NotEqual(t, signature(h("Foo", 3), 9), signature(h("Bar", 3), 9))
	require.NotEqual(t, signature(h("Foo", 3), 9), signature(h("Foo", 4), 9))
	require.NotEqual(t, signature(h("Foo", 3), 9), signature(h("Foo", 3), 10))
}
