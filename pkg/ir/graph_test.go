package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewNodeAssignsDenseMonotonicIDs(t *testing.T) {
	g := NewGraph(0)
	a, err := g.NewNode(OpConstant, KindInt, InvalidBlockID, nil, nil, int32(1))
	require.NoError(t, err)
	b, err := g.NewNode(OpConstant, KindInt, InvalidBlockID, nil, nil, int32(2))
	require.NoError(t, err)
	require.Equal(t, NodeID(0), a)
	require.Equal(t, NodeID(1), b)
	require.Equal(t, 2, g.NodeCount())
}

func TestNewNodeRespectsMaxNodeCount(t *testing.T) {
	g := NewGraph(1)
	_, err := g.NewNode(OpConstant, KindInt, InvalidBlockID, nil, nil, int32(1))
	require.NoError(t, err)
	_, err = g.NewNode(OpConstant, KindInt, InvalidBlockID, nil, nil, int32(2))
	require.ErrorIs(t, err, ErrNodeBudgetExceeded)
	require.Equal(t, 1, g.NodeCount())
}

func TestNewBlockAssignsDenseIDs(t *testing.T) {
	g := NewGraph(0)
	b0 := g.NewBlock(0, false)
	b1 := g.NewBlock(10, true)
	require.Equal(t, BlockID(0), b0)
	require.Equal(t, BlockID(1), b1)
	require.True(t, g.Block(b1).IsLoopHeader)
	require.Equal(t, InvalidNodeID, g.Block(b0).End)
}

func TestNewPhiRegistersOnOwningBlock(t *testing.T) {
	g := NewGraph(0)
	b := g.NewBlock(0, false)
	initial := constOf(g, KindInt, int32(1))

	phi, err := g.NewPhi(b, KindInt, false, initial)
	require.NoError(t, err)
	require.Equal(t, []NodeID{phi}, g.Block(b).Phis)
	require.Equal(t, []NodeID{initial}, g.Node(phi).Inputs)

	g.AppendPhiInput(phi, NodeID(99))
	require.Equal(t, []NodeID{initial, 99}, g.Node(phi).Inputs)
}

func TestExceptionEdgeRoundTrip(t *testing.T) {
	g := NewGraph(0)
	n := constOf(g, KindInt, int32(1))
	_, ok := g.ExceptionEdge(n)
	require.False(t, ok)

	g.SetExceptionEdge(n, BlockID(3))
	target, ok := g.ExceptionEdge(n)
	require.True(t, ok)
	require.Equal(t, BlockID(3), target)
}

func TestAddPredAndAppendBody(t *testing.T) {
	g := NewGraph(0)
	b0 := g.NewBlock(0, false)
	b1 := g.NewBlock(5, false)
	g.AddPred(b1, b0)
	require.Equal(t, []BlockID{b0}, g.Block(b1).Preds)

	n := constOf(g, KindInt, int32(7))
	g.AppendBody(b1, n)
	require.Equal(t, []NodeID{n}, g.Block(b1).Body)
}

func TestHandlerCatchAllAndCovers(t *testing.T) {
	h := Handler{StartBCI: 0, EndBCI: 10, HandlerBCI: 10, CatchType: TypeRef{Resolved: true, Name: ""}}
	require.True(t, h.IsCatchAll())
	require.True(t, h.Covers(0))
	require.True(t, h.Covers(9))
	require.False(t, h.Covers(10))

	typed := Handler{StartBCI: 0, EndBCI: 10, CatchType: TypeRef{Resolved: true, Name: "java/lang/Exception"}}
	require.False(t, typed.IsCatchAll())

	unresolved := Handler{CatchType: TypeRef{Resolved: false}}
	require.False(t, unresolved.IsCatchAll())
}
