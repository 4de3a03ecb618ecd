package ir

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func constOf(g *Graph, kind Kind, v any) NodeID {
	id, err := g.NewNode(OpConstant, kind, InvalidBlockID, nil, nil, v)
	if err != nil {
		panic(err)
	}
	return id
}

func TestFoldBinaryIntAdd(t *testing.T) {
	g := NewGraph(0)
	a := constOf(g, KindInt, int32(2))
	b := constOf(g, KindInt, int32(3))

	v, ok := FoldBinary(g, BinAdd, KindInt, a, b)
	require.True(t, ok)
	require.Equal(t, int32(5), v)
}

func TestFoldBinaryIntDivByZeroNotFoldable(t *testing.T) {
	g := NewGraph(0)
	a := constOf(g, KindInt, int32(1))
	b := constOf(g, KindInt, int32(0))

	_, ok := FoldBinary(g, BinDiv, KindInt, a, b)
	require.False(t, ok)
}

func TestFoldBinaryRequiresBothConstant(t *testing.T) {
	g := NewGraph(0)
	a := constOf(g, KindInt, int32(1))
	nonConst, err := g.NewNode(OpParameter, KindInt, InvalidBlockID, nil, nil, nil)
	require.NoError(t, err)

	_, ok := FoldBinary(g, BinAdd, KindInt, a, nonConst)
	require.False(t, ok)
}

func TestFoldBinaryLongShift(t *testing.T) {
	g := NewGraph(0)
	a := constOf(g, KindLong, int64(1))
	b := constOf(g, KindLong, int64(4))

	v, ok := FoldBinary(g, BinShl, KindLong, a, b)
	require.True(t, ok)
	require.Equal(t, int64(16), v)
}

func TestFoldBinaryDoubleCompare(t *testing.T) {
	g := NewGraph(0)
	a := constOf(g, KindDouble, 1.5)
	b := constOf(g, KindDouble, 2.5)

	v, ok := FoldBinary(g, CmpLT, KindDouble, a, b)
	require.True(t, ok)
	require.Equal(t, true, v)
}

func TestKindIsTwoSlot(t *testing.T) {
	require.True(t, KindLong.IsTwoSlot())
	require.True(t, KindDouble.IsTwoSlot())
	require.False(t, KindInt.IsTwoSlot())
	require.False(t, KindObject.IsTwoSlot())
}
