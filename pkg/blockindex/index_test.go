package blockindex

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/graphbuilder/pkg/ir"
)

func TestSetAndLookup(t *testing.T) {
	x := New()
	x.Set(0, ir.BlockID(0))
	x.Set(10, ir.BlockID(1))

	id, ok := x.Lookup(10)
	require.True(t, ok)
	require.Equal(t, ir.BlockID(1), id)

	_, ok = x.Lookup(99)
	require.False(t, ok)
	require.Equal(t, 2, x.Len())
}

func TestSetTwiceLastWins(t *testing.T) {
	x := New()
	x.Set(5, ir.BlockID(0))
	x.Set(5, ir.BlockID(1))

	id, ok := x.Lookup(5)
	require.True(t, ok)
	require.Equal(t, ir.BlockID(1), id)
	require.Equal(t, 1, x.Len())
}
