package blockmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/graphbuilder/pkg/classfile"
)

func TestAnalyzeIfElseMarksBothTargetsAndFallthrough(t *testing.T) {
	// 0: if_eq -> 10
	// 3: goto -> 13
	// 10: ...
	// 13: return
	stream := classfile.NewStream([]classfile.Instruction{
		{BCI: 0, Op: classfile.OpIfEq, Target: 10},
		{BCI: 3, Op: classfile.OpGoto, Target: 13},
		{BCI: 10, Op: classfile.OpNop},
		{BCI: 13, Op: classfile.OpReturn},
	}, 14)

	m, err := Analyzer{}.Analyze(stream, nil)
	require.NoError(t, err)

	for _, bci := range []int{0, 3, 10, 13} {
		_, ok := m.Lookup(bci)
		require.Truef(t, ok, "expected a block start at bci %d", bci)
	}
	e, _ := m.Lookup(0)
	require.False(t, e.IsLoopHeader)
}

func TestAnalyzeBackwardGotoIsLoopHeader(t *testing.T) {
	// 0: ...
	// 5: goto -> 0   (back edge)
	stream := classfile.NewStream([]classfile.Instruction{
		{BCI: 0, Op: classfile.OpNop},
		{BCI: 5, Op: classfile.OpGoto, Target: 0},
	}, 6)

	m, err := Analyzer{}.Analyze(stream, nil)
	require.NoError(t, err)

	e, ok := m.Lookup(0)
	require.True(t, ok)
	require.True(t, e.IsLoopHeader)
}

func TestAnalyzeTableSwitchEveryTargetIsABlockStart(t *testing.T) {
	stream := classfile.NewStream([]classfile.Instruction{
		{BCI: 0, Op: classfile.OpTableSwitch, Targets: []int{10, 20, 30}, Low: 0, High: 1},
		{BCI: 10, Op: classfile.OpReturn},
		{BCI: 20, Op: classfile.OpReturn},
		{BCI: 30, Op: classfile.OpReturn},
	}, 31)

	m, err := Analyzer{}.Analyze(stream, nil)
	require.NoError(t, err)
	for _, bci := range []int{0, 10, 20, 30} {
		_, ok := m.Lookup(bci)
		require.Truef(t, ok, "expected a block start at bci %d", bci)
	}
}

func TestAnalyzeHandlerBCIIsABlockStart(t *testing.T) {
	stream := classfile.NewStream([]classfile.Instruction{
		{BCI: 0, Op: classfile.OpNop},
		{BCI: 1, Op: classfile.OpReturn},
		{BCI: 5, Op: classfile.OpNop},
	}, 6)

	m, err := Analyzer{}.Analyze(stream, []HandlerRange{{StartBCI: 0, EndBCI: 1, HandlerBCI: 5}})
	require.NoError(t, err)

	_, ok := m.Lookup(5)
	require.True(t, ok)
}

func TestAnalyzeReturnFollowedByDeadCodeStartsNewBlock(t *testing.T) {
	stream := classfile.NewStream([]classfile.Instruction{
		{BCI: 0, Op: classfile.OpReturn},
		{BCI: 1, Op: classfile.OpNop},
	}, 2)

	m, err := Analyzer{}.Analyze(stream, nil)
	require.NoError(t, err)

	_, ok := m.Lookup(1)
	require.True(t, ok, "the unreachable instruction after a return still starts its own block")
}
