package ir

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestFrameStateCloneIsIndependent(t *testing.T) {
	fs := &FrameState{
		ResumeBCI:  4,
		Locals:     []NodeID{1, 2},
		LocalKinds: []Kind{KindInt, KindObject},
		Stack:      []NodeID{3},
		StackKinds: []Kind{KindInt},
		Locks:      []NodeID{9},
	}
	clone := fs.Clone()
	if diff := cmp.Diff(fs, clone); diff != "" {
		t.Fatalf("clone diverged from source (-want +got):\n%s", diff)
	}

	clone.Locals[0] = 100
	require.EqualValues(t, 1, fs.Locals[0], "mutating the clone must not affect the original")
}

func TestFrameStateCloneNil(t *testing.T) {
	var fs *FrameState
	require.Nil(t, fs.Clone())
}

func TestFrameStateStackDepthSkipsContinuations(t *testing.T) {
	fs := &FrameState{StackKinds: []Kind{KindLong, KindContinuation, KindInt}}
	require.Equal(t, 2, fs.StackDepth())
}

func TestFrameStateLockDepth(t *testing.T) {
	fs := &FrameState{Locks: []NodeID{1, 2, 3}}
	require.Equal(t, 3, fs.LockDepth())
}
