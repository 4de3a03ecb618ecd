package frame

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/graphbuilder/pkg/ir"
)

func TestPushPopRoundTrip(t *testing.T) {
	b := NewBuilder(0, 4, 0)
	require.NoError(t, b.Push(ir.KindInt, 7))
	v, err := b.Pop(ir.KindInt)
	require.NoError(t, err)
	require.EqualValues(t, 7, v)
	require.Equal(t, 0, b.StackLen())
}

func TestPushTwoSlotOccupiesTwoRawSlots(t *testing.T) {
	b := NewBuilder(0, 4, 0)
	require.NoError(t, b.Push(ir.KindLong, 1))
	require.Equal(t, 2, b.StackLen())

	v, err := b.Pop(ir.KindLong)
	require.NoError(t, err)
	require.EqualValues(t, 1, v)
	require.Equal(t, 0, b.StackLen())
}

func TestPopKindMismatchOnContinuationSlot(t *testing.T) {
	b := NewBuilder(0, 4, 0)
	require.NoError(t, b.Push(ir.KindLong, 1))
	_, err := b.Pop(ir.KindInt)
	require.ErrorIs(t, err, ErrKindMismatch)
}

func TestPopEmptyStackUnderflows(t *testing.T) {
	b := NewBuilder(0, 4, 0)
	_, err := b.Pop(ir.KindInt)
	require.ErrorIs(t, err, ErrStackUnderflow)
}

func TestPushOverflow(t *testing.T) {
	b := NewBuilder(0, 1, 0)
	require.NoError(t, b.XPush(1, ir.KindInt))
	err := b.XPush(2, ir.KindInt)
	require.ErrorIs(t, err, ErrStackOverflow)
}

func TestLoadLocalOfDeadSlotFails(t *testing.T) {
	b := NewBuilder(2, 0, 0)
	_, _, err := b.LoadLocal(0)
	require.ErrorIs(t, err, ErrLocalDead)
}

func TestLoadLocalOutOfRange(t *testing.T) {
	b := NewBuilder(1, 0, 0)
	_, _, err := b.LoadLocal(5)
	require.ErrorIs(t, err, ErrLocalOutOfRange)
}

func TestStoreLocalRoundTrip(t *testing.T) {
	b := NewBuilder(2, 0, 0)
	require.NoError(t, b.StoreLocal(0, ir.KindInt, 42))
	v, k, err := b.LoadLocal(0)
	require.NoError(t, err)
	require.EqualValues(t, 42, v)
	require.Equal(t, ir.KindInt, k)
}

// A two-slot store claims the following local as its continuation, and a
// later one-slot store into the lower half invalidates that continuation
// rather than leaving a stale upper half readable.
func TestStoreLocalTwoSlotClaimsContinuation(t *testing.T) {
	b := NewBuilder(3, 0, 0)
	require.NoError(t, b.StoreLocal(0, ir.KindLong, 1))
	_, _, err := b.LoadLocal(1)
	require.ErrorIs(t, err, ErrLocalDead)

	require.NoError(t, b.StoreLocal(0, ir.KindInt, 2))
	v, k, err := b.LoadLocal(0)
	require.NoError(t, err)
	require.EqualValues(t, 2, v)
	require.Equal(t, ir.KindInt, k)
	_, _, err = b.LoadLocal(1)
	require.ErrorIs(t, err, ErrLocalDead)
}

func TestPopArgumentsOrder(t *testing.T) {
	b := NewBuilder(0, 4, 0)
	require.NoError(t, b.Push(ir.KindInt, 1))
	require.NoError(t, b.Push(ir.KindInt, 2))
	require.NoError(t, b.Push(ir.KindInt, 3))

	vals, err := b.PopArguments([]ir.Kind{ir.KindInt, ir.KindInt, ir.KindInt})
	require.NoError(t, err)
	require.Equal(t, []ir.NodeID{1, 2, 3}, vals)
}

func TestLockUnlockRoundTrip(t *testing.T) {
	b := NewBuilder(0, 0, 0)
	require.NoError(t, b.Lock(9))
	require.Equal(t, 1, b.LockDepth())
	v, err := b.Unlock()
	require.NoError(t, err)
	require.EqualValues(t, 9, v)
	require.Equal(t, 0, b.LockDepth())
}

func TestUnlockEmptyUnderflows(t *testing.T) {
	b := NewBuilder(0, 0, 0)
	_, err := b.Unlock()
	require.ErrorIs(t, err, ErrLockUnderflow)
}

func TestSnapshotAndRestoreRoundTrip(t *testing.T) {
	b := NewBuilder(2, 0, 0)
	require.NoError(t, b.StoreLocal(0, ir.KindInt, 11))
	require.NoError(t, b.Push(ir.KindObject, 22))
	require.NoError(t, b.Lock(33))

	fs := b.Snapshot(17)
	require.Equal(t, 17, fs.ResumeBCI)

	other := NewBuilder(2, 0, 0)
	other.RestoreFrom(fs)

	v, k, err := other.LoadLocal(0)
	require.NoError(t, err)
	require.EqualValues(t, 11, v)
	require.Equal(t, ir.KindInt, k)

	popped, err := other.Pop(ir.KindObject)
	require.NoError(t, err)
	require.EqualValues(t, 22, popped)
	require.Equal(t, 1, other.LockDepth())
}

// DuplicateModified is used exactly once per exception edge: the live
// locals carry over but the stack is replaced wholesale by the thrown
// object.
func TestDuplicateModifiedReplacesStackKeepsLocals(t *testing.T) {
	b := NewBuilder(1, 0, 0)
	require.NoError(t, b.StoreLocal(0, ir.KindObject, 5))
	require.NoError(t, b.Push(ir.KindInt, 1))
	require.NoError(t, b.Push(ir.KindInt, 2))

	fs := b.DuplicateModified(30, ir.KindObject, 99)
	require.Equal(t, 30, fs.ResumeBCI)
	require.Equal(t, []ir.NodeID{99}, fs.Stack)
	require.Equal(t, []ir.Kind{ir.KindObject}, fs.StackKinds)
	require.Equal(t, []ir.NodeID{5}, fs.Locals)
}
