package merge

import "errors"

// These errors indicate the incoming FrameState's shape disagrees with
// the block's already-recorded StateBefore in a way no valid bytecode
// produces — the block map, frame builder, or dispatcher has a bug.
// pkg/builder treats them as internal invariant violations (see
// spec.md §7), not verifier bailouts.
var (
	ErrLocalCountMismatch = errors.New("merge: local slot count differs between predecessor edges")
	ErrStackCountMismatch = errors.New("merge: stack depth differs between predecessor edges")
	ErrLockCountMismatch  = errors.New("merge: lock stack depth differs between predecessor edges")
	ErrLockIdentityMismatch = errors.New("merge: different monitor object reaches the same lock slot")
)
