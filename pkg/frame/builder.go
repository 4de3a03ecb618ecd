// Package frame implements the abstract interpreter's running state: the
// locals array, operand stack, and lock stack that the opcode dispatcher
// mutates as it walks a block's bytecode, plus the snapshot factory that
// turns that mutable state into the immutable ir.FrameState values
// attached to nodes and recorded on blocks.
//
// Builder is intentionally free of any reference to ir.Graph or
// pkg/builder's error taxonomy: it returns plain sentinel errors (see
// errors.go) so it can be constructed and exercised in isolation, the way
// kristofer-smog/pkg/vm's stack helpers (push/pop) are separable from the
// bytecode interpreter loop around them.
package frame

import "github.com/kristofer/graphbuilder/pkg/ir"

// slot is one raw stack or local entry: a value handle paired with its
// kind tag. The kind tag is what lets the two-slot rule (long/double)
// and the dead-slot rule (merge tie-break) be enforced uniformly.
type slot struct {
	id   ir.NodeID
	kind ir.Kind
}

// Builder is the mutable working frame state for one block's worth of
// parsing. A single Builder is reused across the blocks of one method
// compile; pkg/builder calls RestoreFrom at the start of each block and
// Snapshot/DuplicateModified whenever a node needs an attached state.
type Builder struct {
	locals  []slot
	stack   []slot
	locks   []ir.NodeID
	maxStack int
	maxLocks int
}

// NewBuilder creates a Builder with maxLocals dead local slots and room
// for up to maxStack stack slots. A maxStack or maxLocks of 0 means
// unbounded (for locks, the
// verifier-equivalent check that matters operationally is underflow, not
// a configured maximum nesting depth).
func NewBuilder(maxLocals, maxStack, maxLocks int) *Builder {
	b := &Builder{
		locals:   make([]slot, maxLocals),
		maxStack: maxStack,
		maxLocks: maxLocks,
	}
	for i := range b.locals {
		b.locals[i] = slot{ir.InvalidNodeID, ir.KindDead}
	}
	return b
}

// XPush is the kind-agnostic single-slot stack push described in
// spec.md §4.1, used to implement DUP/SWAP/POP and their wide variants
// without going through the typed two-slot bookkeeping in Push.
func (b *Builder) XPush(id ir.NodeID, kind ir.Kind) error {
	if b.maxStack > 0 && len(b.stack) >= b.maxStack {
		return ErrStackOverflow
	}
	b.stack = append(b.stack, slot{id, kind})
	return nil
}

// XPop is the kind-agnostic single-slot stack pop paired with XPush.
func (b *Builder) XPop() (ir.NodeID, ir.Kind, error) {
	if len(b.stack) == 0 {
		return ir.InvalidNodeID, ir.KindVoid, ErrStackUnderflow
	}
	top := b.stack[len(b.stack)-1]
	b.stack = b.stack[:len(b.stack)-1]
	return top.id, top.kind, nil
}

// Push is the typed stack push: for a two-slot kind (long/double) it
// pushes the value followed by a continuation marker and returns a
// single logical value, matching the bytecode's two-slot-word
// convention.
func (b *Builder) Push(kind ir.Kind, v ir.NodeID) error {
	if err := b.XPush(v, kind); err != nil {
		return err
	}
	if kind.IsTwoSlot() {
		if err := b.XPush(ir.InvalidNodeID, ir.KindContinuation); err != nil {
			b.stack = b.stack[:len(b.stack)-1]
			return err
		}
	}
	return nil
}

// Pop is the typed stack pop paired with Push: for a two-slot kind it
// consumes the continuation marker first, then verifies the lower slot's
// kind matches.
func (b *Builder) Pop(kind ir.Kind) (ir.NodeID, error) {
	if kind.IsTwoSlot() {
		_, k, err := b.XPop()
		if err != nil {
			return ir.InvalidNodeID, err
		}
		if k != ir.KindContinuation {
			return ir.InvalidNodeID, ErrKindMismatch
		}
		id, k2, err := b.XPop()
		if err != nil {
			return ir.InvalidNodeID, err
		}
		if k2 != kind {
			return ir.InvalidNodeID, ErrKindMismatch
		}
		return id, nil
	}
	id, k, err := b.XPop()
	if err != nil {
		return ir.InvalidNodeID, err
	}
	if k != kind {
		return ir.InvalidNodeID, ErrKindMismatch
	}
	return id, nil
}

// StackLen returns the raw slot count (continuations counted), as
// reported by pkg/builder's level-2 parse trace.
func (b *Builder) StackLen() int { return len(b.stack) }

// LoadLocal reads local slot i. Reading a dead or continuation slot is a
// bailout-equivalent error: the verifier would have rejected bytecode
// that does this.
func (b *Builder) LoadLocal(i int) (ir.NodeID, ir.Kind, error) {
	if i < 0 || i >= len(b.locals) {
		return ir.InvalidNodeID, ir.KindVoid, ErrLocalOutOfRange
	}
	e := b.locals[i]
	if e.kind == ir.KindDead || e.kind == ir.KindContinuation {
		return ir.InvalidNodeID, ir.KindVoid, ErrLocalDead
	}
	return e.id, e.kind, nil
}

// StoreLocal writes local slot i. A two-slot kind also claims slot i+1 as
// its continuation; storing a one-slot kind into a slot that used to be
// the lower half of a two-slot value invalidates the old upper half at
// i+1, per spec.md §4.1.
func (b *Builder) StoreLocal(i int, kind ir.Kind, v ir.NodeID) error {
	span := 1
	if kind.IsTwoSlot() {
		span = 2
	}
	if i < 0 || i+span > len(b.locals) {
		return ErrLocalOutOfRange
	}
	b.locals[i] = slot{v, kind}
	if kind.IsTwoSlot() {
		b.locals[i+1] = slot{ir.InvalidNodeID, ir.KindContinuation}
	} else if i+1 < len(b.locals) && b.locals[i+1].kind == ir.KindContinuation {
		b.locals[i+1] = slot{ir.InvalidNodeID, ir.KindDead}
	}
	return nil
}

// PopArguments pops len(kinds) typed values, one per entry of kinds (last
// kind is topmost on the stack), returning them in declaration order —
// the layout an invocation's argument list needs.
func (b *Builder) PopArguments(kinds []ir.Kind) ([]ir.NodeID, error) {
	vals := make([]ir.NodeID, len(kinds))
	for i := len(kinds) - 1; i >= 0; i-- {
		v, err := b.Pop(kinds[i])
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

// Lock pushes v onto the lock stack (MONITORENTER).
func (b *Builder) Lock(v ir.NodeID) error {
	if b.maxLocks > 0 && len(b.locks) >= b.maxLocks {
		return ErrStackOverflow
	}
	b.locks = append(b.locks, v)
	return nil
}

// Unlock pops the lock stack (MONITOREXIT). Popping an empty lock stack
// is the fatal underflow condition spec.md §3 and §7 call out explicitly.
func (b *Builder) Unlock() (ir.NodeID, error) {
	if len(b.locks) == 0 {
		return ir.InvalidNodeID, ErrLockUnderflow
	}
	v := b.locks[len(b.locks)-1]
	b.locks = b.locks[:len(b.locks)-1]
	return v, nil
}

// LockDepth returns the current monitor nesting depth.
func (b *Builder) LockDepth() int { return len(b.locks) }

// Snapshot copies the full current state into an immutable ir.FrameState
// resumable at bci.
func (b *Builder) Snapshot(bci int) *ir.FrameState {
	fs := &ir.FrameState{ResumeBCI: bci}
	fs.Locals = make([]ir.NodeID, len(b.locals))
	fs.LocalKinds = make([]ir.Kind, len(b.locals))
	for i, e := range b.locals {
		fs.Locals[i] = e.id
		fs.LocalKinds[i] = e.kind
	}
	fs.Stack = make([]ir.NodeID, len(b.stack))
	fs.StackKinds = make([]ir.Kind, len(b.stack))
	for i, e := range b.stack {
		fs.Stack[i] = e.id
		fs.StackKinds[i] = e.kind
	}
	fs.Locks = append([]ir.NodeID(nil), b.locks...)
	return fs
}

// DuplicateModified returns a snapshot with locals and locks taken from
// the live state but the operand stack replaced by a single pushed
// value. This is used exactly once per exception edge: the
// exception-entry block's state-before has the live locals but a stack
// holding only the thrown object (spec.md §4.1, §4.6).
func (b *Builder) DuplicateModified(bci int, pushKind ir.Kind, pushValue ir.NodeID) *ir.FrameState {
	fs := &ir.FrameState{ResumeBCI: bci}
	fs.Locals = make([]ir.NodeID, len(b.locals))
	fs.LocalKinds = make([]ir.Kind, len(b.locals))
	for i, e := range b.locals {
		fs.Locals[i] = e.id
		fs.LocalKinds[i] = e.kind
	}
	fs.Stack = []ir.NodeID{pushValue}
	fs.StackKinds = []ir.Kind{pushKind}
	fs.Locks = append([]ir.NodeID(nil), b.locks...)
	return fs
}

// RestoreFrom replaces the working state wholesale, used when the
// dispatcher begins parsing a block from its recorded state-before.
func (b *Builder) RestoreFrom(fs *ir.FrameState) {
	b.locals = make([]slot, len(fs.Locals))
	for i := range fs.Locals {
		b.locals[i] = slot{fs.Locals[i], fs.LocalKinds[i]}
	}
	b.stack = make([]slot, len(fs.Stack))
	for i := range fs.Stack {
		b.stack[i] = slot{fs.Stack[i], fs.StackKinds[i]}
	}
	b.locks = append([]ir.NodeID(nil), fs.Locks...)
}
