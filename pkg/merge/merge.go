// Package merge implements the join-point logic that combines the
// FrameState arriving on each predecessor edge of a block into that
// block's single recorded StateBefore, inserting φ-nodes wherever two
// edges disagree on a slot's value — including the eager loop-phi
// insertion spec.md §4.1/§9 call for at loop headers.
//
// The caller is responsible for calling ir.Graph.AddPred(target, pred)
// before Merge so that len(Block.Preds) already reflects the edge being
// merged; Merge uses that count to size any φ-node it creates.
package merge

import "github.com/kristofer/graphbuilder/pkg/ir"

// Merge folds incoming into target's StateBefore. On the first call for
// a given target (StateBefore == nil), it establishes the initial state:
// for a loop header, that means eagerly materializing a φ for every live
// local and stack slot (seeded with incoming's value) so that later
// back-edge arrivals only ever append a φ input, never rewrite one; for
// an ordinary block, the first arrival's state is simply adopted as-is,
// since a single predecessor needs no φ yet.
//
// On every later call, each slot of the existing state is combined with
// the corresponding slot of incoming: identical values need no φ,
// disagreement on an existing φ just appends an input, and disagreement
// with no φ yet creates one seeded with the already-agreed-upon value
// for every earlier predecessor.
func Merge(g *ir.Graph, target ir.BlockID, incoming *ir.FrameState) error {
	b := g.Block(target)
	totalPreds := len(b.Preds)

	if b.StateBefore == nil {
		if b.IsLoopHeader {
			fs := incoming.Clone()
			for i, k := range fs.LocalKinds {
				if k == ir.KindDead || k == ir.KindContinuation {
					continue
				}
				phi, err := g.NewPhi(target, k, true, fs.Locals[i])
				if err != nil {
					return err
				}
				fs.Locals[i] = phi
			}
			for i, k := range fs.StackKinds {
				if k == ir.KindDead || k == ir.KindContinuation {
					continue
				}
				phi, err := g.NewPhi(target, k, true, fs.Stack[i])
				if err != nil {
					return err
				}
				fs.Stack[i] = phi
			}
			b.StateBefore = fs
			return nil
		}
		b.StateBefore = incoming.Clone()
		return nil
	}

	cur := b.StateBefore
	if len(cur.Locals) != len(incoming.Locals) {
		return ErrLocalCountMismatch
	}
	if len(cur.Stack) != len(incoming.Stack) {
		return ErrStackCountMismatch
	}
	if len(cur.Locks) != len(incoming.Locks) {
		return ErrLockCountMismatch
	}
	for i := range cur.Locks {
		if cur.Locks[i] != incoming.Locks[i] {
			return ErrLockIdentityMismatch
		}
	}

	for i := range cur.Locals {
		v, k, err := mergeSlot(g, target, cur.Locals[i], cur.LocalKinds[i], incoming.Locals[i], incoming.LocalKinds[i], totalPreds)
		if err != nil {
			return err
		}
		cur.Locals[i], cur.LocalKinds[i] = v, k
	}
	for i := range cur.Stack {
		v, k, err := mergeSlot(g, target, cur.Stack[i], cur.StackKinds[i], incoming.Stack[i], incoming.StackKinds[i], totalPreds)
		if err != nil {
			return err
		}
		cur.Stack[i], cur.StackKinds[i] = v, k
	}
	return nil
}

// mergeSlot combines one local-or-stack slot's existing and incoming
// (value, kind) pair. totalPreds is the predecessor count of target
// after the edge being merged has already been added.
func mergeSlot(g *ir.Graph, target ir.BlockID, existing ir.NodeID, existingKind ir.Kind, incoming ir.NodeID, incomingKind ir.Kind, totalPreds int) (ir.NodeID, ir.Kind, error) {
	deadA := existingKind == ir.KindDead
	deadB := incomingKind == ir.KindDead
	if deadA || deadB {
		return ir.InvalidNodeID, ir.KindDead, nil
	}
	if existingKind == ir.KindContinuation || incomingKind == ir.KindContinuation {
		if existingKind != incomingKind {
			// one path holds the upper half of a two-slot value, the
			// other holds a live one-slot value: the slot cannot be
			// used again on any path through this join.
			return ir.InvalidNodeID, ir.KindDead, nil
		}
		return ir.InvalidNodeID, ir.KindContinuation, nil
	}
	if existingKind != incomingKind {
		return ir.InvalidNodeID, ir.KindDead, nil
	}
	if existing == incoming {
		return existing, existingKind, nil
	}
	if existing != ir.InvalidNodeID {
		n := g.Node(existing)
		if n.Op == ir.OpPhi && n.Block == target {
			g.AppendPhiInput(existing, incoming)
			return existing, existingKind, nil
		}
	}
	phi, err := g.NewPhi(target, existingKind, false, existing)
	if err != nil {
		return ir.InvalidNodeID, ir.KindVoid, err
	}
	for i := 1; i < totalPreds-1; i++ {
		g.AppendPhiInput(phi, existing)
	}
	g.AppendPhiInput(phi, incoming)
	return phi, existingKind, nil
}
