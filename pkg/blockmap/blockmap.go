// Package blockmap computes the set of basic-block boundaries for a
// method's bytecode before any graph node is built: every BCI a branch or
// handler can target becomes a block start, and a block start reachable
// by a backward edge is flagged as a loop header up front, so the builder
// can eagerly insert loop-phis on first arrival (spec.md §4.1, §9).
package blockmap

import (
	"sort"

	"github.com/kristofer/graphbuilder/pkg/classfile"
)

// Entry describes one basic block's boundaries, independent of its
// eventual ir.BlockID (that is assigned later, when the block is first
// materialized in the arena).
type Entry struct {
	StartBCI     int
	IsLoopHeader bool
}

// BlockMap is the computed partition: every block start in ascending
// BCI order (handler BCIs included, since a handler BCI is always a
// block start). The handler ranges themselves are not kept.
type BlockMap struct {
	Entries  []Entry
	byBCI    map[int]int // BCI -> index into Entries
}

// Lookup returns the Entry starting at bci, if any.
func (m *BlockMap) Lookup(bci int) (Entry, bool) {
	i, ok := m.byBCI[bci]
	if !ok {
		return Entry{}, false
	}
	return m.Entries[i], true
}

// HandlerRange is the subset of a class file's exception-table shape the
// analyzer needs: a covered BCI range and its handler entry point.
type HandlerRange struct {
	StartBCI, EndBCI, HandlerBCI int
}

// Analyzer partitions a method's instruction stream into basic blocks.
// It is the reference implementation of the block-boundary computation a
// host compiler is otherwise free to do itself (e.g. reusing a verifier
// pass it already runs) and hand the builder pre-computed.
type Analyzer struct{}

// Analyze walks stream once, collecting every branch and fall-through
// target as a block start and recording targets at or before their
// branch as loop headers, then adds every handler BCI as a block start.
func (Analyzer) Analyze(stream *classfile.Stream, handlers []HandlerRange) (*BlockMap, error) {
	starts := map[int]bool{0: true}
	backwardTargets := map[int]bool{}

	for _, bci := range stream.BCIs() {
		in, err := stream.At(bci)
		if err != nil {
			return nil, err
		}
		next := stream.NextBCI(bci)
		switch {
		case in.Op.IsBranch():
			starts[in.Target] = true
			if next < stream.Len() {
				starts[next] = true
			}
			if in.Target <= bci {
				backwardTargets[in.Target] = true
			}
		case in.Op == classfile.OpGoto:
			starts[in.Target] = true
			if in.Target <= bci {
				backwardTargets[in.Target] = true
			}
		case in.Op == classfile.OpTableSwitch, in.Op == classfile.OpLookupSwitch:
			for _, t := range in.Targets {
				starts[t] = true
				if t <= bci {
					backwardTargets[t] = true
				}
			}
		case in.Op == classfile.OpReturn, in.Op == classfile.OpThrow:
			if next < stream.Len() {
				starts[next] = true
			}
		}
	}

	for _, h := range handlers {
		starts[h.HandlerBCI] = true
	}

	ordered := make([]int, 0, len(starts))
	for bci := range starts {
		ordered = append(ordered, bci)
	}
	sort.Ints(ordered)

	m := &BlockMap{byBCI: make(map[int]int, len(ordered))}
	for i, bci := range ordered {
		m.Entries = append(m.Entries, Entry{StartBCI: bci, IsLoopHeader: backwardTargets[bci]})
		m.byBCI[bci] = i
	}
	return m, nil
}
