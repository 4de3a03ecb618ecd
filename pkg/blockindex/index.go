// Package blockindex maps bytecode-index block starts to the ir.BlockID
// the graph builder allocated for them. It is the small lookup table the
// opcode dispatcher consults on every branch target to decide whether it
// is jumping to a block that already exists in the arena.
package blockindex

import "github.com/kristofer/graphbuilder/pkg/ir"

// Index is a BCI -> ir.BlockID map. It is populated once, up front, from
// the block map (every block-starting BCI is known before any bytecode is
// parsed), then only read during parsing.
type Index struct {
	byBCI map[int]ir.BlockID
}

// New returns an empty Index.
func New() *Index {
	return &Index{byBCI: make(map[int]ir.BlockID)}
}

// Set records that startBCI begins block id. Calling Set twice for the
// same BCI with different ids indicates a block-map bug upstream; the
// second call silently wins, matching a plain map's semantics.
func (x *Index) Set(startBCI int, id ir.BlockID) {
	x.byBCI[startBCI] = id
}

// Lookup returns the block beginning at bci, if any.
func (x *Index) Lookup(bci int) (ir.BlockID, bool) {
	id, ok := x.byBCI[bci]
	return id, ok
}

// Len returns the number of registered block starts.
func (x *Index) Len() int { return len(x.byBCI) }
