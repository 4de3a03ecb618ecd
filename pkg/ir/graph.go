package ir

import "errors"

// ErrNodeBudgetExceeded is returned by NewNode when emitting the next
// node would exceed Graph.MaxNodeCount. The caller (pkg/builder) turns
// this into a resource Bailout; no partial graph is returned to the host
// compiler.
var ErrNodeBudgetExceeded = errors.New("ir: max node count exceeded")

// Graph is the append-only arena that owns every Node and Block created
// during one method compile. It outlives the builder that populates it;
// nothing is freed individually, and node/block ids are assigned
// monotonically so that two compiles of the same method under the same
// options produce identical ids (spec.md §5, §8 "deterministic id
// assignment").
type Graph struct {
	nodes  []Node
	blocks []Block

	// MaxNodeCount bounds total emitted nodes (0 = unbounded). Checked
	// by NewNode before every append.
	MaxNodeCount int

	// StartBlock and UnwindBlock are populated by the top-level driver,
	// which creates UnwindBlock up front for every method, before any
	// block is parsed.
	StartBlock  BlockID
	UnwindBlock BlockID

	// exceptionEdges records, for a node that can throw, the block its
	// exception successor enters — either a user handler's entry block,
	// a dispatch-chain test block, or UnwindBlock. Not every node has
	// one; absence means the node cannot throw.
	exceptionEdges map[NodeID]BlockID
}

// NewGraph returns an empty arena ready for one method compile.
func NewGraph(maxNodeCount int) *Graph {
	return &Graph{
		MaxNodeCount:   maxNodeCount,
		StartBlock:     InvalidBlockID,
		UnwindBlock:    InvalidBlockID,
		exceptionEdges: make(map[NodeID]BlockID),
	}
}

// SetExceptionEdge records n's exception successor.
func (g *Graph) SetExceptionEdge(n NodeID, target BlockID) {
	g.exceptionEdges[n] = target
}

// ExceptionEdge returns n's exception successor, if it has one.
func (g *Graph) ExceptionEdge(n NodeID) (BlockID, bool) {
	target, ok := g.exceptionEdges[n]
	return target, ok
}

// NodeCount returns the number of nodes emitted so far.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// BlockCount returns the number of blocks created so far.
func (g *Graph) BlockCount() int { return len(g.blocks) }

// Node returns the node at id. The caller must hold a valid id obtained
// from this graph; out-of-range access panics, matching the arena's
// internal-invariant contract (an out-of-range handle is a programming
// error, not a recoverable condition).
func (g *Graph) Node(id NodeID) *Node {
	return &g.nodes[id]
}

// Block returns the block at id.
func (g *Graph) Block(id BlockID) *Block {
	return &g.blocks[id]
}

// Blocks returns every block in id order (creation order), for iteration
// by the merge engine, dispatch builder, and printers.
func (g *Graph) Blocks() []Block {
	return g.blocks
}

// NewBlock creates and returns a fresh Block, keyed by its dense id.
func (g *Graph) NewBlock(startBCI int, isLoopHeader bool) BlockID {
	id := BlockID(len(g.blocks))
	g.blocks = append(g.blocks, Block{
		ID:           id,
		StartBCI:     startBCI,
		End:          InvalidNodeID,
		IsLoopHeader: isLoopHeader,
	})
	return id
}

// NewNode appends a node to the arena and returns its id, or
// ErrNodeBudgetExceeded if MaxNodeCount would be exceeded.
func (g *Graph) NewNode(op Op, kind Kind, block BlockID, inputs []NodeID, state *FrameState, aux any) (NodeID, error) {
	if g.MaxNodeCount > 0 && len(g.nodes) >= g.MaxNodeCount {
		return InvalidNodeID, ErrNodeBudgetExceeded
	}
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, Node{
		ID:        id,
		Op:        op,
		ValueKind: kind,
		Inputs:    inputs,
		Block:     block,
		State:     state,
		Aux:       aux,
	})
	return id, nil
}

// NewPhi creates a φ-node owned by block with a single initial input
// (the value observed on the first predecessor edge merged into the
// block). Later predecessor edges append additional inputs via
// AppendPhiInput. The node is registered in Block.Phis.
func (g *Graph) NewPhi(block BlockID, kind Kind, isLoopPhi bool, initial NodeID) (NodeID, error) {
	id, err := g.NewNode(OpPhi, kind, block, []NodeID{initial}, nil, &PhiMeta{IsLoopPhi: isLoopPhi})
	if err != nil {
		return InvalidNodeID, err
	}
	b := g.Block(block)
	b.Phis = append(b.Phis, id)
	return id, nil
}

// AppendPhiInput appends input as the next predecessor's value for an
// existing φ-node. The caller (pkg/merge) is responsible for calling this
// exactly once per predecessor edge, in predecessor order, so that
// len(Inputs) tracks len(Block.Preds).
func (g *Graph) AppendPhiInput(phi NodeID, input NodeID) {
	n := g.Node(phi)
	n.Inputs = append(n.Inputs, input)
}

// SetEnd records block's terminating node.
func (g *Graph) SetEnd(block BlockID, end NodeID) {
	g.Block(block).End = end
}

// AddPred appends a predecessor edge to block, in arrival order.
func (g *Graph) AddPred(block BlockID, pred BlockID) {
	b := g.Block(block)
	b.Preds = append(b.Preds, pred)
}

// AppendBody appends a value node to block's linear instruction list.
func (g *Graph) AppendBody(block BlockID, n NodeID) {
	b := g.Block(block)
	b.Body = append(b.Body, n)
}
