// Package builder is the top-level entry point: Build walks one method's
// bytecode with the frame-state abstract interpreter (pkg/frame),
// materializing ir.Graph nodes block by block in deterministic
// (ascending) block-id order (pkg/worklist), merging join-point state
// (pkg/merge), and routing exceptional control flow through shared
// dispatch chains (pkg/dispatch).
package builder

import (
	"fmt"

	"github.com/kristofer/graphbuilder/pkg/blockindex"
	"github.com/kristofer/graphbuilder/pkg/blockmap"
	"github.com/kristofer/graphbuilder/pkg/classfile"
	"github.com/kristofer/graphbuilder/pkg/dispatch"
	"github.com/kristofer/graphbuilder/pkg/frame"
	"github.com/kristofer/graphbuilder/pkg/ir"
	"github.com/kristofer/graphbuilder/pkg/merge"
	"github.com/kristofer/graphbuilder/pkg/worklist"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// parser is the mutable state threaded through one method's worth of
// block parsing. It is created fresh by Build and discarded once the
// graph is complete.
type parser struct {
	g    *ir.Graph
	in   MethodInput
	opts Options

	bidx *blockindex.Index
	bm   *blockmap.BlockMap
	wl   *worklist.Worklist
	fb   *frame.Builder
	disp *dispatch.Builder
	log  zerolog.Logger

	handlers []ir.Handler
	parsed   map[ir.BlockID]bool

	// real marks block ids that came from the block map, as opposed to a
	// synthetic block built on the fly: a dispatch-chain test block (built
	// by pkg/dispatch), the shared unwind block, and a synchronized
	// method's unlock-and-rethrow handler are all fully synthesized after
	// the worklist drains and must never be pushed onto it or walked as
	// bytecode.
	real map[ir.BlockID]bool

	// syncUnwind and syncMonitor identify a synchronized method's
	// unlock-and-rethrow handler and the object it must release, set by
	// buildStartState. syncUnwind is ir.InvalidBlockID for a method that
	// isn't synchronized.
	syncUnwind  ir.BlockID
	syncMonitor ir.NodeID
}

// Build compiles one method's bytecode into an ir.Graph. It returns a
// *Bailout when the bytecode itself is at fault (a verifier-equivalent
// failure or a blown node budget); any other error return indicates a
// bug in this module, recovered from a single panic/recover pair at this
// entry point so that every internal invariant check elsewhere can fail
// loudly with `panic` instead of threading a plumbing error through every
// call site.
func Build(in MethodInput, opts Options) (result *Result, err error) {
	defer func() {
		if r := recover(); r == nil {
			return
		} else if ie, ok := r.(*internalError); ok {
			err = ie
			result = nil
		} else {
			panic(r)
		}
	}()

	if opts.TraceParserLevel > 0 && opts.TraceWriter == nil {
		panicInternal("trace level set without a trace writer", nil)
	}

	p, err := newParser(in, opts)
	if err != nil {
		return nil, err
	}

	if err := p.run(); err != nil {
		return nil, err
	}

	if err := p.finalizeUnwindBlocks(); err != nil {
		return nil, err
	}

	p.dropUnreachableBlocks()

	return &Result{Graph: p.g}, nil
}

func newParser(in MethodInput, opts Options) (*parser, error) {
	handlerRanges := make([]blockmap.HandlerRange, len(in.Handlers))
	for i, h := range in.Handlers {
		handlerRanges[i] = blockmap.HandlerRange{StartBCI: h.StartBCI, EndBCI: h.EndBCI, HandlerBCI: h.HandlerBCI}
	}
	bm, err := blockmap.Analyzer{}.Analyze(in.Stream, handlerRanges)
	if err != nil {
		return nil, errors.Wrap(err, "blockmap analysis")
	}

	g := ir.NewGraph(opts.MaxNodeCount)
	bidx := blockindex.New()
	real := make(map[ir.BlockID]bool)
	for _, e := range bm.Entries {
		id := g.NewBlock(e.StartBCI, e.IsLoopHeader)
		bidx.Set(e.StartBCI, id)
		real[id] = true
	}
	start, ok := bidx.Lookup(0)
	if !ok {
		panicInternal("block map produced no entry at bci 0", nil)
	}
	g.StartBlock = start
	g.UnwindBlock = g.NewBlock(-1, false)
	// UnwindBlock is deliberately left out of real: spec.md §4.6 step 3
	// synthesizes its single rethrow node directly once the worklist
	// drains (finalizeUnwind), it is never walked as bytecode.

	var logger zerolog.Logger
	if opts.TraceWriter != nil {
		logger = zerolog.New(opts.TraceWriter).With().Timestamp().Logger()
	} else {
		logger = zerolog.Nop()
	}

	p := &parser{
		g:           g,
		in:          in,
		opts:        opts,
		bidx:        bidx,
		bm:          bm,
		wl:          worklist.New(),
		fb:          frame.NewBuilder(in.MaxLocals, in.MaxStack, in.MaxLocks+1),
		log:         logger,
		parsed:      make(map[ir.BlockID]bool),
		real:        real,
		syncUnwind:  ir.InvalidBlockID,
		syncMonitor: ir.InvalidNodeID,
	}
	p.disp = dispatch.New(g, g.UnwindBlock)

	for _, h := range in.Handlers {
		if h.StartBCI >= h.EndBCI {
			continue // empty range, drops per spec.md §4.7's unreachable-handler rule
		}
		entry, ok := bidx.Lookup(h.HandlerBCI)
		if !ok {
			return nil, newBailout(KindVerifier, h.HandlerBCI, errors.New("exception handler targets a non-block-start bci"))
		}
		p.handlers = append(p.handlers, ir.Handler{
			StartBCI: h.StartBCI, EndBCI: h.EndBCI, HandlerBCI: h.HandlerBCI,
			CatchType: h.CatchType, EntryBlock: entry,
		})
	}

	if err := p.buildStartState(); err != nil {
		return nil, err
	}
	return p, nil
}

// buildStartState materializes the start block's parameters (and, for a
// synchronized method, the initial monitor-enter) as the method's
// initial FrameState, then appends the synthetic catch-all handler that
// guarantees a synchronized method always releases its monitor on an
// exceptional exit.
func (p *parser) buildStartState() error {
	maxLocals := p.in.MaxLocals
	fs := &ir.FrameState{ResumeBCI: 0, Locals: make([]ir.NodeID, maxLocals), LocalKinds: make([]ir.Kind, maxLocals)}
	for i := range fs.Locals {
		fs.Locals[i] = ir.InvalidNodeID
		fs.LocalKinds[i] = ir.KindDead
	}

	slot := 0
	for i, k := range p.in.ParamKinds {
		id, err := p.g.NewNode(ir.OpParameter, k, p.g.StartBlock, nil, nil, i)
		if err != nil {
			return newBailout(KindResource, 0, err)
		}
		fs.Locals[slot] = id
		fs.LocalKinds[slot] = k
		slot++
		if k.IsTwoSlot() {
			fs.Locals[slot] = ir.InvalidNodeID
			fs.LocalKinds[slot] = ir.KindContinuation
			slot++
		}
	}

	p.g.Block(p.g.StartBlock).StateBefore = fs
	p.fb.RestoreFrom(fs)

	if p.in.IsSynchronized {
		var monitor ir.NodeID
		var err error
		if p.in.IsStatic {
			monitor, err = p.g.NewNode(ir.OpConstant, ir.KindObject, p.g.StartBlock, nil, nil, classLiteral{Type: p.in.DeclaringType})
		} else {
			monitor = fs.Locals[0] // `this`
		}
		if err != nil {
			return newBailout(KindResource, 0, err)
		}
		enterID, err := p.g.NewNode(ir.OpMonitorEnter, ir.KindVoid, p.g.StartBlock, []ir.NodeID{monitor}, fs.Clone(), nil)
		if err != nil {
			return newBailout(KindResource, 0, err)
		}
		p.g.AppendBody(p.g.StartBlock, enterID)
		if err := p.fb.Lock(monitor); err != nil {
			return newBailout(KindVerifier, 0, err)
		}
		p.g.Block(p.g.StartBlock).StateBefore = p.fb.Snapshot(0)

		unwind := p.g.NewBlock(-1, false)
		p.syncUnwind = unwind
		p.syncMonitor = monitor
		p.handlers = append(p.handlers, ir.Handler{
			StartBCI: 0, EndBCI: p.in.Stream.Len(), HandlerBCI: -1,
			CatchType:  ir.TypeRef{Resolved: true, Name: ""},
			EntryBlock: unwind,
		})
	}
	return nil
}

// classLiteral is OpConstant's Aux payload for a `Class` object literal
// (the monitor object of a synchronized static method).
type classLiteral struct{ Type ir.TypeRef }

// run drains the worklist, parsing each block exactly once in ascending
// block-id order.
func (p *parser) run() error {
	if err := merge.Merge(p.g, p.g.StartBlock, p.g.Block(p.g.StartBlock).StateBefore); err != nil {
		panicInternal("start block self-merge failed", err)
	}
	p.wl.Push(int32(p.g.StartBlock))

	for {
		id, ok := p.wl.Pop()
		if !ok {
			break
		}
		blockID := ir.BlockID(id)
		if p.parsed[blockID] {
			continue
		}
		p.parsed[blockID] = true
		if err := p.parseBlock(blockID); err != nil {
			return err
		}
	}
	return nil
}

// parseBlock abstractly interprets one block's instructions from its
// recorded state-before until it reaches a terminator, emitting nodes
// into the graph and queuing successors as it goes.
func (p *parser) parseBlock(id ir.BlockID) error {
	blk := p.g.Block(id)
	p.fb.RestoreFrom(blk.StateBefore)
	if p.opts.TraceParserLevel > 0 {
		p.log.Debug().Int("block", int(id)).Int("start_bci", blk.StartBCI).Msg("parsing block")
	}

	bci := blk.StartBCI
	for {
		next, ok := p.bidx.Lookup(bci)
		if ok && next != id && bci != blk.StartBCI {
			return p.terminateFallthrough(id, bci)
		}
		instr, err := p.in.Stream.At(bci)
		if err != nil {
			return newBailout(KindVerifier, bci, err)
		}
		if p.opts.TraceParserLevel > 0 {
			ev := p.log.Debug().Int("block", int(id)).Int("bci", bci).Str("op", instr.Op.String())
			if p.opts.TraceParserLevel > 1 {
				ev = ev.Int("stack_slots", p.fb.StackLen()).Int("lock_depth", p.fb.LockDepth())
			}
			ev.Msg("instruction")
		}
		done, err := p.dispatchOne(id, instr)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		bci = p.in.Stream.NextBCI(bci)
		if bci >= p.in.Stream.Len() {
			return p.terminateFallthrough(id, bci)
		}
	}
}

// terminateFallthrough handles a block whose bytecode runs into the next
// block's start BCI without an explicit control-flow instruction — an
// implicit fall-through, synthesized as a real OpEndGoto node so every
// block uniformly ends in one of the OpEnd* variants.
func (p *parser) terminateFallthrough(id ir.BlockID, nextBCI int) error {
	target, ok := p.bidx.Lookup(nextBCI)
	if !ok {
		return newBailout(KindVerifier, nextBCI, errors.New("control falls off the end of the method"))
	}
	endID, err := p.g.NewNode(ir.OpEndGoto, ir.KindVoid, id, nil, p.fb.Snapshot(nextBCI), target)
	if err != nil {
		return newBailout(KindResource, nextBCI, err)
	}
	p.g.SetEnd(id, endID)
	return p.mergeSuccessor(id, target, nextBCI)
}

// mergeSuccessor wires id -> target, merges the live frame state, and
// queues target for parsing if it is not already parsed or pending.
func (p *parser) mergeSuccessor(from, target ir.BlockID, bci int) error {
	p.g.AddPred(target, from)
	if err := merge.Merge(p.g, target, p.fb.Snapshot(bci)); err != nil {
		panicInternal("merge invariant violated at a normal control-flow edge", err)
	}
	if !p.parsed[target] {
		p.wl.Push(int32(target))
	}
	return nil
}

// finalizeUnwindBlocks synthesizes the body of every shared exception exit
// reached while draining the worklist: the method's single unwind block
// (spec.md §4.6 step 3) and, for a synchronized method, the
// unlock-and-rethrow handler (spec.md §4.7 step 8). Both are built here,
// after every real dispatch edge into them has already been merged, so
// each one's state-before reflects every throw site that reaches it —
// they are never parsed as bytecode and never pushed onto the worklist.
func (p *parser) finalizeUnwindBlocks() error {
	if err := p.finalizeUnwind(p.g.UnwindBlock, ir.InvalidNodeID); err != nil {
		return err
	}
	if p.syncUnwind != ir.InvalidBlockID {
		if err := p.finalizeUnwind(p.syncUnwind, p.syncMonitor); err != nil {
			return err
		}
	}
	return nil
}

// finalizeUnwind builds the terminal rethrow for one shared exception exit
// block. If monitor is valid, a MONITOREXIT of it is emitted first — the
// synchronized-method wrapper's release-then-propagate shape. A block
// nothing ever threw into is left with no body and no end; dropUnreachableBlocks
// marks it Unreachable.
func (p *parser) finalizeUnwind(blk ir.BlockID, monitor ir.NodeID) error {
	b := p.g.Block(blk)
	if b.StateBefore == nil {
		return nil
	}
	exc := b.StateBefore.Stack[0]

	if monitor != ir.InvalidNodeID {
		exitID, err := p.g.NewNode(ir.OpMonitorExit, ir.KindVoid, blk, []ir.NodeID{monitor}, nil, nil)
		if err != nil {
			return newBailout(KindResource, -1, err)
		}
		p.g.AppendBody(blk, exitID)
	}

	endID, err := p.g.NewNode(ir.OpEndUnwind, ir.KindVoid, blk, []ir.NodeID{exc}, nil, nil)
	if err != nil {
		return newBailout(KindResource, -1, err)
	}
	p.g.SetEnd(blk, endID)
	return nil
}

// dropUnreachableBlocks marks every block the worklist never reached
// (zero predecessors, the start block excepted) as Unreachable, per spec.md §4.7 step 7. They are left in
// the arena rather than compacted out — renumbering ids after the fact
// would break the deterministic-id-assignment property.
func (p *parser) dropUnreachableBlocks() {
	for i := range p.g.Blocks() {
		id := ir.BlockID(i)
		blk := p.g.Block(id)
		if id == p.g.StartBlock {
			continue
		}
		if !p.parsed[id] && len(blk.Preds) == 0 {
			blk.Unreachable = true
		}
	}
}

func (p *parser) bailoutf(bci int, format string, args ...any) error {
	return newBailout(KindVerifier, bci, fmt.Errorf(format, args...))
}

// activeHandlers returns every handler covering bci, in declaration
// order.
func (p *parser) activeHandlers(bci int) []ir.Handler {
	var out []ir.Handler
	for _, h := range p.handlers {
		if h.Covers(bci) {
			out = append(out, h)
		}
	}
	return out
}

// wireExceptionEdge materializes the thrown-object value for a
// potentially-throwing node and routes it through the exception-dispatch
// chain for whatever handlers cover bci (falling through to the unwind
// block when none do). Dispatch-chain test blocks, the unwind block, and
// a synchronized method's unlock handler are all synthetic and never
// queued; only a real handler's own entry block is pushed onto the
// worklist here.
func (p *parser) wireExceptionEdge(blockID ir.BlockID, bci int, opNode ir.NodeID) error {
	excID, err := p.g.NewNode(ir.OpExceptionObject, ir.KindObject, blockID, nil, nil, nil)
	if err != nil {
		return newBailout(KindResource, bci, err)
	}
	p.g.AppendBody(blockID, excID)

	fs := p.fb.DuplicateModified(bci, ir.KindObject, excID)
	cf := dispatch.CanonicalFrame{Locals: fs.Locals, LocalKinds: fs.LocalKinds, Locks: fs.Locks}
	entry, err := p.disp.Dispatch(blockID, p.activeHandlers(bci), cf, excID)
	if err != nil {
		panicInternal("exception dispatch wiring failed", err)
	}
	p.g.SetExceptionEdge(opNode, entry)
	if p.real[entry] && !p.parsed[entry] {
		p.wl.Push(int32(entry))
	}
	return nil
}
