// Package graphprint renders a built graph as a human-readable tree, for
// use by cmd/graphbuild's dump subcommand and by tests that want to
// assert on structure without wiring up a full graph equality check.
//
// The shape mirrors the bytecode package's disassembly style: every node
// gets one line naming its op, kind, inputs, and a short rendering of its
// Aux payload, with block headers carrying predecessor and phi
// information above their body.
package graphprint

import (
	"fmt"
	"strings"

	"github.com/xlab/treeprint"

	"github.com/kristofer/graphbuilder/pkg/ir"
)

// Dump renders every block of g, in id order, as a tree. Unreachable
// blocks are included but marked, since seeing what the worklist dropped
// is often the point of a dump.
func Dump(g *ir.Graph) string {
	root := treeprint.New()
	root.SetValue("graph")

	for _, b := range g.Blocks() {
		blockBranch := root.AddBranch(blockHeader(b))

		for _, phi := range b.Phis {
			blockBranch.AddNode(nodeLine(g, phi))
		}
		for _, n := range b.Body {
			blockBranch.AddNode(nodeLine(g, n))
		}
		if b.End != ir.InvalidNodeID {
			blockBranch.AddNode(nodeLine(g, b.End))
		}
	}

	return root.String()
}

// DumpBlock renders a single block's subtree, for tests that only care
// about one block's contents.
func DumpBlock(g *ir.Graph, id ir.BlockID) string {
	b := g.Block(id)
	tree := treeprint.New()
	tree.SetValue(blockHeader(*b))

	for _, phi := range b.Phis {
		tree.AddNode(nodeLine(g, phi))
	}
	for _, n := range b.Body {
		tree.AddNode(nodeLine(g, n))
	}
	if b.End != ir.InvalidNodeID {
		tree.AddNode(nodeLine(g, b.End))
	}

	return tree.String()
}

// DumpHandlers renders a method's exception table: one line per handler,
// in declaration order, with its covered range, catch type, and entry
// block.
func DumpHandlers(handlers []ir.Handler) string {
	root := treeprint.New()
	root.SetValue("handlers")
	for i, h := range handlers {
		catch := "any"
		if !h.IsCatchAll() {
			catch = formatTypeRef(h.CatchType)
		}
		root.AddNode(fmt.Sprintf("[%d] bci [%d,%d) catch=%s -> block%d", i, h.StartBCI, h.EndBCI, catch, h.EntryBlock))
	}
	return root.String()
}

// DumpExceptionEdges renders every node in g that can throw, alongside
// the dispatch-chain block its exception successor enters — the view
// cmd/graphbuild's dump subcommand uses instead of the full block-by-block
// Dump, since most of a dispatch chain's structure (the test blocks
// themselves) is already visible by following these edges one hop at a
// time.
func DumpExceptionEdges(g *ir.Graph) string {
	root := treeprint.New()
	root.SetValue("exception-edges")
	for i := 0; i < g.NodeCount(); i++ {
		id := ir.NodeID(i)
		target, ok := g.ExceptionEdge(id)
		if !ok {
			continue
		}
		n := g.Node(id)
		root.AddNode(fmt.Sprintf("n%d: %s (block%d) -> block%d", id, n.Op, n.Block, target))
	}
	return root.String()
}

func blockHeader(b ir.Block) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "block%d", b.ID)
	if b.StartBCI >= 0 {
		fmt.Fprintf(&sb, " @bci=%d", b.StartBCI)
	}
	if b.IsLoopHeader {
		sb.WriteString(" loop-header")
	}
	if b.Unreachable {
		sb.WriteString(" unreachable")
	}
	if len(b.Preds) > 0 {
		fmt.Fprintf(&sb, " preds=%s", blockIDs(b.Preds))
	}
	return sb.String()
}

func nodeLine(g *ir.Graph, id ir.NodeID) string {
	n := g.Node(id)
	line := fmt.Sprintf("n%d: %s(%s)", n.ID, n.Op, n.ValueKind)
	if len(n.Inputs) > 0 {
		line += " <- " + nodeIDs(n.Inputs)
	}
	if aux := formatAux(g, n); aux != "" {
		line += " " + aux
	}
	return line
}

func formatAux(g *ir.Graph, n *ir.Node) string {
	switch n.Op {
	case ir.OpConstant:
		return fmt.Sprintf("= %v", n.Aux)

	case ir.OpArithmetic, ir.OpLogic, ir.OpShift, ir.OpCompare:
		return binaryOpName(n.Aux.(ir.BinaryOp))

	case ir.OpConvert, ir.OpNegate:
		return unaryOpName(n.Aux.(ir.UnaryOp))

	case ir.OpLoadField, ir.OpStoreField:
		f := n.Aux.(ir.FieldRef)
		return formatFieldRef(f)

	case ir.OpNewInstance:
		return formatTypeRef(n.Aux.(ir.TypeRef))

	case ir.OpNewTypeArray:
		return fmt.Sprintf("elem=%s", n.Aux.(ir.Kind))

	case ir.OpNewObjectArray, ir.OpNewMultiArray:
		return formatTypeRef(n.Aux.(ir.TypeRef))

	case ir.OpTypeCheck:
		return formatTypeRef(n.Aux.(ir.TypeRef))

	case ir.OpInvoke:
		return formatInvokeInfo(n.Aux.(ir.InvokeInfo))

	case ir.OpDeoptimize:
		return fmt.Sprintf("reason=%q", n.Aux)

	case ir.OpPhi:
		meta := n.Aux.(*ir.PhiMeta)
		if meta.IsLoopPhi {
			return "loop-phi"
		}
		return ""

	case ir.OpEndGoto:
		return fmt.Sprintf("-> block%d", n.Aux.(ir.BlockID))

	case ir.OpEndIf:
		t := n.Aux.(ir.IfTargets)
		return fmt.Sprintf("true->block%d false->block%d", t.TrueTarget, t.FalseTarget)

	case ir.OpEndSwitch:
		return formatSwitchTargets(n.Aux.(ir.SwitchTargets))

	default:
		if n.Aux == nil {
			return ""
		}
		return fmt.Sprintf("%v", n.Aux)
	}
}

func formatTypeRef(t ir.TypeRef) string {
	if !t.Resolved {
		return "unresolved"
	}
	if t.Name == "" {
		return "any"
	}
	return t.Name
}

func formatFieldRef(f ir.FieldRef) string {
	if !f.Resolved {
		return "unresolved"
	}
	kind := "instance"
	if f.Static {
		kind = "static"
	}
	return fmt.Sprintf("%s %s.%s:%s", kind, f.DeclaringType, f.Name, f.Kind)
}

func formatInvokeInfo(inv ir.InvokeInfo) string {
	binding := "indirect"
	if inv.Direct {
		binding = "direct"
	}
	if !inv.Resolved {
		return fmt.Sprintf("%s %s.%s unresolved", inv.Kind, inv.DeclaringType, inv.Selector)
	}
	return fmt.Sprintf("%s %s.%s %s", inv.Kind, inv.DeclaringType, inv.Selector, binding)
}

func formatSwitchTargets(s ir.SwitchTargets) string {
	var sb strings.Builder
	sb.WriteString("cases=[")
	for i, t := range s.Targets {
		if i == len(s.Targets)-1 {
			fmt.Fprintf(&sb, "default->block%d", t)
			continue
		}
		key := s.Low + int32(i)
		if len(s.Keys) > 0 {
			key = s.Keys[i]
		}
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "%d->block%d", key, t)
	}
	sb.WriteString("]")
	return sb.String()
}

func binaryOpName(op ir.BinaryOp) string {
	switch op {
	case ir.BinAdd:
		return "add"
	case ir.BinSub:
		return "sub"
	case ir.BinMul:
		return "mul"
	case ir.BinDiv:
		return "div"
	case ir.BinRem:
		return "rem"
	case ir.BinAnd:
		return "and"
	case ir.BinOr:
		return "or"
	case ir.BinXor:
		return "xor"
	case ir.BinShl:
		return "shl"
	case ir.BinShr:
		return "shr"
	case ir.BinUshr:
		return "ushr"
	case ir.CmpLT:
		return "lt"
	case ir.CmpLE:
		return "le"
	case ir.CmpGT:
		return "gt"
	case ir.CmpGE:
		return "ge"
	case ir.CmpEQ:
		return "eq"
	case ir.CmpNE:
		return "ne"
	default:
		return "unknown"
	}
}

func unaryOpName(op ir.UnaryOp) string {
	switch op {
	case ir.UnaryNeg:
		return "neg"
	case ir.UnaryConvert:
		return "convert"
	default:
		return "unknown"
	}
}

func blockIDs(ids []ir.BlockID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("block%d", id)
	}
	return strings.Join(parts, ",")
}

func nodeIDs(ids []ir.NodeID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("n%d", id)
	}
	return strings.Join(parts, ",")
}
