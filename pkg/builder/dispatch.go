package builder

import (
	"github.com/kristofer/graphbuilder/pkg/classfile"
	"github.com/kristofer/graphbuilder/pkg/ir"
)

// dispatchOne abstractly interprets a single instruction against the
// block's live frame.Builder state, emitting whatever ir.Node(s) it
// needs. done is true once a block terminator has been emitted (the
// caller must stop parsing this block).
func (p *parser) dispatchOne(id ir.BlockID, in classfile.Instruction) (done bool, err error) {
	switch in.Op {
	case classfile.OpNop:
		return false, nil
	case classfile.OpBreakpoint:
		return true, p.bailoutf(in.BCI, "breakpoint opcode encountered")

	case classfile.OpLoadConstant:
		return false, p.opLoadConstant(id, in)
	case classfile.OpLoadLocal:
		return false, p.opLoadLocal(in)
	case classfile.OpStoreLocal:
		return false, p.opStoreLocal(in)
	case classfile.OpIncLocal:
		return false, p.opIncLocal(id, in)

	case classfile.OpPop:
		_, _, err = p.fb.XPop()
		return false, wrapVerifier(in.BCI, err)
	case classfile.OpPop2:
		if _, _, err = p.fb.XPop(); err != nil {
			return false, wrapVerifier(in.BCI, err)
		}
		_, _, err = p.fb.XPop()
		return false, wrapVerifier(in.BCI, err)
	case classfile.OpDup:
		return false, wrapVerifier(in.BCI, p.opDup())
	case classfile.OpDupX1:
		return false, wrapVerifier(in.BCI, p.opDupX1())
	case classfile.OpDup2:
		return false, wrapVerifier(in.BCI, p.opDup2())
	case classfile.OpSwap:
		return false, wrapVerifier(in.BCI, p.opSwap())
	case classfile.OpDupX2, classfile.OpDup2X1, classfile.OpDup2X2:
		// Rarer wide-dup forms (long/double interleaved with object
		// refs): not constructed by any source pattern this builder's
		// callers emit today. Modeled as a deoptimization point rather
		// than left unimplemented outright.
		return true, p.emitDeopt(id, in.BCI, "wide dup form not lowered")

	case classfile.OpArithmetic, classfile.OpLogic, classfile.OpShift, classfile.OpCompare:
		return false, p.opBinary(id, in)
	case classfile.OpConvert:
		return false, p.opConvert(id, in)
	case classfile.OpNegate:
		return false, p.opNegate(id, in)

	case classfile.OpArrayLength:
		return false, p.opArrayLength(id, in)
	case classfile.OpLoadIndexed:
		return false, p.opLoadIndexed(id, in)
	case classfile.OpStoreIndexed:
		return false, p.opStoreIndexed(id, in)

	case classfile.OpNew:
		return false, p.opNew(id, in)
	case classfile.OpNewTypeArray, classfile.OpNewObjectArray:
		return false, p.opNewArray(id, in)
	case classfile.OpNewMultiArray:
		return false, p.opNewMultiArray(id, in)

	case classfile.OpGetField, classfile.OpGetStatic:
		return false, p.opGetField(id, in)
	case classfile.OpPutField, classfile.OpPutStatic:
		return false, p.opPutField(id, in)

	case classfile.OpCheckCast:
		return false, p.opCheckCast(id, in)
	case classfile.OpInstanceOf:
		return false, p.opInstanceOf(id, in)

	case classfile.OpMonitorEnter:
		return false, p.opMonitorEnter(id, in)
	case classfile.OpMonitorExit:
		return false, p.opMonitorExit(id, in)

	case classfile.OpInvokeStatic, classfile.OpInvokeSpecial, classfile.OpInvokeVirtual, classfile.OpInvokeInterface:
		return false, p.opInvoke(id, in)

	case classfile.OpIfEq, classfile.OpIfNe, classfile.OpIfLt, classfile.OpIfLe, classfile.OpIfGt, classfile.OpIfGe,
		classfile.OpIfNull, classfile.OpIfNonNull, classfile.OpIfCmp:
		return true, p.opIf(id, in)
	case classfile.OpGoto:
		return true, p.opGoto(id, in)
	case classfile.OpJsr, classfile.OpRet:
		return true, p.bailoutf(in.BCI, "jsr/ret subroutines are not supported")
	case classfile.OpTableSwitch, classfile.OpLookupSwitch:
		return true, p.opSwitch(id, in)
	case classfile.OpReturn:
		return true, p.opReturn(id, in)
	case classfile.OpThrow:
		return true, p.opThrow(id, in)

	default:
		return false, p.bailoutf(in.BCI, "unknown opcode %v", in.Op)
	}
}

func wrapVerifier(bci int, err error) error {
	if err == nil {
		return nil
	}
	return newBailout(KindVerifier, bci, err)
}

func (p *parser) opLoadConstant(id ir.BlockID, in classfile.Instruction) error {
	var kind ir.Kind
	var value any
	if in.Index != 0 {
		k, v, ok := p.in.Resolver.LookupConstant(in.Index)
		if !ok {
			return p.emitDeoptNoErr(id, in.BCI, "unresolved constant-pool entry")
		}
		kind, value = k, v
	} else {
		kind = in.Kind
		switch kind {
		case ir.KindLong:
			value = in.IVal
		case ir.KindFloat:
			value = float32(in.FVal)
		case ir.KindDouble:
			value = in.FVal
		case ir.KindObject:
			value = in.SVal
		default:
			value = int32(in.IVal)
		}
	}
	cID, err := p.g.NewNode(ir.OpConstant, kind, id, nil, nil, value)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, cID)
	return wrapVerifier(in.BCI, p.fb.Push(kind, cID))
}

func (p *parser) opLoadLocal(in classfile.Instruction) error {
	v, k, err := p.fb.LoadLocal(in.Index)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	return wrapVerifier(in.BCI, p.fb.Push(k, v))
}

func (p *parser) opStoreLocal(in classfile.Instruction) error {
	v, err := p.fb.Pop(in.Kind)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	return wrapVerifier(in.BCI, p.fb.StoreLocal(in.Index, in.Kind, v))
}

func (p *parser) opIncLocal(id ir.BlockID, in classfile.Instruction) error {
	v, k, err := p.fb.LoadLocal(in.Index)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	incID, err := p.g.NewNode(ir.OpConstant, k, id, nil, nil, int32(in.IVal))
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, incID)
	sumID, err := p.emitBinary(id, in.BCI, ir.BinAdd, k, v, incID)
	if err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.StoreLocal(in.Index, k, sumID))
}

func (p *parser) opDup() error {
	v, k, err := p.fb.XPop()
	if err != nil {
		return err
	}
	if err := p.fb.XPush(v, k); err != nil {
		return err
	}
	return p.fb.XPush(v, k)
}

func (p *parser) opDupX1() error {
	v1, k1, err := p.fb.XPop()
	if err != nil {
		return err
	}
	v2, k2, err := p.fb.XPop()
	if err != nil {
		return err
	}
	if err := p.fb.XPush(v1, k1); err != nil {
		return err
	}
	if err := p.fb.XPush(v2, k2); err != nil {
		return err
	}
	return p.fb.XPush(v1, k1)
}

func (p *parser) opDup2() error {
	v1, k1, err := p.fb.XPop()
	if err != nil {
		return err
	}
	v2, k2, err := p.fb.XPop()
	if err != nil {
		return err
	}
	if err := p.fb.XPush(v2, k2); err != nil {
		return err
	}
	if err := p.fb.XPush(v1, k1); err != nil {
		return err
	}
	if err := p.fb.XPush(v2, k2); err != nil {
		return err
	}
	return p.fb.XPush(v1, k1)
}

func (p *parser) opSwap() error {
	v1, k1, err := p.fb.XPop()
	if err != nil {
		return err
	}
	v2, k2, err := p.fb.XPop()
	if err != nil {
		return err
	}
	if err := p.fb.XPush(v1, k1); err != nil {
		return err
	}
	return p.fb.XPush(v2, k2)
}

func (p *parser) emitBinary(id ir.BlockID, bci int, op ir.BinaryOp, kind ir.Kind, a, b ir.NodeID) (ir.NodeID, error) {
	resultKind := kind
	nodeOp := ir.OpArithmetic
	switch {
	case op >= ir.CmpLT && op <= ir.CmpNE:
		nodeOp = ir.OpCompare
		resultKind = ir.KindInt
	case op == ir.BinAnd || op == ir.BinOr || op == ir.BinXor:
		nodeOp = ir.OpLogic
	case op == ir.BinShl || op == ir.BinShr || op == ir.BinUshr:
		nodeOp = ir.OpShift
	}
	if folded, ok := ir.FoldBinary(p.g, op, kind, a, b); ok {
		c, err := p.newConstant(id, resultKind, folded)
		if err != nil {
			return ir.InvalidNodeID, newBailout(KindResource, bci, err)
		}
		return c, nil
	}
	n, err := p.g.NewNode(nodeOp, resultKind, id, []ir.NodeID{a, b}, nil, op)
	if err != nil {
		return ir.InvalidNodeID, newBailout(KindResource, bci, err)
	}
	p.g.AppendBody(id, n)
	return n, nil
}

func (p *parser) newConstant(id ir.BlockID, kind ir.Kind, value any) (ir.NodeID, error) {
	n, err := p.g.NewNode(ir.OpConstant, kind, id, nil, nil, value)
	if err != nil {
		return ir.InvalidNodeID, err
	}
	p.g.AppendBody(id, n)
	return n, nil
}

func (p *parser) opBinary(id ir.BlockID, in classfile.Instruction) error {
	b, err := p.fb.Pop(in.Kind)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	a, err := p.fb.Pop(in.Kind)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	result, err := p.emitBinary(id, in.BCI, ir.BinaryOp(in.Index), in.Kind, a, b)
	if err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Push(p.g.Node(result).ValueKind, result))
}

func (p *parser) opConvert(id ir.BlockID, in classfile.Instruction) error {
	srcKind := in.Kind
	v, err := p.fb.Pop(srcKind)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	dstKind := ir.Kind(in.Index)
	n, err := p.g.NewNode(ir.OpConvert, dstKind, id, []ir.NodeID{v}, nil, ir.UnaryConvert)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	return wrapVerifier(in.BCI, p.fb.Push(dstKind, n))
}

func (p *parser) opNegate(id ir.BlockID, in classfile.Instruction) error {
	v, err := p.fb.Pop(in.Kind)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	n, err := p.g.NewNode(ir.OpNegate, in.Kind, id, []ir.NodeID{v}, nil, ir.UnaryNeg)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	return wrapVerifier(in.BCI, p.fb.Push(in.Kind, n))
}

func (p *parser) opArrayLength(id ir.BlockID, in classfile.Instruction) error {
	arr, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	n, err := p.g.NewNode(ir.OpArrayLength, ir.KindInt, id, []ir.NodeID{arr}, nil, nil)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Push(ir.KindInt, n))
}

func (p *parser) opLoadIndexed(id ir.BlockID, in classfile.Instruction) error {
	index, err := p.fb.Pop(ir.KindInt)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	arr, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	n, err := p.g.NewNode(ir.OpLoadIndexed, in.Kind, id, []ir.NodeID{arr, index}, nil, nil)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Push(in.Kind, n))
}

func (p *parser) opStoreIndexed(id ir.BlockID, in classfile.Instruction) error {
	value, err := p.fb.Pop(in.Kind)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	index, err := p.fb.Pop(ir.KindInt)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	arr, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	n, err := p.g.NewNode(ir.OpStoreIndexed, in.Kind, id, []ir.NodeID{arr, index, value}, nil, nil)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	return p.wireExceptionEdge(id, in.BCI, n)
}

func (p *parser) opNew(id ir.BlockID, in classfile.Instruction) error {
	ref, ok := p.in.Resolver.LookupType(in.Index)
	if !ok {
		return p.bailoutf(in.BCI, "new references a non-existent constant-pool entry %d", in.Index)
	}
	if !ref.Resolved {
		return p.emitDeoptNoErr(id, in.BCI, "unresolved type for new")
	}
	n, err := p.g.NewNode(ir.OpNewInstance, ir.KindObject, id, nil, nil, ref)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if p.opts.UseAssumptions && p.in.Runtime != nil {
		if info, ok := p.in.Runtime.TypeOf(ref); ok && !info.HasFinalizer {
			p.in.Runtime.RegisterNoFinalizableSubclassAssumption(ref)
		} else {
			fr, err := p.g.NewNode(ir.OpFinalizerRegistration, ir.KindVoid, id, []ir.NodeID{n}, nil, nil)
			if err != nil {
				return newBailout(KindResource, in.BCI, err)
			}
			p.g.AppendBody(id, fr)
		}
	} else {
		fr, err := p.g.NewNode(ir.OpFinalizerRegistration, ir.KindVoid, id, []ir.NodeID{n}, nil, nil)
		if err != nil {
			return newBailout(KindResource, in.BCI, err)
		}
		p.g.AppendBody(id, fr)
	}
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Push(ir.KindObject, n))
}

func (p *parser) opNewArray(id ir.BlockID, in classfile.Instruction) error {
	length, err := p.fb.Pop(ir.KindInt)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	op := ir.OpNewTypeArray
	var aux any = in.Kind
	if in.Op == classfile.OpNewObjectArray {
		op = ir.OpNewObjectArray
		ref, ok := p.in.Resolver.LookupType(in.Index)
		if !ok {
			return p.bailoutf(in.BCI, "anewarray references a non-existent constant-pool entry %d", in.Index)
		}
		if !ref.Resolved {
			return p.emitDeoptNoErr(id, in.BCI, "unresolved element type for anewarray")
		}
		aux = ref
	}
	n, err := p.g.NewNode(op, ir.KindObject, id, []ir.NodeID{length}, nil, aux)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Push(ir.KindObject, n))
}

func (p *parser) opNewMultiArray(id ir.BlockID, in classfile.Instruction) error {
	dims := in.Index
	lengths := make([]ir.NodeID, dims)
	for i := dims - 1; i >= 0; i-- {
		v, err := p.fb.Pop(ir.KindInt)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		lengths[i] = v
	}
	ref, ok := p.in.Resolver.LookupType(in.Index)
	if !ok {
		return p.bailoutf(in.BCI, "multianewarray references a non-existent constant-pool entry %d", in.Index)
	}
	if !ref.Resolved {
		return p.emitDeoptNoErr(id, in.BCI, "unresolved element type for multianewarray")
	}
	n, err := p.g.NewNode(ir.OpNewMultiArray, ir.KindObject, id, lengths, nil, ref)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Push(ir.KindObject, n))
}

func (p *parser) opGetField(id ir.BlockID, in classfile.Instruction) error {
	static := in.Op == classfile.OpGetStatic
	var obj ir.NodeID
	if !static {
		v, err := p.fb.Pop(ir.KindObject)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		obj = v
	}

	ref, ok := p.in.Resolver.LookupField(in.Index)
	if !ok {
		return p.bailoutf(in.BCI, "field access references a non-existent constant-pool entry %d", in.Index)
	}
	if !ref.Resolved {
		return p.emitDeoptDefault(id, in.BCI, ref.Kind, "unresolved field reference")
	}
	if static && ref.ConstantValue != nil {
		v, err := p.newConstant(id, ref.Kind, ref.ConstantValue)
		if err != nil {
			return newBailout(KindResource, in.BCI, err)
		}
		return wrapVerifier(in.BCI, p.fb.Push(ref.Kind, v))
	}

	var inputs []ir.NodeID
	if !static {
		inputs = []ir.NodeID{obj}
	}
	n, err := p.g.NewNode(ir.OpLoadField, ref.Kind, id, inputs, nil, ref)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if !static {
		if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
			return err
		}
	}
	return wrapVerifier(in.BCI, p.fb.Push(ref.Kind, n))
}

func (p *parser) opPutField(id ir.BlockID, in classfile.Instruction) error {
	static := in.Op == classfile.OpPutStatic
	value, err := p.fb.Pop(in.Kind)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	var obj ir.NodeID
	if !static {
		v, err := p.fb.Pop(ir.KindObject)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		obj = v
	}

	ref, ok := p.in.Resolver.LookupField(in.Index)
	if !ok {
		return p.bailoutf(in.BCI, "field access references a non-existent constant-pool entry %d", in.Index)
	}
	if !ref.Resolved {
		_, err := p.emitDeoptMark(id, in.BCI, "unresolved field reference")
		return err
	}

	var inputs []ir.NodeID
	if !static {
		inputs = []ir.NodeID{obj, value}
	} else {
		inputs = []ir.NodeID{value}
	}
	n, err := p.g.NewNode(ir.OpStoreField, ir.KindVoid, id, inputs, nil, ref)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if !static {
		return p.wireExceptionEdge(id, in.BCI, n)
	}
	return nil
}

func (p *parser) opCheckCast(id ir.BlockID, in classfile.Instruction) error {
	obj, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	ref, ok := p.in.Resolver.LookupType(in.Index)
	if !ok {
		return p.bailoutf(in.BCI, "checkcast references a non-existent constant-pool entry %d", in.Index)
	}
	if !ref.Resolved {
		return p.emitDeoptNoErr(id, in.BCI, "unresolved checkcast type")
	}
	n, err := p.g.NewNode(ir.OpTypeCheck, ir.KindInt, id, []ir.NodeID{obj}, nil, ref)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Push(ir.KindObject, obj))
}

func (p *parser) opInstanceOf(id ir.BlockID, in classfile.Instruction) error {
	obj, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	ref, ok := p.in.Resolver.LookupType(in.Index)
	if !ok {
		return p.bailoutf(in.BCI, "instanceof references a non-existent constant-pool entry %d", in.Index)
	}
	if !ref.Resolved {
		return p.emitDeoptDefault(id, in.BCI, ir.KindInt, "unresolved instanceof type")
	}
	n, err := p.g.NewNode(ir.OpTypeCheck, ir.KindInt, id, []ir.NodeID{obj}, nil, ref)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	return wrapVerifier(in.BCI, p.fb.Push(ir.KindInt, n))
}

func (p *parser) opMonitorEnter(id ir.BlockID, in classfile.Instruction) error {
	obj, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	n, err := p.g.NewNode(ir.OpMonitorEnter, ir.KindVoid, id, []ir.NodeID{obj}, nil, nil)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	return wrapVerifier(in.BCI, p.fb.Lock(obj))
}

func (p *parser) opMonitorExit(id ir.BlockID, in classfile.Instruction) error {
	obj, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	if _, err := p.fb.Unlock(); err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	n, err := p.g.NewNode(ir.OpMonitorExit, ir.KindVoid, id, []ir.NodeID{obj}, nil, nil)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	return p.wireExceptionEdge(id, in.BCI, n)
}

func (p *parser) opIf(id ir.BlockID, in classfile.Instruction) error {
	var cmpInputs []ir.NodeID
	switch in.Op {
	case classfile.OpIfNull, classfile.OpIfNonNull:
		a, err := p.fb.Pop(ir.KindObject)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		null, err := p.newConstant(id, ir.KindObject, nil)
		if err != nil {
			return newBailout(KindResource, in.BCI, err)
		}
		cmpInputs = []ir.NodeID{a, null}
	case classfile.OpIfCmp:
		b, err := p.fb.Pop(in.Kind)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		a, err := p.fb.Pop(in.Kind)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		cmpInputs = []ir.NodeID{a, b}
	default:
		a, err := p.fb.Pop(ir.KindInt)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		zero, err := p.newConstant(id, ir.KindInt, int32(0))
		if err != nil {
			return newBailout(KindResource, in.BCI, err)
		}
		cmpInputs = []ir.NodeID{a, zero}
	}
	cmpOp := ifComparator(in.Op)
	if in.Op == classfile.OpIfCmp {
		cmpOp = ir.BinaryOp(in.Index)
	}
	condID, err := p.g.NewNode(ir.OpCompare, ir.KindInt, id, cmpInputs, nil, cmpOp)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, condID)

	thenTarget, ok := p.bidx.Lookup(in.Target)
	if !ok {
		return p.bailoutf(in.BCI, "branch target %d is not a block start", in.Target)
	}
	next := p.in.Stream.NextBCI(in.BCI)
	elseTarget, ok := p.bidx.Lookup(next)
	if !ok {
		return p.bailoutf(in.BCI, "fall-through target %d is not a block start", next)
	}

	endID, err := p.g.NewNode(ir.OpEndIf, ir.KindVoid, id, []ir.NodeID{condID}, p.fb.Snapshot(in.BCI), ir.IfTargets{TrueTarget: thenTarget, FalseTarget: elseTarget})
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.SetEnd(id, endID)
	if err := p.mergeSuccessor(id, thenTarget, in.Target); err != nil {
		return err
	}
	return p.mergeSuccessor(id, elseTarget, next)
}

func ifComparator(op classfile.Opcode) ir.BinaryOp {
	switch op {
	case classfile.OpIfEq:
		return ir.CmpEQ
	case classfile.OpIfNe, classfile.OpIfNonNull:
		return ir.CmpNE
	case classfile.OpIfLt:
		return ir.CmpLT
	case classfile.OpIfLe:
		return ir.CmpLE
	case classfile.OpIfGt:
		return ir.CmpGT
	case classfile.OpIfGe:
		return ir.CmpGE
	case classfile.OpIfNull:
		return ir.CmpEQ
	default:
		return ir.CmpEQ
	}
}

func (p *parser) opGoto(id ir.BlockID, in classfile.Instruction) error {
	target, ok := p.bidx.Lookup(in.Target)
	if !ok {
		return p.bailoutf(in.BCI, "goto target %d is not a block start", in.Target)
	}
	endID, err := p.g.NewNode(ir.OpEndGoto, ir.KindVoid, id, nil, p.fb.Snapshot(in.BCI), target)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.SetEnd(id, endID)
	return p.mergeSuccessor(id, target, in.Target)
}

func (p *parser) opSwitch(id ir.BlockID, in classfile.Instruction) error {
	selector, err := p.fb.Pop(ir.KindInt)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	targets := make([]ir.BlockID, len(in.Targets))
	for i, t := range in.Targets {
		bid, ok := p.bidx.Lookup(t)
		if !ok {
			return p.bailoutf(in.BCI, "switch target %d is not a block start", t)
		}
		targets[i] = bid
	}
	endID, err := p.g.NewNode(ir.OpEndSwitch, ir.KindVoid, id, []ir.NodeID{selector}, p.fb.Snapshot(in.BCI), ir.SwitchTargets{Keys: in.Keys, Low: in.Low, Targets: targets})
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.SetEnd(id, endID)
	for i, bid := range targets {
		bci := in.Targets[i]
		if err := p.mergeSuccessor(id, bid, bci); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) opReturn(id ir.BlockID, in classfile.Instruction) error {
	var inputs []ir.NodeID
	if p.in.ReturnKind != ir.KindVoid {
		v, err := p.fb.Pop(p.in.ReturnKind)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		inputs = []ir.NodeID{v}
	}
	for p.fb.LockDepth() > 0 {
		obj, err := p.fb.Unlock()
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		exitID, err := p.g.NewNode(ir.OpMonitorExit, ir.KindVoid, id, []ir.NodeID{obj}, nil, nil)
		if err != nil {
			return newBailout(KindResource, in.BCI, err)
		}
		p.g.AppendBody(id, exitID)
	}
	endID, err := p.g.NewNode(ir.OpEndReturn, p.in.ReturnKind, id, inputs, p.fb.Snapshot(in.BCI), nil)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.SetEnd(id, endID)
	return nil
}

func (p *parser) opThrow(id ir.BlockID, in classfile.Instruction) error {
	obj, err := p.fb.Pop(ir.KindObject)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}
	endID, err := p.g.NewNode(ir.OpEndThrow, ir.KindVoid, id, []ir.NodeID{obj}, p.fb.Snapshot(in.BCI), nil)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.SetEnd(id, endID)
	return p.wireExceptionEdge(id, in.BCI, endID)
}

// emitDeopt terminates the current block with an OpDeoptimize node: used
// for bytecode shapes this builder deliberately does not lower further
// (the rarer wide-dup forms).
func (p *parser) emitDeopt(id ir.BlockID, bci int, reason string) error {
	endID, err := p.g.NewNode(ir.OpDeoptimize, ir.KindVoid, id, nil, p.fb.Snapshot(bci), reason)
	if err != nil {
		return newBailout(KindResource, bci, err)
	}
	p.g.SetEnd(id, endID)
	return nil
}

// emitDeoptMark appends an in-body OpDeoptimize node recording that bci
// could not resolve a constant-pool reference. This does not terminate
// the block: unlike emitDeopt, resolution failures are expected
// steady-state behavior (spec.md §4.2, §4.5), not an unsupported
// instruction shape. The caller is responsible for whatever typed
// placeholder value the opcode's own stack effect requires.
func (p *parser) emitDeoptMark(id ir.BlockID, bci int, reason string) (ir.NodeID, error) {
	n, err := p.g.NewNode(ir.OpDeoptimize, ir.KindVoid, id, nil, p.fb.Snapshot(bci), reason)
	if err != nil {
		return ir.InvalidNodeID, newBailout(KindResource, bci, err)
	}
	p.g.AppendBody(id, n)
	return n, nil
}

// emitDeoptNoErr is emitDeoptMark for an opcode whose unresolved path
// pushes a single KindObject placeholder (a resolution failure for an
// LDC-class constant, a `new`/array-allocation type, or a checkcast
// target's identity forward).
func (p *parser) emitDeoptNoErr(id ir.BlockID, bci int, reason string) error {
	if _, err := p.emitDeoptMark(id, bci, reason); err != nil {
		return err
	}
	null, err := p.newConstant(id, ir.KindObject, nil)
	if err != nil {
		return newBailout(KindResource, bci, err)
	}
	return wrapVerifier(bci, p.fb.Push(ir.KindObject, null))
}

// emitDeoptDefault is emitDeoptMark for an opcode whose unresolved path
// pushes a zero value of a caller-chosen kind (an unresolved field's
// GET, or a getfield/getstatic read).
func (p *parser) emitDeoptDefault(id ir.BlockID, bci int, kind ir.Kind, reason string) error {
	if _, err := p.emitDeoptMark(id, bci, reason); err != nil {
		return err
	}
	zero, err := p.newConstant(id, kind, zeroValue(kind))
	if err != nil {
		return newBailout(KindResource, bci, err)
	}
	return wrapVerifier(bci, p.fb.Push(kind, zero))
}

func zeroValue(kind ir.Kind) any {
	switch kind {
	case ir.KindInt:
		return int32(0)
	case ir.KindLong:
		return int64(0)
	case ir.KindFloat:
		return float32(0)
	case ir.KindDouble:
		return float64(0)
	default:
		return nil
	}
}
