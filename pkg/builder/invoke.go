package builder

import (
	"github.com/kristofer/graphbuilder/pkg/classfile"
	"github.com/kristofer/graphbuilder/pkg/ir"
)

// opInvoke lowers one of the four invocation opcodes, applying the
// devirtualization protocol of spec.md §4.5 before emitting the call.
func (p *parser) opInvoke(id ir.BlockID, in classfile.Instruction) error {
	info, ok := p.in.Resolver.LookupMethod(in.Index)
	if !ok {
		return p.bailoutf(in.BCI, "invoke references a non-existent constant-pool entry %d", in.Index)
	}

	if !info.Resolved {
		if _, err := p.fb.PopArguments(info.ParamKinds); err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
		if in.Op != classfile.OpInvokeStatic {
			if _, err := p.fb.Pop(ir.KindObject); err != nil {
				return newBailout(KindVerifier, in.BCI, err)
			}
		}
		if info.ReturnKind == ir.KindVoid {
			_, err := p.emitDeoptMark(id, in.BCI, "unresolved method reference")
			return err
		}
		return p.emitDeoptDefault(id, in.BCI, info.ReturnKind, "unresolved method reference")
	}

	args, err := p.fb.PopArguments(info.ParamKinds)
	if err != nil {
		return newBailout(KindVerifier, in.BCI, err)
	}

	var receiver ir.NodeID
	hasReceiver := in.Op != classfile.OpInvokeStatic
	if hasReceiver {
		receiver, err = p.fb.Pop(ir.KindObject)
		if err != nil {
			return newBailout(KindVerifier, in.BCI, err)
		}
	}

	resolvedInfo := p.devirtualize(in.Op, info)

	if resolvedInfo.Kind == ir.InvokeStatic && p.opts.ResolveClassBeforeStaticInvoke && p.in.Runtime != nil {
		if _, ok := p.in.Runtime.TypeOf(ir.TypeRef{Resolved: true, Name: resolvedInfo.DeclaringType}); !ok {
			if _, err := p.emitDeoptMark(id, in.BCI, "static callee's class is not yet initialized"); err != nil {
				return err
			}
		}
	}

	var inputs []ir.NodeID
	if hasReceiver {
		inputs = append(inputs, receiver)
	}
	inputs = append(inputs, args...)

	n, err := p.g.NewNode(ir.OpInvoke, resolvedInfo.ReturnKind, id, inputs, nil, resolvedInfo)
	if err != nil {
		return newBailout(KindResource, in.BCI, err)
	}
	p.g.AppendBody(id, n)
	if err := p.wireExceptionEdge(id, in.BCI, n); err != nil {
		return err
	}
	if resolvedInfo.ReturnKind == ir.KindVoid {
		return nil
	}
	return wrapVerifier(in.BCI, p.fb.Push(resolvedInfo.ReturnKind, n))
}

// devirtualize implements spec.md §4.5's three-step binding decision.
// invokespecial and invokestatic are always direct; invokevirtual and
// invokeinterface attempt static binding, then exact-receiver-type
// binding, falling back to an indirect call of the original dispatch
// kind.
func (p *parser) devirtualize(op classfile.Opcode, info ir.InvokeInfo) ir.InvokeInfo {
	switch op {
	case classfile.OpInvokeStatic, classfile.OpInvokeSpecial:
		info.Direct = true
		return info

	case classfile.OpInvokeVirtual, classfile.OpInvokeInterface:
		if info.Final {
			info.Direct = true
			return info
		}
		if p.in.Runtime != nil && info.ExactReceiver.Resolved {
			if exact, ok := p.in.Runtime.TypeOf(info.ExactReceiver); ok {
				if exact.Final || exact.ExactSubclassCount == 1 {
					info.Direct = true
					info.DeclaringType = info.ExactReceiver.Name
					return info
				}
			}
		}
		info.Direct = false
		return info

	default:
		return info
	}
}
