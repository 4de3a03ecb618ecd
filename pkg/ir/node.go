package ir

// NodeID is a dense, monotonically assigned handle to a Node owned by a
// Graph arena. Every edge stores a NodeID; a *Node obtained from
// Graph.Node is for reading or updating that node in place.
type NodeID int32

// InvalidNodeID marks the absence of a node reference (e.g. an unset
// "end" pointer on a freshly created Block).
const InvalidNodeID NodeID = -1

// BlockID is a dense, monotonically assigned handle to a Block owned by a
// Graph arena.
type BlockID int32

// InvalidBlockID marks the absence of a block reference.
const InvalidBlockID BlockID = -1

// Op is the discriminator of the IR node's tagged-variant hierarchy. It
// replaces the deep inheritance hierarchy of a source-language IR with a
// single sum type: shared header fields (ID, Op, ValueKind, Inputs, Block,
// State) plus an Aux payload whose meaning is determined by Op.
type Op uint8

const (
	// OpConstant carries a compile-time constant in Aux: int32 (int),
	// int64 (long), float32 (float), float64 (double), bool (a folded
	// comparison), nil (null), a string, a resolver-supplied value for
	// a constant-pool load, or a class literal (the monitor of a static
	// synchronized method).
	OpConstant Op = iota

	// OpParameter is a method-entry value: one of the incoming argument
	// slots, materialized into the start block's initial frame state.
	OpParameter

	// OpArithmetic, OpLogic, OpShift, OpCompare, OpConvert, OpNegate all
	// carry a BinaryOp or UnaryOp symbol (see fold.go) in Aux and read
	// Inputs[0] (and Inputs[1] for binary ops).
	OpArithmetic
	OpLogic
	OpShift
	OpCompare
	OpConvert
	OpNegate

	// OpLoadField / OpStoreField carry a FieldRef in Aux. Inputs[0] is
	// the object reference (absent for static fields); OpStoreField's
	// last input is the stored value.
	OpLoadField
	OpStoreField

	// OpArrayLength reads Inputs[0] (the array reference).
	OpArrayLength

	// OpLoadIndexed / OpStoreIndexed read Inputs[0] (array), Inputs[1]
	// (index), and, for store, Inputs[2] (value). ValueKind is the
	// element kind.
	OpLoadIndexed
	OpStoreIndexed

	// OpNewInstance carries a TypeRef. OpNewTypeArray / OpNewObjectArray
	// read Inputs[0] (length) and carry an element Kind/TypeRef.
	// OpNewMultiArray reads one length input per dimension.
	OpNewInstance
	OpNewTypeArray
	OpNewObjectArray
	OpNewMultiArray

	// OpMonitorEnter / OpMonitorExit read Inputs[0] (the locked object).
	OpMonitorEnter
	OpMonitorExit

	// OpInvoke carries an InvokeInfo in Aux. Inputs are the receiver
	// (absent for static) followed by the argument values in
	// declaration order.
	OpInvoke

	// OpFinalizerRegistration reads Inputs[0] (the new object) and is
	// emitted right after every resolved OpNewInstance, except when
	// UseAssumptions is on and the runtime descriptor reports that the
	// type has no finalizer. It is not tied to constructor returns.
	OpFinalizerRegistration

	// OpExceptionObject materializes the thrown object. It is appended
	// to the throwing node's own block, right after that node.
	OpExceptionObject

	// OpTypeCheck reads Inputs[0] (an object reference) and carries a
	// TypeRef in Aux; ValueKind is always KindInt, holding a boolean
	// match result. Backs both the checkcast/instanceof bytecodes and
	// the exception-dispatch builder's per-handler catch-type tests —
	// the two are the same primitive operation.
	OpTypeCheck

	// OpPhi carries one input per predecessor of its owning Block, in
	// the same order as Block.Preds. Aux holds an *PhiMeta with the
	// IsLoopPhi flag.
	OpPhi

	// OpDeoptimize marks a point the builder could not resolve
	// statically; Aux carries a human-readable reason. Execution (at
	// runtime, by a later stage) reverts to the interpreter from the
	// attached State.
	OpDeoptimize

	// --- end-of-block variants: every Block.End refers to exactly one
	// of these, matching spec.md's "one discriminator per terminator
	// kind" design. ---

	OpEndGoto
	OpEndIf
	OpEndSwitch
	OpEndReturn
	OpEndThrow
	OpEndUnwind
	OpEndExceptionDispatch
)

func (o Op) String() string {
	switch o {
	case OpConstant:
		return "Constant"
	case OpParameter:
		return "Parameter"
	case OpArithmetic:
		return "Arithmetic"
	case OpLogic:
		return "Logic"
	case OpShift:
		return "Shift"
	case OpCompare:
		return "Compare"
	case OpConvert:
		return "Convert"
	case OpNegate:
		return "Negate"
	case OpLoadField:
		return "LoadField"
	case OpStoreField:
		return "StoreField"
	case OpArrayLength:
		return "ArrayLength"
	case OpLoadIndexed:
		return "LoadIndexed"
	case OpStoreIndexed:
		return "StoreIndexed"
	case OpNewInstance:
		return "NewInstance"
	case OpNewTypeArray:
		return "NewTypeArray"
	case OpNewObjectArray:
		return "NewObjectArray"
	case OpNewMultiArray:
		return "NewMultiArray"
	case OpMonitorEnter:
		return "MonitorEnter"
	case OpMonitorExit:
		return "MonitorExit"
	case OpInvoke:
		return "Invoke"
	case OpFinalizerRegistration:
		return "FinalizerRegistration"
	case OpExceptionObject:
		return "ExceptionObject"
	case OpTypeCheck:
		return "TypeCheck"
	case OpPhi:
		return "Phi"
	case OpDeoptimize:
		return "Deoptimize"
	case OpEndGoto:
		return "EndGoto"
	case OpEndIf:
		return "EndIf"
	case OpEndSwitch:
		return "EndSwitch"
	case OpEndReturn:
		return "EndReturn"
	case OpEndThrow:
		return "EndThrow"
	case OpEndUnwind:
		return "EndUnwind"
	case OpEndExceptionDispatch:
		return "EndExceptionDispatch"
	default:
		return "Unknown"
	}
}

// IsBlockEnd reports whether this Op terminates a block.
func (o Op) IsBlockEnd() bool {
	return o >= OpEndGoto && o <= OpEndExceptionDispatch
}

// PhiMeta is the Aux payload of an OpPhi node.
type PhiMeta struct {
	IsLoopPhi bool
}

// Node is the single tagged-variant type standing in for the source IR's
// deep class hierarchy. Every instruction the builder emits — arithmetic,
// loads, calls, branches, phis, block terminators — is a Node; Op
// determines which fields of Aux are meaningful.
type Node struct {
	ID        NodeID
	Op        Op
	ValueKind Kind
	Inputs    []NodeID
	Block     BlockID // owning block (InvalidBlockID for nodes not yet attached, which does not occur post-emission)
	State     *FrameState
	Aux       any
}

// TypeRef identifies a type looked up through the constant-pool resolver.
// Resolved is false when the lookup could not complete without triggering
// class loading. In the opcode dispatcher such references route through
// OpDeoptimize instead of a real type-test or allocation node; an
// unresolved exception-handler catch type is still tested with an
// OpTypeCheck by pkg/dispatch.
type TypeRef struct {
	Resolved bool
	Name     string
}

// FieldRef identifies a field looked up through the constant-pool
// resolver.
type FieldRef struct {
	Resolved     bool
	Static       bool
	DeclaringType string
	Name         string
	Kind         Kind
	ConstantValue any // non-nil only for a resolved static final field
}

// InvokeInfo carries an invocation's dispatch kind, target, and binding
// decision (see §4.5's devirtualization protocol).
type InvokeInfo struct {
	Kind         InvokeKind
	Resolved     bool
	DeclaringType string
	Selector     string

	// ParamKinds and ReturnKind come from the call site's descriptor,
	// which (unlike the target method's declaring class) is always
	// parseable from the constant pool without triggering class
	// loading — they are populated even when Resolved is false.
	ParamKinds []Kind
	ReturnKind Kind

	// Final and ExactReceiver back the devirtualization protocol
	// (spec.md §4.5): Final means the target is statically bindable
	// (final, private, or a constructor) independent of receiver type;
	// ExactReceiver, when Resolved, lets the dispatcher re-resolve the
	// call against a single concrete type instead of the declared one.
	Final         bool
	ExactReceiver TypeRef

	// Direct is true when the dispatcher statically bound the call
	// (final/private/constructor, or devirtualized via an exact
	// receiver type). Direct calls carry no runtime dispatch overhead
	// in the eventual lowering; indirect calls retain Kind's original
	// dispatch mechanism.
	Direct bool
}

// InvokeKind mirrors the bytecode's four invocation opcodes.
type InvokeKind uint8

const (
	InvokeStatic InvokeKind = iota
	InvokeSpecial
	InvokeVirtual
	InvokeInterface
)

func (k InvokeKind) String() string {
	switch k {
	case InvokeStatic:
		return "static"
	case InvokeSpecial:
		return "special"
	case InvokeVirtual:
		return "virtual"
	case InvokeInterface:
		return "interface"
	default:
		return "unknown"
	}
}
