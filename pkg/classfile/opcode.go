// Package classfile models the bytecode stream the graph builder consumes:
// a canonical opcode set and a random-access reader over one method's
// instruction bytes. It plays the role kristofer-smog/pkg/bytecode plays
// for the Smalltalk VM — an opcode table plus an encode/decode format —
// adapted to a stack machine with a symbolic constant pool and a
// JVM-bytecode-shaped instruction set instead of Smalltalk sends.
package classfile

// Opcode identifies one bytecode instruction. Short immediate-operand
// forms that the real bytecode format packs as distinct opcodes for
// density (ICONST_0..5, ILOAD_0..3, ALOAD_0..3, and so on) are
// represented as a single Opcode plus a decoded operand in Instruction —
// the graph builder only ever sees LoadConstant/LoadLocal with an
// operand, never the packed immediate form. This keeps the dispatcher's
// switch one case per semantic group instead of one per encoding, at the
// cost of not modeling every historical opcode alias; noted as a
// deliberate simplification.
type Opcode uint8

const (
	OpNop Opcode = iota

	// Constants and local I/O.
	OpLoadConstant // push a constant-pool or immediate value
	OpLoadLocal    // load_local(index) -> push
	OpStoreLocal   // pop -> store_local(index)
	OpIncLocal     // local[index] += immediate, no stack effect

	// Stack manipulation (frame.Builder's xpush/xpop consumers).
	OpPop
	OpPop2
	OpDup
	OpDupX1
	OpDupX2
	OpDup2
	OpDup2X1
	OpDup2X2
	OpSwap

	// Arithmetic, logic, shift, compare, convert, negate.
	OpArithmetic
	OpLogic
	OpShift
	OpCompare
	OpConvert
	OpNegate

	// Array I/O.
	OpArrayLength
	OpLoadIndexed
	OpStoreIndexed

	// Allocation.
	OpNew
	OpNewTypeArray
	OpNewObjectArray
	OpNewMultiArray

	// Field access.
	OpGetField
	OpPutField
	OpGetStatic
	OpPutStatic

	// Type checks.
	OpCheckCast
	OpInstanceOf

	// Synchronization.
	OpMonitorEnter
	OpMonitorExit

	// Invocations.
	OpInvokeStatic
	OpInvokeSpecial
	OpInvokeVirtual
	OpInvokeInterface

	// Branches.
	OpIfEq
	OpIfNe
	OpIfLt
	OpIfLe
	OpIfGt
	OpIfGe
	OpIfNull
	OpIfNonNull
	OpIfCmp // two-operand compare-and-branch; the specific comparator rides in the decoded operand

	OpGoto

	// JSR/RET: legacy subroutine instructions. The builder rejects them
	// with a verifier bailout; subroutine bodies are never inlined.
	OpJsr
	OpRet

	OpTableSwitch
	OpLookupSwitch

	// Return and throw.
	OpReturn
	OpThrow

	OpBreakpoint
)

func (o Opcode) String() string {
	switch o {
	case OpNop:
		return "nop"
	case OpLoadConstant:
		return "load_constant"
	case OpLoadLocal:
		return "load_local"
	case OpStoreLocal:
		return "store_local"
	case OpIncLocal:
		return "inc_local"
	case OpPop:
		return "pop"
	case OpPop2:
		return "pop2"
	case OpDup:
		return "dup"
	case OpDupX1:
		return "dup_x1"
	case OpDupX2:
		return "dup_x2"
	case OpDup2:
		return "dup2"
	case OpDup2X1:
		return "dup2_x1"
	case OpDup2X2:
		return "dup2_x2"
	case OpSwap:
		return "swap"
	case OpArithmetic:
		return "arithmetic"
	case OpLogic:
		return "logic"
	case OpShift:
		return "shift"
	case OpCompare:
		return "compare"
	case OpConvert:
		return "convert"
	case OpNegate:
		return "negate"
	case OpArrayLength:
		return "array_length"
	case OpLoadIndexed:
		return "load_indexed"
	case OpStoreIndexed:
		return "store_indexed"
	case OpNew:
		return "new"
	case OpNewTypeArray:
		return "new_type_array"
	case OpNewObjectArray:
		return "new_object_array"
	case OpNewMultiArray:
		return "new_multi_array"
	case OpGetField:
		return "get_field"
	case OpPutField:
		return "put_field"
	case OpGetStatic:
		return "get_static"
	case OpPutStatic:
		return "put_static"
	case OpCheckCast:
		return "check_cast"
	case OpInstanceOf:
		return "instance_of"
	case OpMonitorEnter:
		return "monitor_enter"
	case OpMonitorExit:
		return "monitor_exit"
	case OpInvokeStatic:
		return "invoke_static"
	case OpInvokeSpecial:
		return "invoke_special"
	case OpInvokeVirtual:
		return "invoke_virtual"
	case OpInvokeInterface:
		return "invoke_interface"
	case OpIfEq:
		return "if_eq"
	case OpIfNe:
		return "if_ne"
	case OpIfLt:
		return "if_lt"
	case OpIfLe:
		return "if_le"
	case OpIfGt:
		return "if_gt"
	case OpIfGe:
		return "if_ge"
	case OpIfNull:
		return "if_null"
	case OpIfNonNull:
		return "if_non_null"
	case OpIfCmp:
		return "if_cmp"
	case OpGoto:
		return "goto"
	case OpJsr:
		return "jsr"
	case OpRet:
		return "ret"
	case OpTableSwitch:
		return "table_switch"
	case OpLookupSwitch:
		return "lookup_switch"
	case OpReturn:
		return "return"
	case OpThrow:
		return "throw"
	case OpBreakpoint:
		return "breakpoint"
	default:
		return "unknown"
	}
}

// IsBranch reports whether op is a conditional branch taking exactly one
// absolute branch target (Instruction.Target).
func (o Opcode) IsBranch() bool {
	switch o {
	case OpIfEq, OpIfNe, OpIfLt, OpIfLe, OpIfGt, OpIfGe, OpIfNull, OpIfNonNull, OpIfCmp:
		return true
	default:
		return false
	}
}
