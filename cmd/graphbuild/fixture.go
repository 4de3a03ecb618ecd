package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/kristofer/graphbuilder/pkg/builder"
	"github.com/kristofer/graphbuilder/pkg/classfile"
	"github.com/kristofer/graphbuilder/pkg/ir"
	"github.com/kristofer/graphbuilder/pkg/resolver"
	"github.com/pkg/errors"
)

// fixture is the on-disk shape of a method compile's input: the decoded
// instruction stream, its exception table, its frame-size limits, and a
// resolver pool good enough to stand in for a real class loader. There is
// no raw .class-file reader in this module — decoding a real constant
// pool and bytecode array into classfile.Instruction is the host
// compiler's job (pkg/classfile.NewStream already takes the decoded
// shape) — so this JSON format plays the role kristofer-smog's .sg
// format plays for its own VM: a stand-in input a human can write by
// hand and the CLI can load without a full front end attached.
type fixture struct {
	MaxLocals      int      `json:"max_locals"`
	MaxStack       int      `json:"max_stack"`
	MaxLocks       int      `json:"max_locks"`
	IsStatic       bool     `json:"is_static"`
	IsSynchronized bool     `json:"is_synchronized"`
	ParamKinds     []string `json:"param_kinds"`
	ReturnKind     string   `json:"return_kind"`
	DeclaringType  typeRefJSON `json:"declaring_type"`

	CodeLength   int                `json:"code_length"`
	Instructions []instructionJSON  `json:"instructions"`
	Handlers     []handlerJSON      `json:"handlers"`
	Resolver     resolverJSON       `json:"resolver"`

	UseAssumptions                 bool `json:"use_assumptions"`
	ResolveClassBeforeStaticInvoke bool `json:"resolve_class_before_static_invoke"`
	MaxNodeCount                   int  `json:"max_node_count"`
}

type typeRefJSON struct {
	Resolved bool   `json:"resolved"`
	Name     string `json:"name"`
}

func (t typeRefJSON) toIR() ir.TypeRef { return ir.TypeRef{Resolved: t.Resolved, Name: t.Name} }

type fieldRefJSON struct {
	Resolved      bool   `json:"resolved"`
	Static        bool   `json:"static"`
	DeclaringType string `json:"declaring_type"`
	Name          string `json:"name"`
	Kind          string `json:"kind"`
	ConstantValue any    `json:"constant_value,omitempty"`
}

func (f fieldRefJSON) toIR() (ir.FieldRef, error) {
	k, err := parseKind(f.Kind)
	if err != nil {
		return ir.FieldRef{}, err
	}
	cv, err := coerceValue(k, f.ConstantValue)
	if err != nil {
		return ir.FieldRef{}, err
	}
	return ir.FieldRef{
		Resolved: f.Resolved, Static: f.Static,
		DeclaringType: f.DeclaringType, Name: f.Name,
		Kind: k, ConstantValue: cv,
	}, nil
}

type invokeInfoJSON struct {
	Kind          string      `json:"kind"`
	Resolved      bool        `json:"resolved"`
	DeclaringType string      `json:"declaring_type"`
	Selector      string      `json:"selector"`
	ParamKinds    []string    `json:"param_kinds"`
	ReturnKind    string      `json:"return_kind"`
	Final         bool        `json:"final"`
	ExactReceiver typeRefJSON `json:"exact_receiver"`
}

func (i invokeInfoJSON) toIR() (ir.InvokeInfo, error) {
	kind, err := parseInvokeKind(i.Kind)
	if err != nil {
		return ir.InvokeInfo{}, err
	}
	ret, err := parseKind(i.ReturnKind)
	if err != nil {
		return ir.InvokeInfo{}, err
	}
	params, err := parseKinds(i.ParamKinds)
	if err != nil {
		return ir.InvokeInfo{}, err
	}
	return ir.InvokeInfo{
		Kind: kind, Resolved: i.Resolved,
		DeclaringType: i.DeclaringType, Selector: i.Selector,
		ParamKinds: params, ReturnKind: ret,
		Final: i.Final, ExactReceiver: i.ExactReceiver.toIR(),
	}, nil
}

type constantJSON struct {
	Kind  string `json:"kind"`
	Value any    `json:"value"`
}

type resolverJSON struct {
	Types     map[string]typeRefJSON    `json:"types"`
	Fields    map[string]fieldRefJSON   `json:"fields"`
	Methods   map[string]invokeInfoJSON `json:"methods"`
	Constants map[string]constantJSON   `json:"constants"`
}

func (r resolverJSON) toPool() (*resolver.Pool, error) {
	pool := resolver.NewPool()
	for key, v := range r.Types {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.types key %q", key)
		}
		pool.PutType(idx, v.toIR())
	}
	for key, v := range r.Fields {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.fields key %q", key)
		}
		ref, err := v.toIR()
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.fields[%s]", key)
		}
		pool.PutField(idx, ref)
	}
	for key, v := range r.Methods {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.methods key %q", key)
		}
		info, err := v.toIR()
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.methods[%s]", key)
		}
		pool.PutMethod(idx, info)
	}
	for key, v := range r.Constants {
		idx, err := strconv.Atoi(key)
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.constants key %q", key)
		}
		k, err := parseKind(v.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.constants[%s]", key)
		}
		cv, err := coerceValue(k, v.Value)
		if err != nil {
			return nil, errors.Wrapf(err, "resolver.constants[%s]", key)
		}
		pool.PutConstant(idx, k, cv)
	}
	return pool, nil
}

type instructionJSON struct {
	BCI     int      `json:"bci"`
	Op      string   `json:"op"`
	Target  int      `json:"target,omitempty"`
	Index   int      `json:"index,omitempty"`
	Kind    string   `json:"kind,omitempty"`
	IVal    int64    `json:"ival,omitempty"`
	FVal    float64  `json:"fval,omitempty"`
	SVal    string   `json:"sval,omitempty"`
	Targets []int    `json:"targets,omitempty"`
	Keys    []int32  `json:"keys,omitempty"`
	Low     int32    `json:"low,omitempty"`
	High    int32    `json:"high,omitempty"`

	// BinOp and ToKind are convenience aliases for Index, spelled out for
	// opcodes whose operand is really an enum (arithmetic's BinaryOp,
	// convert's destination Kind) rather than an arbitrary integer. A
	// fixture may use either form; BinOp/ToKind win if both are present.
	BinOp  string `json:"bin_op,omitempty"`
	ToKind string `json:"to_kind,omitempty"`
}

func (ij instructionJSON) toInstruction() (classfile.Instruction, error) {
	op, err := parseOpcode(ij.Op)
	if err != nil {
		return classfile.Instruction{}, err
	}
	in := classfile.Instruction{
		BCI: ij.BCI, Op: op, Target: ij.Target, Index: ij.Index,
		IVal: ij.IVal, FVal: ij.FVal, SVal: ij.SVal,
		Targets: ij.Targets, Keys: ij.Keys, Low: ij.Low, High: ij.High,
	}
	if ij.Kind != "" {
		k, err := parseKind(ij.Kind)
		if err != nil {
			return classfile.Instruction{}, err
		}
		in.Kind = k
	}
	if ij.BinOp != "" {
		bop, err := parseBinaryOp(ij.BinOp)
		if err != nil {
			return classfile.Instruction{}, err
		}
		in.Index = int(bop)
	}
	if ij.ToKind != "" {
		k, err := parseKind(ij.ToKind)
		if err != nil {
			return classfile.Instruction{}, err
		}
		in.Index = int(k)
	}
	return in, nil
}

type handlerJSON struct {
	StartBCI   int         `json:"start_bci"`
	EndBCI     int         `json:"end_bci"`
	HandlerBCI int         `json:"handler_bci"`
	CatchType  typeRefJSON `json:"catch_type"`
}

// load reads a fixture file and builds the MethodInput, Options base, and
// resolver pool Build needs. The returned Options has only the fields
// this fixture format carries set; callers merge in CLI-flag overrides.
func load(path string) (builder.MethodInput, builder.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return builder.MethodInput{}, builder.Options{}, errors.Wrap(err, "reading fixture")
	}
	var f fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return builder.MethodInput{}, builder.Options{}, errors.Wrap(err, "parsing fixture JSON")
	}

	instructions := make([]classfile.Instruction, len(f.Instructions))
	for i, ij := range f.Instructions {
		in, err := ij.toInstruction()
		if err != nil {
			return builder.MethodInput{}, builder.Options{}, errors.Wrapf(err, "instruction %d", i)
		}
		instructions[i] = in
	}
	stream := classfile.NewStream(instructions, f.CodeLength)

	handlers := make([]builder.HandlerSpec, len(f.Handlers))
	for i, h := range f.Handlers {
		handlers[i] = builder.HandlerSpec{
			StartBCI: h.StartBCI, EndBCI: h.EndBCI, HandlerBCI: h.HandlerBCI,
			CatchType: h.CatchType.toIR(),
		}
	}

	paramKinds, err := parseKinds(f.ParamKinds)
	if err != nil {
		return builder.MethodInput{}, builder.Options{}, errors.Wrap(err, "param_kinds")
	}
	returnKind, err := parseKind(f.ReturnKind)
	if err != nil {
		return builder.MethodInput{}, builder.Options{}, errors.Wrap(err, "return_kind")
	}

	pool, err := f.Resolver.toPool()
	if err != nil {
		return builder.MethodInput{}, builder.Options{}, errors.Wrap(err, "resolver")
	}

	in := builder.MethodInput{
		Stream:         stream,
		Handlers:       handlers,
		MaxLocals:      f.MaxLocals,
		MaxStack:       f.MaxStack,
		MaxLocks:       f.MaxLocks,
		IsStatic:       f.IsStatic,
		IsSynchronized: f.IsSynchronized,
		ParamKinds:     paramKinds,
		ReturnKind:     returnKind,
		DeclaringType:  f.DeclaringType.toIR(),
		Resolver:       pool,
	}
	opts := builder.Options{
		UseAssumptions:                 f.UseAssumptions,
		ResolveClassBeforeStaticInvoke: f.ResolveClassBeforeStaticInvoke,
		MaxNodeCount:                   f.MaxNodeCount,
	}
	return in, opts, nil
}

func coerceValue(kind ir.Kind, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch kind {
	case ir.KindInt:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number for int constant, got %T", v)
		}
		return int32(f), nil
	case ir.KindLong:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number for long constant, got %T", v)
		}
		return int64(f), nil
	case ir.KindFloat:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number for float constant, got %T", v)
		}
		return float32(f), nil
	case ir.KindDouble:
		f, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("expected a number for double constant, got %T", v)
		}
		return f, nil
	case ir.KindObject:
		return v, nil
	default:
		return v, nil
	}
}

func parseKinds(names []string) ([]ir.Kind, error) {
	out := make([]ir.Kind, len(names))
	for i, n := range names {
		k, err := parseKind(n)
		if err != nil {
			return nil, err
		}
		out[i] = k
	}
	return out, nil
}

func parseKind(name string) (ir.Kind, error) {
	switch name {
	case "", "void":
		return ir.KindVoid, nil
	case "int":
		return ir.KindInt, nil
	case "long":
		return ir.KindLong, nil
	case "float":
		return ir.KindFloat, nil
	case "double":
		return ir.KindDouble, nil
	case "object":
		return ir.KindObject, nil
	default:
		return ir.KindVoid, fmt.Errorf("unknown kind %q", name)
	}
}

func parseInvokeKind(name string) (ir.InvokeKind, error) {
	switch name {
	case "static":
		return ir.InvokeStatic, nil
	case "special":
		return ir.InvokeSpecial, nil
	case "virtual":
		return ir.InvokeVirtual, nil
	case "interface":
		return ir.InvokeInterface, nil
	default:
		return 0, fmt.Errorf("unknown invoke kind %q", name)
	}
}

func parseBinaryOp(name string) (ir.BinaryOp, error) {
	switch name {
	case "add":
		return ir.BinAdd, nil
	case "sub":
		return ir.BinSub, nil
	case "mul":
		return ir.BinMul, nil
	case "div":
		return ir.BinDiv, nil
	case "rem":
		return ir.BinRem, nil
	case "and":
		return ir.BinAnd, nil
	case "or":
		return ir.BinOr, nil
	case "xor":
		return ir.BinXor, nil
	case "shl":
		return ir.BinShl, nil
	case "shr":
		return ir.BinShr, nil
	case "ushr":
		return ir.BinUshr, nil
	case "lt":
		return ir.CmpLT, nil
	case "le":
		return ir.CmpLE, nil
	case "gt":
		return ir.CmpGT, nil
	case "ge":
		return ir.CmpGE, nil
	case "eq":
		return ir.CmpEQ, nil
	case "ne":
		return ir.CmpNE, nil
	default:
		return 0, fmt.Errorf("unknown bin_op %q", name)
	}
}

// parseOpcode reverses classfile.Opcode.String(); the fixture format
// spells opcodes the same way the builder's own debug traces do.
func parseOpcode(name string) (classfile.Opcode, error) {
	for op := classfile.OpNop; op <= classfile.OpBreakpoint; op++ {
		if op.String() == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown opcode %q", name)
}
