// Package resolver defines the constant-pool resolution contract the
// graph builder depends on, plus an in-memory reference implementation
// useful for tests and for the cmd/graphbuild dump tooling. A production
// host compiler supplies its own ConstantPoolResolver backed by its real
// class metadata; the builder only ever sees the interface.
package resolver

import "github.com/kristofer/graphbuilder/pkg/ir"

// ConstantPoolResolver looks up symbolic constant-pool entries, possibly
// failing to resolve without triggering class loading — spec.md §4.5's
// "resolve without side effects" contract. An entry that exists but is
// not resolved (Resolved == false) is not an error: the builder emits an
// OpDeoptimize instead of a direct node. A missing entry (ok == false)
// makes the builder bail out, except for LookupConstant, where it too
// leads to an OpDeoptimize.
type ConstantPoolResolver interface {
	LookupType(index int) (ir.TypeRef, bool)
	LookupField(index int) (ir.FieldRef, bool)
	LookupMethod(index int) (ir.InvokeInfo, bool)
	LookupConstant(index int) (kind ir.Kind, value any, ok bool)
}

// Pool is a simple in-memory ConstantPoolResolver: each lookup table is a
// plain map from constant-pool index to the resolved record. It exists so
// tests and cmd/graphbuild can exercise the builder without a real class
// loader.
type Pool struct {
	Types     map[int]ir.TypeRef
	Fields    map[int]ir.FieldRef
	Methods   map[int]ir.InvokeInfo
	Constants map[int]constantEntry
}

type constantEntry struct {
	Kind  ir.Kind
	Value any
}

// NewPool returns an empty Pool with its lookup tables initialized.
func NewPool() *Pool {
	return &Pool{
		Types:     make(map[int]ir.TypeRef),
		Fields:    make(map[int]ir.FieldRef),
		Methods:   make(map[int]ir.InvokeInfo),
		Constants: make(map[int]constantEntry),
	}
}

// PutType, PutField, PutMethod, and PutConstant populate the pool;
// callers (tests, cmd/graphbuild) build up a Pool by index before handing
// it to the builder.
func (p *Pool) PutType(index int, ref ir.TypeRef) { p.Types[index] = ref }
func (p *Pool) PutField(index int, ref ir.FieldRef) { p.Fields[index] = ref }
func (p *Pool) PutMethod(index int, info ir.InvokeInfo) { p.Methods[index] = info }
func (p *Pool) PutConstant(index int, kind ir.Kind, value any) {
	p.Constants[index] = constantEntry{Kind: kind, Value: value}
}

func (p *Pool) LookupType(index int) (ir.TypeRef, bool) {
	ref, ok := p.Types[index]
	return ref, ok
}

func (p *Pool) LookupField(index int) (ir.FieldRef, bool) {
	ref, ok := p.Fields[index]
	return ref, ok
}

func (p *Pool) LookupMethod(index int) (ir.InvokeInfo, bool) {
	info, ok := p.Methods[index]
	return info, ok
}

func (p *Pool) LookupConstant(index int) (ir.Kind, any, bool) {
	e, ok := p.Constants[index]
	if !ok {
		return ir.KindVoid, nil, false
	}
	return e.Kind, e.Value, true
}
