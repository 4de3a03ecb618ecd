// Package runtimedesc defines the small set of runtime facts the graph
// builder needs from the host but has no business computing itself: lock
// record layout, per-type metadata, and the finalizer-registration
// assumption check spec.md §4.5 and §4.6 describe. Like pkg/resolver,
// this is an interface the host compiler implements for real; Defaults is
// a reference implementation for tests.
package runtimedesc

import "github.com/kristofer/graphbuilder/pkg/ir"

// RuntimeDescriptor answers host-specific questions the builder defers
// rather than hardcodes, so the same builder logic works across hosts
// with different object layouts.
type RuntimeDescriptor interface {
	// SizeOfBasicLockRecord returns the number of stack-slot words a
	// synthesized monitor's lock record occupies. The builder does not
	// call it; OpMonitorEnter nodes carry no lock-record size.
	SizeOfBasicLockRecord() int

	// TypeOf resolves a TypeRef's static metadata handle, used by
	// devirtualization to check whether a type has exactly one live
	// subclass or is declared final.
	TypeOf(ref ir.TypeRef) (TypeInfo, bool)

	// RegisterNoFinalizableSubclassAssumption records that the graph
	// being built depends on ref never gaining a finalizing subclass.
	// The builder calls this immediately before eliding an
	// OpFinalizerRegistration node on that assumption; a host without
	// true dependency invalidation may implement this as a no-op, at
	// the cost of having to discard the graph if the assumption is
	// later falsified.
	RegisterNoFinalizableSubclassAssumption(ref ir.TypeRef)
}

// TypeInfo is the minimal per-type metadata the builder consults.
type TypeInfo struct {
	Final               bool
	HasFinalizer        bool
	ExactSubclassCount  int // 0 means "unknown/polymorphic", used conservatively
	UniqueSubclass      ir.TypeRef
}

// Defaults is a conservative, in-memory RuntimeDescriptor: every type
// not explicitly registered as Final is treated as polymorphic, and
// finalizer assumptions are tracked but never invalidated (suitable for
// a single one-shot compile, as in tests and cmd/graphbuild).
type Defaults struct {
	LockRecordWords int
	types           map[string]TypeInfo
	assumptions     []ir.TypeRef
}

// NewDefaults returns a Defaults with a two-word lock record, the
// layout most stack-locking schemes use (object pointer + displaced
// header).
func NewDefaults() *Defaults {
	return &Defaults{LockRecordWords: 2, types: make(map[string]TypeInfo)}
}

func (d *Defaults) SizeOfBasicLockRecord() int { return d.LockRecordWords }

func (d *Defaults) Register(name string, info TypeInfo) {
	d.types[name] = info
}

func (d *Defaults) TypeOf(ref ir.TypeRef) (TypeInfo, bool) {
	if !ref.Resolved {
		return TypeInfo{}, false
	}
	info, ok := d.types[ref.Name]
	return info, ok
}

func (d *Defaults) RegisterNoFinalizableSubclassAssumption(ref ir.TypeRef) {
	d.assumptions = append(d.assumptions, ref)
}

// Assumptions returns every type registered via
// RegisterNoFinalizableSubclassAssumption, for test assertions.
func (d *Defaults) Assumptions() []ir.TypeRef {
	return append([]ir.TypeRef(nil), d.assumptions...)
}
