package runtimedesc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kristofer/graphbuilder/pkg/ir"
)

func TestTypeOfUnregisteredIsUnknown(t *testing.T) {
	d := NewDefaults()
	_, ok := d.TypeOf(ir.TypeRef{Resolved: true, Name: "Unknown"})
	require.False(t, ok)
}

func TestTypeOfUnresolvedRefAlwaysUnknown(t *testing.T) {
	d := NewDefaults()
	d.Register("Foo", TypeInfo{Final: true})
	_, ok := d.TypeOf(ir.TypeRef{Resolved: false, Name: "Foo"})
	require.False(t, ok)
}

func TestRegisterAndTypeOf(t *testing.T) {
	d := NewDefaults()
	d.Register("Foo", TypeInfo{Final: true})

	info, ok := d.TypeOf(ir.TypeRef{Resolved: true, Name: "Foo"})
	require.True(t, ok)
	require.True(t, info.Final)
}

func TestSizeOfBasicLockRecordDefaultsToTwoWords(t *testing.T) {
	d := NewDefaults()
	require.Equal(t, 2, d.SizeOfBasicLockRecord())
}

func TestRegisterNoFinalizableSubclassAssumptionAccumulates(t *testing.T) {
	d := NewDefaults()
	foo := ir.TypeRef{Resolved: true, Name: "Foo"}
	bar := ir.TypeRef{Resolved: true, Name: "Bar"}
	d.RegisterNoFinalizableSubclassAssumption(foo)
	d.RegisterNoFinalizableSubclassAssumption(bar)

	require.Equal(t, []ir.TypeRef{foo, bar}, d.Assumptions())
}
