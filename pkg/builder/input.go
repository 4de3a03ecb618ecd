package builder

import (
	"github.com/kristofer/graphbuilder/pkg/classfile"
	"github.com/kristofer/graphbuilder/pkg/ir"
	"github.com/kristofer/graphbuilder/pkg/resolver"
	"github.com/kristofer/graphbuilder/pkg/runtimedesc"
)

// HandlerSpec is one exception-table entry as the host compiler supplies
// it: a covered BCI range, a handler BCI, and a catch type. Build turns
// each HandlerSpec into an ir.Handler once it knows which ir.BlockID the
// handler BCI maps to.
type HandlerSpec struct {
	StartBCI, EndBCI, HandlerBCI int
	CatchType                    ir.TypeRef
}

// MethodInput is everything Build needs to compile one method's bytecode
// into a graph: the decoded instruction stream, its exception table, its
// frame-size limits, and the collaborators (resolver, runtime descriptor)
// it consults for everything it cannot determine from the bytecode alone.
type MethodInput struct {
	Stream   *classfile.Stream
	Handlers []HandlerSpec

	MaxLocals int
	MaxStack  int
	MaxLocks  int

	IsStatic       bool
	IsSynchronized bool
	ParamKinds     []ir.Kind
	ReturnKind     ir.Kind

	// DeclaringType is the class that declares this method. The builder
	// uses it as the monitor object (a class literal) of a static
	// synchronized method.
	DeclaringType ir.TypeRef

	Resolver resolver.ConstantPoolResolver
	Runtime  runtimedesc.RuntimeDescriptor
}

// Result is everything a successful compile produces.
type Result struct {
	Graph *ir.Graph
}
