package builder

import "io"

// Options configures one method compile. There is no global/package-level
// configuration anywhere in this module — every knob spec.md §5 and §9
// name is threaded explicitly through a single Options value, the same
// way kristofer-smog's vm.VM takes its configuration as constructor
// arguments rather than reading package-level flags.
type Options struct {
	// TraceParserLevel gates the verbosity of the inline trace log.
	// 0 disables tracing entirely; 1 logs one line per block and one per
	// instruction; 2 adds the live stack-slot count and lock depth to
	// every instruction line.
	TraceParserLevel int

	// TraceWriter receives trace output when TraceParserLevel > 0. A nil
	// writer with a non-zero level is a programmer error the driver
	// reports as an internal error rather than silently dropping trace
	// output.
	TraceWriter io.Writer

	// AssumeVerifiedBytecode is accepted but not read by the builder:
	// every frame-state check (stack/local bounds, kind matches, merge
	// compatibility) runs whatever its value.
	AssumeVerifiedBytecode bool

	// ResolveClassBeforeStaticInvoke, when set, makes a static invoke
	// whose declaring class the RuntimeDescriptor does not know emit an
	// in-body OpDeoptimize marker ahead of the call. The call node is
	// still emitted and bound directly; no class-initialization node is
	// emitted.
	ResolveClassBeforeStaticInvoke bool

	// MaxNodeCount bounds the arena; 0 means unbounded. Exceeding it
	// surfaces as Bailout{Kind: KindResource}.
	MaxNodeCount int

	// UseAssumptions enables speculative optimizations (currently: eliding
	// finalizer registration) that depend on the host's
	// RuntimeDescriptor supporting assumption invalidation. Disabling it
	// keeps every such optimization conservative.
	UseAssumptions bool
}
