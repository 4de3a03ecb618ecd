package builder

import "github.com/pkg/errors"

// BailoutKind classifies a Bailout: the two ways a compile can
// legitimately fail to produce a graph without that being a bug in the
// builder itself (spec.md §7).
type BailoutKind uint8

const (
	// KindVerifier means the bytecode, as abstractly interpreted, could
	// not have passed verification (stack underflow, kind mismatch, a
	// dead local read, lock-stack underflow at a monitor-exit).
	KindVerifier BailoutKind = iota
	// KindResource means the graph arena's node budget was exhausted
	// before the method finished compiling.
	KindResource
)

func (k BailoutKind) String() string {
	if k == KindResource {
		return "resource"
	}
	return "verifier"
}

// Bailout is returned by Build when the compile cannot proceed for a
// reason intrinsic to the input, as opposed to an internalError, which
// indicates a bug in this module. Bailout wraps the underlying frame/ir
// sentinel error so %+v still prints a stack trace from the origin.
type Bailout struct {
	Kind BailoutKind
	BCI  int
	err  error
}

func (b *Bailout) Error() string {
	return errors.Wrapf(b.err, "bailout (%s) at bci %d", b.Kind, b.BCI).Error()
}

func (b *Bailout) Unwrap() error { return b.err }

func newBailout(kind BailoutKind, bci int, err error) *Bailout {
	return &Bailout{Kind: kind, BCI: bci, err: errors.WithStack(err)}
}

// internalError wraps a condition that should be structurally impossible
// given a correct block map and a correct dispatcher — a violated
// arena/SSA invariant, not a property of the input bytecode. Build
// recovers exactly one of these, at its single top-level entry point, and
// returns it as a plain error; it is never a Bailout; spec.md §7 is
// explicit that internal invariant violations are a distinct category
// from the two Bailout kinds.
type internalError struct {
	msg string
	err error
}

func (e *internalError) Error() string {
	return errors.Wrapf(e.err, "internal error: %s", e.msg).Error()
}

func (e *internalError) Unwrap() error { return e.err }

func panicInternal(msg string, err error) {
	panic(&internalError{msg: msg, err: err})
}
