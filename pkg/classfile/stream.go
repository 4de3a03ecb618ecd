package classfile

import (
	"sort"

	"github.com/kristofer/graphbuilder/pkg/ir"
	"github.com/pkg/errors"
)

// ErrTruncated is returned by any Stream read that runs past the end of
// the instruction bytes. A well-formed method never triggers this; it
// exists so a corrupt or adversarial class file produces an error
// instead of an out-of-bounds panic.
var ErrTruncated = errors.New("classfile: truncated instruction stream")

// Instruction is one decoded bytecode instruction: its opcode, the BCI it
// starts at, and whatever operand(s) the opcode needs. Which operand
// fields are meaningful depends on the opcode, and some opcodes read
// several (an immediate constant load reads Kind plus one of IVal/FVal/
// SVal; OpIfCmp reads Target, Kind and Index).
type Instruction struct {
	BCI    int
	Op     Opcode
	Target int     // decoded absolute branch target, for IsBranch() and OpGoto
	Index  int     // constant-pool index, local index, array-kind tag, ir.BinaryOp (arithmetic-family ops, OpIfCmp) or target ir.Kind (OpConvert), opcode-dependent
	Kind   ir.Kind // operand/result kind for opcodes whose behavior is kind-parameterized (arithmetic, loads, converts, LoadConstant's immediate form)
	IVal   int64
	FVal   float64
	SVal   string

	// Targets/Keys/Low/High serve OpTableSwitch/OpLookupSwitch: for
	// table switch, Targets[i] corresponds to key Low+i, with the last
	// entry as the default; for lookup switch, Keys[i] pairs with
	// Targets[i], with the final Targets entry as the default.
	Targets []int
	Keys    []int32
	Low     int32
	High    int32
}

// Stream is random-access over one method's decoded instruction list,
// indexed by BCI. Unlike a raw byte cursor, it has already canonicalized
// immediate-operand opcode families, so callers key everything off BCI
// rather than a running byte offset.
type Stream struct {
	byBCI map[int]Instruction
	order []int // BCIs in ascending order, for NextBCI
	end   int   // one past the last valid BCI
}

// NewStream wraps a pre-decoded instruction list keyed by its own BCI.
// Decoding raw class-file bytes into this form is a concern of the host
// compiler's class-file reader, not of the graph builder; Stream only
// needs the decoded shape.
func NewStream(instructions []Instruction, codeLength int) *Stream {
	s := &Stream{byBCI: make(map[int]Instruction, len(instructions)), end: codeLength}
	for _, in := range instructions {
		s.byBCI[in.BCI] = in
		s.order = append(s.order, in.BCI)
	}
	return s
}

// At returns the instruction starting at bci.
func (s *Stream) At(bci int) (Instruction, error) {
	in, ok := s.byBCI[bci]
	if !ok {
		return Instruction{}, errors.Wrapf(ErrTruncated, "no instruction at bci %d", bci)
	}
	return in, nil
}

// NextBCI returns the BCI immediately following the instruction at bci,
// or Len() if bci is the last instruction.
func (s *Stream) NextBCI(bci int) int {
	i := sort.SearchInts(s.order, bci)
	if i < len(s.order) && s.order[i] == bci && i+1 < len(s.order) {
		return s.order[i+1]
	}
	return s.end
}

// Len returns the code length in bytes (one past the highest valid BCI).
func (s *Stream) Len() int { return s.end }

// BCIs returns every instruction-starting BCI in ascending order.
func (s *Stream) BCIs() []int { return s.order }
