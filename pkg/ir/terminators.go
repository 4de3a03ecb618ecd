package ir

// IfTargets is OpEndIf's Aux payload: the block each side of the boolean
// test leads to. Shared by the per-opcode builder (a real `if`-family
// bytecode) and the exception-dispatch builder (a synthetic catch-type
// test), since both lower to the same one-condition-two-successors
// terminator shape.
type IfTargets struct {
	TrueTarget  BlockID
	FalseTarget BlockID
}

// SwitchTargets is OpEndSwitch's Aux payload. For a table switch, Keys is
// empty and case i corresponds to key Low+i; for a lookup switch, Keys[i]
// gives case i's key explicitly. The final entry of Targets is always the
// default case.
type SwitchTargets struct {
	Keys    []int32
	Low     int32
	Targets []BlockID
}
