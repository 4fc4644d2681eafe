package km2

// validateOpcodes walks a raw LHS or RHS opcode word sequence and checks
// every operand is in bounds before any IR is built from it: a STRING
// whose declared length would run past the end, a VARIABLE/REFERENCE/
// PREDEFINED/MODIFIER/SWITCH missing its operand word, or any word that
// isn't one of the ten canonical opcodes. stringCount bounds VARIABLE
// and ANYOF/NANYOF indices (REFERENCE indices are checked later, once
// the LHS capture count is known).
//
// This mirrors the original implementation's length-accounting walk
// rather than folding the check into IR construction, so a caller can
// validate a rule's opcode streams independently of building its IR.
func validateOpcodes(opcodes []uint16, stringCount int) error {
	i := 0
	for i < len(opcodes) {
		op := opcodes[i]
		switch op {
		case opString:
			if i+1 >= len(opcodes) {
				return newErr(ErrBadOpcodeLength, i)
			}
			length := int(opcodes[i+1])
			if i+2+length > len(opcodes) {
				return newErr(ErrBadStringLength, i)
			}
			i += 2 + length

		case opVariable, opAnyOf, opNAnyOf:
			if i+1 >= len(opcodes) {
				return newErr(ErrBadOpcodeLength, i)
			}
			idx := int(opcodes[i+1])
			// Index 0 is the reserved NULL-string sentinel (§4.5): legal
			// everywhere, always resolves to "". Indices 1..stringCount
			// address the real table.
			if idx != 0 && idx > stringCount {
				return newErr(ErrIndexOutOfRange, i)
			}
			i += 2

		case opRefer:
			if i+1 >= len(opcodes) {
				return newErr(ErrBadOpcodeLength, i)
			}
			// Group index bounds depend on the sibling LHS's capture
			// count, checked by buildRhs once the LHS IR exists.
			i += 2

		case opPredef:
			if i+1 >= len(opcodes) {
				return newErr(ErrBadOpcodeLength, i)
			}
			i += 2

		case opModifier:
			if i+1 >= len(opcodes) {
				return newErr(ErrBadOpcodeLength, i)
			}
			// Adjacency to a preceding PREDEFINED is a structural property
			// of the parsed LHS, not of the raw word stream (PREDEFINED is
			// itself a 2-word unit) — checked precisely in buildLhs.
			i += 2

		case opSwitch:
			if i+1 >= len(opcodes) {
				return newErr(ErrBadOpcodeLength, i)
			}
			i += 2

		case opAnd, opAny:
			i++

		default:
			return newErr(ErrUnknownOpcode, i)
		}
	}
	return nil
}
