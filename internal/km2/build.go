package km2

import "github.com/thandwin/kmcore/internal/vkey"

// buildLhs converts a validated raw LHS opcode stream into the tagged-sum
// IR. AND is a pure separator and produces no op. A MODIFIER word must
// immediately follow the PREDEFINED op it qualifies; anything else is
// rejected here (validateOpcodes already guaranteed operand words exist).
func buildLhs(opcodes []uint16) ([]LhsOp, error) {
	var ops []LhsOp
	lastWasPredefined := -1 // index into ops of the most recently appended LhsPredefined, or -1

	i := 0
	for i < len(opcodes) {
		op := opcodes[i]
		switch op {
		case opString:
			length := int(opcodes[i+1])
			value := append([]uint16(nil), opcodes[i+2:i+2+length]...)
			ops = append(ops, LhsString{Value: value})
			i += 2 + length
			lastWasPredefined = -1

		case opVariable:
			ops = append(ops, LhsVariable{Index: opcodes[i+1]})
			i += 2
			lastWasPredefined = -1

		case opAnyOf:
			ops = append(ops, LhsAnyOf{Index: opcodes[i+1]})
			i += 2
			lastWasPredefined = -1

		case opNAnyOf:
			ops = append(ops, LhsNAnyOf{Index: opcodes[i+1]})
			i += 2
			lastWasPredefined = -1

		case opAny:
			ops = append(ops, LhsAny{})
			i++
			lastWasPredefined = -1

		case opPredef:
			ops = append(ops, LhsPredefined{Key: vkey.VK(opcodes[i+1])})
			i += 2
			lastWasPredefined = len(ops) - 1

		case opModifier:
			if lastWasPredefined < 0 {
				return nil, newErr(ErrDanglingModifier, i)
			}
			pred := ops[lastWasPredefined].(LhsPredefined)
			pred.HasMod = true
			pred.ModBits = DecodeModifierBits(opcodes[i+1])
			ops[lastWasPredefined] = pred
			i += 2
			// A MODIFIER does not itself reset lastWasPredefined: a
			// stray second MODIFIER word would be a format violation
			// the validator already treats as "operand present", so we
			// simply let the second one overwrite the same PREDEFINED
			// (last-write-wins) rather than invent a new error kind.

		case opSwitch:
			ops = append(ops, LhsSwitch{Index: opcodes[i+1]})
			i += 2
			lastWasPredefined = -1

		case opAnd:
			i++
			// separator: no IR node, no change to lastWasPredefined

		default:
			return nil, newErr(ErrUnknownOpcode, i)
		}
	}
	return ops, nil
}

// buildRhs converts a validated raw RHS opcode stream into the tagged-sum
// IR, rejecting any opcode illegal in RHS position (PREDEFINED, MODIFIER,
// ANYOF, NANYOF, ANY, AND) and any REFERENCE whose group index exceeds the
// sibling LHS's capture count.
func buildRhs(opcodes []uint16, captureCount int) ([]RhsOp, error) {
	var ops []RhsOp
	i := 0
	for i < len(opcodes) {
		op := opcodes[i]
		switch op {
		case opString:
			length := int(opcodes[i+1])
			value := append([]uint16(nil), opcodes[i+2:i+2+length]...)
			if len(value) == 1 && value[0] == 0x0000 {
				value = nil // NULL-word sentinel: emits ""
			}
			ops = append(ops, RhsString{Value: value})
			i += 2 + length

		case opVariable:
			ops = append(ops, RhsVariable{Index: opcodes[i+1]})
			i += 2

		case opRefer:
			group := opcodes[i+1]
			if group == 0 || int(group) > captureCount {
				return nil, newErr(ErrIndexOutOfRange, i)
			}
			ops = append(ops, RhsReference{Group: group})
			i += 2

		case opSwitch:
			ops = append(ops, RhsSwitch{Index: opcodes[i+1]})
			i += 2

		default:
			return nil, newErr(ErrUnknownOpcode, i)
		}
	}
	return ops, nil
}
