// Package rhsexec runs a matched rule's RHS opcode sequence against the
// captures its LHS produced, turning STRING/VARIABLE/REFERENCE/SWITCH
// opcodes into the literal text to splice into the composing buffer and
// the switch indices the rule activates (spec.md §4.5).
package rhsexec

import (
	"fmt"
	"unicode/utf16"

	"github.com/thandwin/kmcore/internal/km2"
	"github.com/thandwin/kmcore/internal/match"
)

// Result is what running a rule's RHS produces.
type Result struct {
	Text      string
	Activated []uint16 // switch indices the rule's SWITCH ops set active
}

// Error reports a RHS REFERENCE whose group index has no matching capture.
// The decoder's bounds check (km2.buildRhs) already rejects this for any
// well-formed layout; it only surfaces here if captures and RHS disagree
// at runtime, which is a programmer error in the caller, not bad input.
type Error struct {
	Group int
}

func (e *Error) Error() string {
	return fmt.Sprintf("rhsexec: capture group %d not available", e.Group)
}

// Execute runs rhs against captures (as produced by a match.Try call for
// the same rule). layout resolves VARIABLE string-table lookups.
func Execute(layout *km2.Layout, rhs []km2.RhsOp, captures []match.Capture) (Result, error) {
	var units []uint16
	var activated []uint16

	for _, op := range rhs {
		switch v := op.(type) {
		case km2.RhsString:
			units = append(units, v.Value...)

		case km2.RhsVariable:
			units = append(units, utf16.Encode([]rune(layout.String(v.Index)))...)

		case km2.RhsReference:
			text, err := resolveReference(layout, captures, v.Group)
			if err != nil {
				return Result{}, err
			}
			units = append(units, utf16.Encode([]rune(text))...)

		case km2.RhsSwitch:
			activated = append(activated, v.Index)
		}
	}

	return Result{Text: string(utf16.Decode(units)), Activated: activated}, nil
}

// resolveReference returns the literal text a REFERENCE opcode emits: the
// text its numbered capture actually matched, reconstructing a
// class-index capture's character from the class variable it was drawn
// from (spec.md §4.4's numbering: every LHS sub-pattern but SWITCH/MODIFIER
// counts, in order, toward REFERENCE's 1-based group index).
func resolveReference(layout *km2.Layout, captures []match.Capture, group uint16) (string, error) {
	idx := int(group) - 1
	if idx < 0 || idx >= len(captures) {
		return "", &Error{Group: int(group)}
	}

	c := captures[idx]
	switch c.Kind {
	case match.CaptureLiteral:
		return c.Literal, nil
	case match.CaptureClassIndex:
		runes := []rune(layout.String(c.ClassVar))
		if c.ClassIdx < 0 || c.ClassIdx >= len(runes) {
			return "", &Error{Group: int(group)}
		}
		return string(runes[c.ClassIdx]), nil
	default:
		return "", &Error{Group: int(group)}
	}
}
