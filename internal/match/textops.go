package match

import (
	"unicode/utf16"

	"github.com/thandwin/kmcore/internal/km2"
)

// matchTextOps walks ops against window (a UTF-16 code-unit slice already
// sized to exactly fit them, per textWidth) and returns one Capture per op,
// in order, or ok=false if any op fails to match.
func matchTextOps(layout *km2.Layout, ops []km2.LhsOp, window []uint16) ([]Capture, bool) {
	captures := make([]Capture, 0, len(ops))
	pos := 0
	for _, op := range ops {
		switch v := op.(type) {
		case km2.LhsString:
			n := len(v.Value)
			if pos+n > len(window) || !unitsEqual(window[pos:pos+n], v.Value) {
				return nil, false
			}
			captures = append(captures, Capture{Kind: CaptureLiteral, Literal: string(utf16.Decode(window[pos : pos+n]))})
			pos += n

		case km2.LhsVariable:
			value := utf16.Encode([]rune(layout.String(v.Index)))
			n := len(value)
			if pos+n > len(window) || !unitsEqual(window[pos:pos+n], value) {
				return nil, false
			}
			captures = append(captures, Capture{Kind: CaptureLiteral, Literal: layout.String(v.Index)})
			pos += n

		case km2.LhsAnyOf:
			if pos+1 > len(window) {
				return nil, false
			}
			idx, ok := classIndexOf(layout.String(v.Index), window[pos])
			if !ok {
				return nil, false
			}
			captures = append(captures, Capture{Kind: CaptureClassIndex, ClassVar: v.Index, ClassIdx: idx})
			pos++

		case km2.LhsNAnyOf:
			if pos+1 > len(window) {
				return nil, false
			}
			if _, inClass := classIndexOf(layout.String(v.Index), window[pos]); inClass {
				return nil, false
			}
			captures = append(captures, Capture{Kind: CaptureLiteral, Literal: string(utf16.Decode(window[pos : pos+1]))})
			pos++

		case km2.LhsAny:
			if pos+1 > len(window) {
				return nil, false
			}
			captures = append(captures, Capture{Kind: CaptureLiteral, Literal: string(utf16.Decode(window[pos : pos+1]))})
			pos++

		default:
			return nil, false
		}
	}
	if pos != len(window) {
		return nil, false
	}
	return captures, true
}

func unitsEqual(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// classIndexOf reports the rune position of unit within class's decoded
// characters, used to resolve ANYOF membership and to record the index a
// RHS REFERENCE later looks up in the same class string.
func classIndexOf(class string, unit uint16) (int, bool) {
	for i, r := range []rune(class) {
		encoded := utf16.Encode([]rune{r})
		if len(encoded) == 1 && encoded[0] == unit {
			return i, true
		}
	}
	return 0, false
}
