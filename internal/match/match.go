// Package match implements the rule matcher: given the current composing
// buffer, the incoming key event, and the active switch set, it finds the
// single rule (if any) whose LHS applies, per spec.md §4.4.
package match

import (
	"unicode/utf16"

	"github.com/thandwin/kmcore/internal/buffer"
	"github.com/thandwin/kmcore/internal/km2"
	"github.com/thandwin/kmcore/internal/vkey"
)

// KeyEvent is the raw key-event triple the engine facade consumes,
// extended with the modifier booleans the matcher needs (spec.md §3).
type KeyEvent struct {
	VK        vkey.VK
	Character *rune // absent if the key produces no printable character
	Shift     bool
	Ctrl      bool
	Alt       bool
	Caps      bool
}

// CaptureKind distinguishes a literal capture from a class-index capture.
type CaptureKind int

const (
	CaptureLiteral CaptureKind = iota
	CaptureClassIndex
)

// Capture is one LHS capture, numbered 1..N in LHS order (spec.md §4.4). A
// CaptureClassIndex remembers which string-table variable it was captured
// from, so rhsexec can resolve a REFERENCE to it against that same class.
type Capture struct {
	Kind     CaptureKind
	Literal  string
	ClassVar uint16 // valid when Kind == CaptureClassIndex
	ClassIdx int    // rune index into that variable's string
}

// Match is the result of a successful rule match.
type Match struct {
	RuleIndex     int
	ConsumedUnits int // composing-buffer units the rule's LHS consumed
	Captures      []Capture
	RHS           []km2.RhsOp
}

// Try scans layout's rules in declaration order and returns the first
// match (spec.md §4.4: "first matching rule wins", no backtracking across
// rules).
func Try(layout *km2.Layout, buf *buffer.Buffer, event KeyEvent) (Match, bool) {
	for i, rule := range layout.Rules {
		if m, ok := tryRule(layout, i, rule, buf, event); ok {
			return m, true
		}
	}
	return Match{}, false
}

func tryRule(layout *km2.Layout, idx int, rule km2.Rule, buf *buffer.Buffer, event KeyEvent) (Match, bool) {
	textOps, trailingPredef, ok := splitLhs(rule.LHS, buf)
	if !ok {
		return Match{}, false // an inactive gating switch
	}
	if trailingPredef != nil {
		return tryPredefinedTrailing(layout, idx, rule, textOps, *trailingPredef, buf, event)
	}
	return tryCharacterTrailing(layout, idx, rule, textOps, buf, event)
}

// splitLhs separates a rule's LHS into its gating SWITCH checks, its text
// sub-patterns, and an optional trailing PREDEFINED token. Returns ok=false
// if a gating switch isn't currently active.
func splitLhs(lhs []km2.LhsOp, buf *buffer.Buffer) (textOps []km2.LhsOp, trailingPredef *km2.LhsPredefined, ok bool) {
	nonSwitch := make([]km2.LhsOp, 0, len(lhs))
	for _, op := range lhs {
		if sw, isSwitch := op.(km2.LhsSwitch); isSwitch {
			if !buf.HasSwitch(sw.Index) {
				return nil, nil, false
			}
			continue
		}
		nonSwitch = append(nonSwitch, op)
	}
	if len(nonSwitch) == 0 {
		return nil, nil, true
	}
	last := nonSwitch[len(nonSwitch)-1]
	if pred, isPred := last.(km2.LhsPredefined); isPred {
		return nonSwitch[:len(nonSwitch)-1], &pred, true
	}
	return nonSwitch, nil, true
}

// tryPredefinedTrailing handles a rule whose LHS ends in a PREDEFINED (+
// optional MODIFIER) token: the text ops must match the tail of the
// composing buffer exactly, and the trailing token is compared against the
// live key event, consuming zero composing-buffer units.
//
// Positional-match option (spec.md §4.4): a PREDEFINED token always matches
// by virtual-key identity alone, never by the character the key produces.
// When pos_based is unset, though, a character-producing key still prefers
// a STRING/VARIABLE match on that character over a scancode-style
// PREDEFINED match, so this trailing path is skipped for such a key unless
// pos_based is set.
func tryPredefinedTrailing(layout *km2.Layout, idx int, rule km2.Rule, textOps []km2.LhsOp, pred km2.LhsPredefined, buf *buffer.Buffer, event KeyEvent) (Match, bool) {
	if event.Character != nil && !layout.Options.PosBased {
		return Match{}, false
	}
	if !predefinedMatches(pred, event, layout.Options) {
		return Match{}, false
	}

	width, ok := textWidth(layout, textOps)
	if !ok || width > buf.Len() {
		return Match{}, false
	}
	window := buf.Tail(width)
	captures, ok := matchTextOps(layout, textOps, window)
	if !ok {
		return Match{}, false
	}

	predCapture := Capture{Kind: CaptureLiteral}
	if event.Character != nil {
		predCapture.Literal = string(*event.Character)
	}
	captures = append(captures, predCapture)

	return Match{RuleIndex: idx, ConsumedUnits: width, Captures: captures, RHS: rule.RHS}, true
}

// tryCharacterTrailing handles a rule whose LHS ends in a text sub-pattern
// (STRING/VARIABLE/ANYOF/NANYOF/ANY): the incoming key must carry a
// character, and the whole LHS (including its last item) matches the tail
// of the composing buffer extended by that one virtual character.
func tryCharacterTrailing(layout *km2.Layout, idx int, rule km2.Rule, textOps []km2.LhsOp, buf *buffer.Buffer, event KeyEvent) (Match, bool) {
	if len(textOps) == 0 {
		// Gating-switch-only LHS: matches unconditionally once its
		// switches are active (spec.md §8 "SWITCH-only LHS").
		return Match{RuleIndex: idx, ConsumedUnits: 0, RHS: rule.RHS}, true
	}
	if !CharacterEventUsable(event, layout.Options) {
		return Match{}, false
	}
	charUnits := utf16.Encode([]rune{*event.Character})

	width, ok := textWidth(layout, textOps)
	if !ok {
		return Match{}, false
	}
	extended := append(append([]uint16(nil), buf.Units()...), charUnits...)
	if width > len(extended) {
		return Match{}, false
	}
	window := extended[len(extended)-width:]
	captures, ok := matchTextOps(layout, textOps, window)
	if !ok {
		return Match{}, false
	}

	consumed := width - len(charUnits)
	if consumed < 0 {
		return Match{}, false
	}
	return Match{RuleIndex: idx, ConsumedUnits: consumed, Captures: captures, RHS: rule.RHS}, true
}

// textWidth returns the total UTF-16-unit width a list of text sub-patterns
// requires, resolving VARIABLE against the layout's string table. ANY,
// ANYOF and NANYOF each claim exactly one UTF-16 code unit: spec.md models
// the composing buffer as a UTF-16 code-unit sequence, and real-world
// layouts built against this engine operate entirely within the Basic
// Multilingual Plane, so class/any matching works one code unit at a time
// rather than decoding full code points (grapheme-aware handling is
// reserved for Backspace, per buffer.DeleteTrailingCodePoint).
func textWidth(layout *km2.Layout, ops []km2.LhsOp) (int, bool) {
	total := 0
	for _, op := range ops {
		switch v := op.(type) {
		case km2.LhsString:
			total += len(v.Value)
		case km2.LhsVariable:
			total += len(utf16.Encode([]rune(layout.String(v.Index))))
		case km2.LhsAnyOf, km2.LhsNAnyOf, km2.LhsAny:
			total++
		default:
			return 0, false
		}
	}
	return total, true
}

func predefinedMatches(pred km2.LhsPredefined, event KeyEvent, opts km2.Options) bool {
	if pred.Key != event.VK {
		return false
	}
	if !pred.HasMod {
		return true
	}
	bits := pred.ModBits
	if bits.Any {
		return true
	}
	effShift := event.Shift
	if opts.TrackCaps && vkey.IsLetterKey(pred.Key) {
		effShift = event.Shift != event.Caps
	}
	return effShift == bits.Shift &&
		event.Ctrl == bits.Ctrl &&
		event.Alt == bits.Alt &&
		event.Caps == bits.Caps
}

// CharacterEventUsable reports whether event carries a character the
// character-trailing match path (and the engine's default-insertion
// fallback, spec.md §4.6 step 2) may use. Ctrl or Alt held alone blocks it;
// Ctrl+Alt together is allowed only when right_alt is set, treating the
// combination as AltGr rather than a modifier chord (spec.md §4.4
// "Right-alt option").
func CharacterEventUsable(event KeyEvent, opts km2.Options) bool {
	if event.Character == nil {
		return false
	}
	blocked := (event.Ctrl || event.Alt) && !isRightAlt(event, opts)
	return !blocked
}

// isRightAlt reports whether event's Ctrl+Alt combination should be read as
// an AltGr chord rather than a blocking modifier combination.
func isRightAlt(event KeyEvent, opts km2.Options) bool {
	return event.Ctrl && event.Alt && opts.RightAlt
}
