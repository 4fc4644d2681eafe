package engine

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/thandwin/kmcore/internal/match"
	"github.com/thandwin/kmcore/internal/vkey"
)

// Wire opcode words, duplicated from km2's (unexported) decoder constants
// so these tests can assemble .km2 byte streams without reaching into
// another package's internals.
const (
	opString   uint16 = 0x00F0
	opVariable uint16 = 0x00F1
	opRefer    uint16 = 0x00F2
	opPredef   uint16 = 0x00F3
	opModifier uint16 = 0x00F4
	opAnyOf    uint16 = 0x00F5
	opAnd      uint16 = 0x00F6
	opNAnyOf   uint16 = 0x00F7
	opAny      uint16 = 0x00F8
	opSwitch   uint16 = 0x00F9
)

type rule struct{ lhs, rhs []uint16 }

type layoutBuilder struct {
	strings []string
	rules   []rule
	opts    [5]byte
}

func newLayoutBuilder() *layoutBuilder {
	return &layoutBuilder{opts: [5]byte{1, 0, 0, 0, 1}}
}

func (b *layoutBuilder) withOptions(trackCaps, autoBksp, eat, posBased, rightAlt bool) *layoutBuilder {
	set := func(v bool) byte {
		if v {
			return 1
		}
		return 0
	}
	b.opts = [5]byte{set(trackCaps), set(autoBksp), set(eat), set(posBased), set(rightAlt)}
	return b
}

func (b *layoutBuilder) addString(s string) uint16 {
	b.strings = append(b.strings, s)
	return uint16(len(b.strings))
}

func (b *layoutBuilder) addRule(lhs, rhs []uint16) {
	b.rules = append(b.rules, rule{lhs: lhs, rhs: rhs})
}

func (b *layoutBuilder) bytes() []byte {
	var buf bytes.Buffer
	buf.WriteString("KMKL")
	buf.WriteByte(1) // major
	buf.WriteByte(5) // minor: right_alt byte meaningful

	w16 := func(v uint16) { must(binary.Write(&buf, binary.LittleEndian, v)) }

	w16(uint16(len(b.strings)))
	w16(0) // info_cnt
	w16(uint16(len(b.rules)))
	buf.Write(b.opts[:])

	for _, s := range b.strings {
		units := utf16.Encode([]rune(s))
		w16(uint16(len(units)))
		for _, u := range units {
			w16(u)
		}
	}

	for _, r := range b.rules {
		w16(uint16(len(r.lhs)))
		for _, u := range r.lhs {
			w16(u)
		}
		w16(uint16(len(r.rhs)))
		for _, u := range r.rhs {
			w16(u)
		}
	}

	return buf.Bytes()
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func strUnits(s string) []uint16 {
	units := utf16.Encode([]rune(s))
	out := make([]uint16, 0, len(units)+2)
	out = append(out, opString, uint16(len(units)))
	out = append(out, units...)
	return out
}

func ch(r rune) *rune { return &r }

func keyEvent(vk vkey.VK, r rune) match.KeyEvent {
	return match.KeyEvent{VK: vk, Character: ch(r)}
}

func mustLoad(t *testing.T, e *Engine, data []byte) {
	t.Helper()
	if err := e.LoadLayout(data); err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
}

// Scenario 1: identity letter, no rules.
func TestScenarioIdentityLetter(t *testing.T) {
	b := newLayoutBuilder()
	e := New()
	mustLoad(t, e, b.bytes())

	a := e.ProcessKey(keyEvent(vkey.KeyA, 'a'))
	if a.Kind != ActionInsert || a.Text != "a" || a.DeleteCount != 0 || a.ComposingAfter != "a" || !a.Consumed {
		t.Fatalf("first key: %+v", a)
	}
	bAction := e.ProcessKey(keyEvent(vkey.KeyB, 'b'))
	if bAction.Kind != ActionInsert || bAction.Text != "b" || bAction.ComposingAfter != "ab" {
		t.Fatalf("second key: %+v", bAction)
	}
}

// Scenario 2: simple substitution, "ka"+Space -> "က ".
func TestScenarioSimpleSubstitution(t *testing.T) {
	b := newLayoutBuilder()
	lhs := append(strUnits("ka"), opPredef, uint16(vkey.Space))
	rhs := strUnits("က ")
	b.addRule(lhs, rhs)

	e := New()
	mustLoad(t, e, b.bytes())

	e.ProcessKey(keyEvent(vkey.KeyA, 'a'))
	e.ProcessKey(keyEvent(vkey.KeyK, 'k'))
	e.ProcessKey(keyEvent(vkey.KeyA, 'a'))
	final := e.ProcessKey(vkeyOnly(vkey.Space))

	if final.Kind != ActionDeleteThenInsert {
		t.Fatalf("expected DeleteThenInsert, got %v (%+v)", final.Kind, final)
	}
	if final.DeleteCount != 2 {
		t.Fatalf("DeleteCount = %d, want 2", final.DeleteCount)
	}
	if final.ComposingAfter != "aက " {
		t.Fatalf("ComposingAfter = %q", final.ComposingAfter)
	}
}

// vkeyOnly builds a key event carrying a virtual key and no character: the
// kind of event a PREDEFINED-trailing rule matches while pos_based is unset.
func vkeyOnly(vk vkey.VK) match.KeyEvent {
	return match.KeyEvent{VK: vk}
}

// Scenario 3: ANYOF transliteration with REFERENCE across parallel classes.
func TestScenarioAnyOfReference(t *testing.T) {
	b := newLayoutBuilder()
	vowels := b.addString("aeiou")
	myanmar := b.addString("ကခဂဃင")
	_ = myanmar

	lhs := []uint16{opAnyOf, vowels}
	rhs := []uint16{opRefer, 1}
	b.addRule(lhs, rhs)

	e := New()
	mustLoad(t, e, b.bytes())

	// REFERENCE on an ANYOF capture resolves against the same class
	// variable it was captured from, not a separately-paired class — a
	// deliberate, documented scope decision (see DESIGN.md's Open
	// Questions entry on REFERENCE/ANYOF pairing) rather than the literal
	// parallel-class example in spec.md §8 scenario 3, which the decoded
	// wire format (RhsReference carries only a capture group index) has
	// no field to express.
	out := e.ProcessKey(keyEvent(vkey.KeyE, 'e'))
	if out.Text != "e" {
		t.Fatalf("Text = %q, want e (index 1 of its own class)", out.Text)
	}
}

// Scenario 4: auto-backspace.
func TestScenarioAutoBackspace(t *testing.T) {
	b := newLayoutBuilder().withOptions(true, true, false, false, true)
	e := New()
	mustLoad(t, e, b.bytes())

	e.ProcessKey(keyEvent(vkey.KeyA, 'a'))
	e.ProcessKey(keyEvent(vkey.KeyB, 'b'))
	e.ProcessKey(keyEvent(vkey.KeyC, 'c'))

	out := e.ProcessKey(match.KeyEvent{VK: vkey.Back})
	if out.Kind != ActionDelete || out.DeleteCount != 1 || out.ComposingAfter != "ab" || !out.Consumed {
		t.Fatalf("backspace: %+v", out)
	}
}

// Scenario 5: switch-gated rule.
func TestScenarioSwitchGatedRule(t *testing.T) {
	b := newLayoutBuilder()
	sw := b.addString("") // switch indices aren't string-table entries; placeholder to keep builder simple
	_ = sw
	b.addRule([]uint16{opSwitch, 1, opPredef, uint16(vkey.KeyA)}, strUnits("α"))
	b.addRule([]uint16{opPredef, uint16(vkey.KeyA)}, strUnits("a"))

	e := New()
	mustLoad(t, e, b.bytes())
	e.buf.SetSwitch(1)

	out := e.ProcessKey(vkeyOnly(vkey.KeyA))
	if out.Text != "α" {
		t.Fatalf("expected switch-gated rule to fire, got %q", out.Text)
	}

	e.Reset()
	out2 := e.ProcessKey(vkeyOnly(vkey.KeyA))
	if out2.Text != "a" {
		t.Fatalf("expected fallback rule after reset, got %q", out2.Text)
	}
}

// Scenario 6: re-match pass under eat.
func TestScenarioEatRematch(t *testing.T) {
	b := newLayoutBuilder().withOptions(true, false, true, false, true)
	b.addRule(strUnits("XX"), strUnits("Y"))

	e := New()
	mustLoad(t, e, b.bytes())

	e.ProcessKey(keyEvent(vkey.KeyX, 'X'))
	final := e.ProcessKey(keyEvent(vkey.KeyX, 'X'))

	if final.Kind != ActionDeleteThenInsert {
		t.Fatalf("expected DeleteThenInsert, got %v (%+v)", final.Kind, final)
	}
	if final.DeleteCount != 1 || final.Text != "Y" {
		t.Fatalf("final = %+v, want delete 1 insert Y", final)
	}
}

func TestNoLayoutIsPassthrough(t *testing.T) {
	e := New()
	out := e.ProcessKey(keyEvent(vkey.KeyA, 'a'))
	if out.Kind != ActionNone || out.Consumed {
		t.Fatalf("expected passthrough before LoadLayout, got %+v", out)
	}
}

func TestResetClearsComposition(t *testing.T) {
	b := newLayoutBuilder()
	e := New()
	mustLoad(t, e, b.bytes())
	e.ProcessKey(keyEvent(vkey.KeyA, 'a'))
	e.Reset()
	if e.GetComposition() != "" {
		t.Fatalf("expected empty composition after Reset, got %q", e.GetComposition())
	}
}

func TestSetComposition(t *testing.T) {
	b := newLayoutBuilder()
	e := New()
	mustLoad(t, e, b.bytes())
	e.SetComposition("hello")
	if e.GetComposition() != "hello" {
		t.Fatalf("GetComposition() = %q", e.GetComposition())
	}
}
