// Package km2 decodes the compiled ".km2" binary keyboard-layout format
// into an in-memory, immutable Layout: header, options, info entries, a
// string table, and a rule list of LHS/RHS opcode sequences turned into a
// tagged-sum intermediate representation at load time.
package km2

import "github.com/thandwin/kmcore/internal/vkey"

// Version is a KM2 format version, gating which fields a file carries.
type Version struct {
	Major uint8
	Minor uint8
}

// IsCompatible reports whether this decoder understands the version.
func (v Version) IsCompatible() bool { return v.Major == 1 }

// HasInfoSection reports whether the info section is present (>= 1.4).
func (v Version) HasInfoSection() bool { return v.Major == 1 && v.Minor >= 4 }

// HasRightAltOption reports whether the right_alt option byte is honored
// (>= 1.5). Older layouts still carry the byte in the 5-byte options block,
// but the decoder ignores it and right_alt defaults to true (see Options).
func (v Version) HasRightAltOption() bool { return v.Major == 1 && v.Minor >= 5 }

// Options is the layout's matching-behavior flag block (§6 of the spec).
type Options struct {
	TrackCaps bool // default true
	AutoBksp  bool // default false
	Eat       bool // default false
	PosBased  bool // default false
	RightAlt  bool // default true; read from disk only at >= 1.5
}

// DefaultOptions returns the options a pre-1.0-of-this-block layout would
// have (all the defaults spec.md §6 names).
func DefaultOptions() Options {
	return Options{TrackCaps: true, RightAlt: true}
}

// InfoType identifies an info-section entry's payload kind.
type InfoType uint32

const (
	InfoName InfoType = 0x6E616D65 // 'name'
	InfoDesc InfoType = 0x64657363 // 'desc'
	InfoFont InfoType = 0x666F6E74 // 'font'
	InfoIcon InfoType = 0x69636F6E // 'icon'
	InfoHotk InfoType = 0x686B6579 // 'hkey'
)

// InfoEntry is one metadata record from the info section: name, description,
// font hint, icon bytes, or hotkey hint. Purely descriptive; never consulted
// by the matcher.
type InfoEntry struct {
	Type InfoType
	Data []byte
}

func (e InfoEntry) IsName() bool        { return e.Type == InfoName }
func (e InfoEntry) IsDescription() bool { return e.Type == InfoDesc }

// LhsOp is one LHS sub-pattern, as a tagged sum rather than raw opcode
// words: the decoder scans the wire format once, here, so the matcher never
// has to.
type LhsOp interface{ isLhsOp() }

type LhsString struct{ Value []uint16 }     // STRING
type LhsVariable struct{ Index uint16 }     // VARIABLE (plain)
type LhsAnyOf struct{ Index uint16 }        // ANYOF prefixing VARIABLE
type LhsNAnyOf struct{ Index uint16 }       // NANYOF prefixing VARIABLE
type LhsAny struct{}                        // ANY
type LhsPredefined struct {                 // PREDEFINED, possibly + MODIFIER
	Key       vkey.VK
	HasMod    bool
	ModBits   ModifierBits
}
type LhsSwitch struct{ Index uint16 } // SWITCH (gate only, no capture)

func (LhsString) isLhsOp()     {}
func (LhsVariable) isLhsOp()   {}
func (LhsAnyOf) isLhsOp()      {}
func (LhsNAnyOf) isLhsOp()     {}
func (LhsAny) isLhsOp()        {}
func (LhsPredefined) isLhsOp() {}
func (LhsSwitch) isLhsOp()     {}

// ModifierBits decodes the MODIFIER opcode's operand word.
type ModifierBits struct {
	Shift bool
	Ctrl  bool
	Alt   bool
	Caps  bool
	Any   bool // bit 0x10: ignore the other bits, match any modifier state
}

func DecodeModifierBits(word uint16) ModifierBits {
	return ModifierBits{
		Shift: word&0x01 != 0,
		Ctrl:  word&0x02 != 0,
		Alt:   word&0x04 != 0,
		Caps:  word&0x08 != 0,
		Any:   word&0x10 != 0,
	}
}

// RhsOp is one RHS opcode, as a tagged sum.
type RhsOp interface{ isRhsOp() }

type RhsString struct{ Value []uint16 } // STRING (may be the NULL word -> empty)
type RhsVariable struct{ Index uint16 } // VARIABLE
type RhsReference struct{ Group uint16 } // REFERENCE (1-based capture index)
type RhsSwitch struct{ Index uint16 }    // SWITCH (sets, see rhsexec)

func (RhsString) isRhsOp()    {}
func (RhsVariable) isRhsOp()  {}
func (RhsReference) isRhsOp() {}
func (RhsSwitch) isRhsOp()    {}

// Rule is a decoded (LHS, RHS) pair. Rules are matched in the order they
// appear in Layout.Rules; the first match wins.
type Rule struct {
	LHS []LhsOp
	RHS []RhsOp
}

// Layout is the fully decoded, immutable-after-load keyboard layout.
type Layout struct {
	Version Version
	Options Options
	Info    []InfoEntry
	Strings []string // 1-indexed in the wire format; Strings[0] is unused
	Rules   []Rule
}

// String returns the string-table entry at the given 1-based index, or ""
// if idx is out of range (callers validate indices at load time; this is a
// convenience accessor for already-validated IR).
func (l *Layout) String(idx uint16) string {
	if int(idx) <= 0 || int(idx) >= len(l.Strings) {
		return ""
	}
	return l.Strings[idx]
}
