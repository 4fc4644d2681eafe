// Package buffer holds the composing buffer (a UTF-16 code-unit sequence
// mirroring the cursor-adjacent text the engine owns) and the active
// switch set, per spec.md §3/§4.3.
package buffer

import "github.com/rivo/uniseg"

// Cap is the default bound on composing-buffer length in UTF-16 code units
// (NewWithCap sets a different one), guarding against a runaway rule set
// growing the buffer without limit (spec.md §5 Memory, §7 StateOverflow).
const Cap = 1024

// Buffer is the composing buffer plus the active switch set. Zero value is
// a ready-to-use, empty buffer capped at Cap units.
type Buffer struct {
	units    []uint16
	switches map[uint16]struct{}
	cap      int
}

// New returns an empty Buffer capped at Cap units.
func New() *Buffer {
	return &Buffer{cap: Cap}
}

// NewWithCap returns an empty Buffer capped at n units, for callers whose
// configuration overrides the default (spec.md §5's 1,024-unit default is
// a defense, not a hard constant).
func NewWithCap(n int) *Buffer {
	if n <= 0 {
		n = Cap
	}
	return &Buffer{cap: n}
}

// Len returns the buffer length in UTF-16 code units.
func (b *Buffer) Len() int { return len(b.units) }

// Units returns the buffer's code units. Callers must not mutate the
// returned slice.
func (b *Buffer) Units() []uint16 { return b.units }

// Text returns the buffer contents decoded to a Go string.
func (b *Buffer) Text() string { return decodeUnits(b.units) }

// Append adds code units to the end of the buffer, truncating from the
// head if the result would exceed Cap (spec.md §7 StateOverflow: "keep
// tail" and continue). Reports whether truncation occurred, so callers can
// log it.
func (b *Buffer) Append(units []uint16) (truncated bool) {
	if b.cap <= 0 {
		b.cap = Cap
	}
	b.units = append(b.units, units...)
	if len(b.units) > b.cap {
		excess := len(b.units) - b.cap
		b.units = append([]uint16(nil), b.units[excess:]...)
		truncated = true
	}
	return truncated
}

// Truncate keeps only the first n code units (n <= Len()).
func (b *Buffer) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n > len(b.units) {
		n = len(b.units)
	}
	b.units = b.units[:n]
}

// Clear empties the composing buffer (switches are untouched: callers that
// want a full reset call ClearSwitches too; Engine.Reset instead replaces
// the whole Buffer).
func (b *Buffer) Clear() { b.units = nil }

// ReplaceAll sets the buffer contents outright, used by set_composition
// when the host has authoritative context (e.g. the cursor moved).
func (b *Buffer) ReplaceAll(units []uint16) (truncated bool) {
	b.units = nil
	return b.Append(units)
}

// Tail returns the trailing n code units (or the whole buffer if it's
// shorter), the match window the rule matcher scans.
func (b *Buffer) Tail(n int) []uint16 {
	if n >= len(b.units) {
		return b.units
	}
	return b.units[len(b.units)-n:]
}

// Context returns up to maxLen trailing UTF-16 code units as a string,
// per spec.md §4.3's get_context.
func (b *Buffer) Context(maxLen int) string {
	return decodeUnits(b.Tail(maxLen))
}

// DeleteTrailingCodePoint removes the last grapheme cluster from the
// buffer (spec.md §4.6 step 3, auto_bksp) and returns how many UTF-16 code
// units it removed. Uses uniseg to find the cluster boundary so a
// Backspace over a combining-mark sequence removes the whole cluster, not
// just its last code unit; falls back to removing one code unit if the
// tail is an unpaired surrogate (spec.md §7 EncodingError: "treat the bad
// pair as a single code unit and proceed").
func (b *Buffer) DeleteTrailingCodePoint() (removedUnits int) {
	if len(b.units) == 0 {
		return 0
	}
	text := decodeUnits(b.units)
	if text == "" {
		// Lone surrogate(s): nothing decodes to valid runes; drop one unit.
		b.units = b.units[:len(b.units)-1]
		return 1
	}

	state := -1
	clusterStart := 0
	remaining := text
	for len(remaining) > 0 {
		cluster, rest, _, newState := uniseg.FirstGraphemeClusterInString(remaining, state)
		if len(rest) == 0 {
			break
		}
		clusterStart += len(cluster)
		remaining = rest
		state = newState
	}
	lastCluster := text[clusterStart:]
	removedUnits = len(encodeUnits(lastCluster))
	if removedUnits <= 0 || removedUnits > len(b.units) {
		removedUnits = 1
	}
	b.units = b.units[:len(b.units)-removedUnits]
	return removedUnits
}

// Switches

// HasSwitch reports whether switch idx is currently active.
func (b *Buffer) HasSwitch(idx uint16) bool {
	if b.switches == nil {
		return false
	}
	_, ok := b.switches[idx]
	return ok
}

// SetSwitch activates switch idx. Switches are sticky (spec.md §3): a RHS
// SWITCH opcode always activates its switch (never toggles it off), so a
// rule that both gates on and sets the same switch is idempotent; once set,
// a switch is cleared only by ClearSwitch, ClearSwitches or Engine.Reset.
func (b *Buffer) SetSwitch(idx uint16) {
	if b.switches == nil {
		b.switches = make(map[uint16]struct{})
	}
	b.switches[idx] = struct{}{}
}

// ClearSwitch deactivates switch idx.
func (b *Buffer) ClearSwitch(idx uint16) {
	delete(b.switches, idx)
}

// ClearSwitches deactivates every switch.
func (b *Buffer) ClearSwitches() { b.switches = nil }

// ActiveSwitches returns the indices of every currently active switch, in
// ascending order, for a host that wants to display engine state (e.g.
// cmd/kmconsole's dashboard).
func (b *Buffer) ActiveSwitches() []uint16 {
	out := make([]uint16, 0, len(b.switches))
	for idx := range b.switches {
		out = append(out, idx)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Snapshot is a cheap copy of composing text + active switches, used by
// the engine to roll back a match pass whose RHS execution fails
// (original_source's EngineState::clone/copyFrom). Exhausting the re-match
// budget does not roll anything back.
type Snapshot struct {
	units    []uint16
	switches map[uint16]struct{}
}

// Clone captures the current state.
func (b *Buffer) Clone() Snapshot {
	s := Snapshot{units: append([]uint16(nil), b.units...)}
	if b.switches != nil {
		s.switches = make(map[uint16]struct{}, len(b.switches))
		for k := range b.switches {
			s.switches[k] = struct{}{}
		}
	}
	return s
}

// Restore replaces the buffer's state with a previously captured Snapshot.
func (b *Buffer) Restore(s Snapshot) {
	b.units = s.units
	b.switches = s.switches
}
