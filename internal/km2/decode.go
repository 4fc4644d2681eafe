package km2

import "encoding/binary"

var magic = [4]byte{'K', 'M', 'K', 'L'}

// Opcode words, exactly as they appear on the wire (§3 of the spec).
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

// rawRule is a rule before its opcode streams have been parsed into LhsOp
// and RhsOp slices: just the two raw word sequences from the wire.
type rawRule struct {
	lhs []uint16
	rhs []uint16
}

// reader walks a byte slice, tracking the offset so errors can report
// exactly where decoding failed.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) byte() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	b := r.buf[r.pos]
	r.pos++
	return b, true
}

func (r *reader) u16() (uint16, bool) {
	if r.remaining() < 2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, true
}

func (r *reader) u32() (uint32, bool) {
	if r.remaining() < 4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, true
}

func (r *reader) bytes(n int) ([]byte, bool) {
	if r.remaining() < n {
		return nil, false
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b, true
}

func (r *reader) u16s(n int) ([]uint16, bool) {
	out := make([]uint16, n)
	for i := range out {
		v, ok := r.u16()
		if !ok {
			return nil, false
		}
		out[i] = v
	}
	return out, true
}

// Decode parses a .km2 byte stream into a fully validated, immutable
// Layout. It returns a *DecodeError (never a partial Layout) on any format
// violation: bad magic, a major version this decoder doesn't know, a
// truncated section, or a malformed opcode stream.
func Decode(data []byte) (*Layout, error) {
	r := &reader{buf: data}

	magicBytes, ok := r.bytes(4)
	if !ok {
		return nil, newErr(ErrTruncated, r.pos)
	}
	if magicBytes[0] != magic[0] || magicBytes[1] != magic[1] || magicBytes[2] != magic[2] || magicBytes[3] != magic[3] {
		return nil, newErr(ErrBadMagic, 0)
	}

	major, ok := r.byte()
	if !ok {
		return nil, newErr(ErrTruncated, r.pos)
	}
	minor, ok := r.byte()
	if !ok {
		return nil, newErr(ErrTruncated, r.pos)
	}
	version := Version{Major: major, Minor: minor}
	if !version.IsCompatible() {
		return nil, newErr(ErrUnsupportedVersion, r.pos)
	}

	stringCount, ok := r.u16()
	if !ok {
		return nil, newErr(ErrTruncated, r.pos)
	}
	infoCount, ok := r.u16()
	if !ok {
		return nil, newErr(ErrTruncated, r.pos)
	}
	if !version.HasInfoSection() {
		infoCount = 0
	}
	ruleCount, ok := r.u16()
	if !ok {
		return nil, newErr(ErrTruncated, r.pos)
	}

	opts, err := decodeOptions(r, version)
	if err != nil {
		return nil, err
	}

	var info []InfoEntry
	if version.HasInfoSection() {
		info, err = decodeInfoSection(r, int(infoCount))
		if err != nil {
			return nil, err
		}
	}

	strs, err := decodeStringTable(r, int(stringCount))
	if err != nil {
		return nil, err
	}

	rawRules, err := decodeRawRules(r, int(ruleCount))
	if err != nil {
		return nil, err
	}

	rules := make([]Rule, 0, len(rawRules))
	for _, rr := range rawRules {
		if err := validateOpcodes(rr.lhs, len(strs)-1); err != nil {
			return nil, err
		}
		if err := validateOpcodes(rr.rhs, len(strs)-1); err != nil {
			return nil, err
		}
		lhs, err := buildLhs(rr.lhs)
		if err != nil {
			return nil, err
		}
		rhs, err := buildRhs(rr.rhs, countCaptures(lhs))
		if err != nil {
			return nil, err
		}
		rules = append(rules, Rule{LHS: lhs, RHS: rhs})
	}

	return &Layout{
		Version: version,
		Options: opts,
		Info:    info,
		Strings: strs,
		Rules:   rules,
	}, nil
}

func decodeOptions(r *reader, version Version) (Options, error) {
	opts := DefaultOptions()

	trackCaps, ok := r.byte()
	if !ok {
		return Options{}, newErr(ErrTruncated, r.pos)
	}
	autoBksp, ok := r.byte()
	if !ok {
		return Options{}, newErr(ErrTruncated, r.pos)
	}
	eat, ok := r.byte()
	if !ok {
		return Options{}, newErr(ErrTruncated, r.pos)
	}
	posBased, ok := r.byte()
	if !ok {
		return Options{}, newErr(ErrTruncated, r.pos)
	}
	rightAlt, ok := r.byte()
	if !ok {
		return Options{}, newErr(ErrTruncated, r.pos)
	}

	opts.TrackCaps = trackCaps != 0
	opts.AutoBksp = autoBksp != 0
	opts.Eat = eat != 0
	opts.PosBased = posBased != 0
	if version.HasRightAltOption() {
		opts.RightAlt = rightAlt != 0
	}
	// Pre-1.5 layouts: right_alt byte is still present on disk per the
	// fixed 5-byte options block, but its value is ignored in favor of
	// the default (true) per §6's version-gating rule.
	return opts, nil
}

func decodeInfoSection(r *reader, count int) ([]InfoEntry, error) {
	entries := make([]InfoEntry, 0, count)
	for i := 0; i < count; i++ {
		typ, ok := r.u32()
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		length, ok := r.u32()
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		data, ok := r.bytes(int(length))
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		entries = append(entries, InfoEntry{Type: InfoType(typ), Data: append([]byte(nil), data...)})
	}
	return entries, nil
}

func decodeStringTable(r *reader, count int) ([]string, error) {
	// Index 0 is reserved/unused; the wire format is 1-indexed.
	strs := make([]string, count+1)
	for i := 1; i <= count; i++ {
		length, ok := r.u16()
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		units, ok := r.u16s(int(length))
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		strs[i] = decodeUTF16(units)
	}
	return strs, nil
}

func decodeRawRules(r *reader, count int) ([]rawRule, error) {
	rules := make([]rawRule, 0, count)
	for i := 0; i < count; i++ {
		lhsLen, ok := r.u16()
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		lhs, ok := r.u16s(int(lhsLen))
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		rhsLen, ok := r.u16()
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		rhs, ok := r.u16s(int(rhsLen))
		if !ok {
			return nil, newErr(ErrTruncated, r.pos)
		}
		rules = append(rules, rawRule{lhs: lhs, rhs: rhs})
	}
	return rules, nil
}

// countCaptures returns how many LHS sub-patterns produce a capture
// (§3: "switch/modifier tokens excluded"), so buildRhs can bounds-check
// REFERENCE group indices. A trailing PREDEFINED counts too: it captures
// the live key's character (see match.tryPredefinedTrailing), so a RHS
// REFERENCE may legally point at it.
func countCaptures(lhs []LhsOp) int {
	n := 0
	for _, op := range lhs {
		switch op.(type) {
		case LhsString, LhsVariable, LhsAnyOf, LhsNAnyOf, LhsAny, LhsPredefined:
			n++
		}
	}
	return n
}
