package km2

import "unicode/utf16"

// decodeUTF16 converts wire-format UTF-16 code units to a Go string. Lone
// surrogates (malformed pairs) become the Unicode replacement character,
// matching unicode/utf16's standard-library decoder rather than hand-rolling
// surrogate-pairing logic the standard library already gets right.
func decodeUTF16(units []uint16) string {
	return string(utf16.Decode(units))
}

// encodeUTF16 is the inverse of decodeUTF16. Nothing in this package calls
// it; the buffer, match, rhsexec and engine packages use unicode/utf16
// directly.
func encodeUTF16(s string) []uint16 {
	return utf16.Encode([]rune(s))
}
