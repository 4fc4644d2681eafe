package buffer

import "unicode/utf16"

func decodeUnits(units []uint16) string { return string(utf16.Decode(units)) }

func encodeUnits(s string) []uint16 { return utf16.Encode([]rune(s)) }
