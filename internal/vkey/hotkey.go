package vkey

import "strings"

// Hotkey is a parsed UI hotkey: a key plus the modifiers that must be held.
// This is consumed by host shims for UI-bound shortcuts (reload layout,
// toggle a switch); the rule matcher never sees a Hotkey.
type Hotkey struct {
	Key   VK
	Shift bool
	Ctrl  bool
	Alt   bool
	Meta  bool // Cmd/Win/Meta
}

// modifierNames are hotkey-grammar tokens that set a modifier bit rather
// than naming a key. ParseHotkey checks this table before FromName, so a
// modifier name always sets a modifier bit, even though CTRL, CONTROL,
// SHIFT, ALT and MENU also resolve to VKs in the alias table.
var modifierNames = map[string]func(*Hotkey){
	"CTRL":    func(h *Hotkey) { h.Ctrl = true },
	"CONTROL": func(h *Hotkey) { h.Ctrl = true },
	"SHIFT":   func(h *Hotkey) { h.Shift = true },
	"ALT":     func(h *Hotkey) { h.Alt = true },
	"MENU":    func(h *Hotkey) { h.Alt = true },
	"META":    func(h *Hotkey) { h.Meta = true },
	"CMD":     func(h *Hotkey) { h.Meta = true },
	"WIN":     func(h *Hotkey) { h.Meta = true },
}

// ParseHotkey parses the hotkey grammar from spec.md §6:
//
//	hotkey = token ( ("+" | whitespace) token )* key
//
// Tokens before the final one must be modifier names; the final token must
// resolve to exactly one key via FromName. Returns false for: empty input,
// a trailing "+", a modifier-only string (no key), an unknown token, more
// than one key token, or a key FromName doesn't recognize (e.g. "F13").
func ParseHotkey(s string) (Hotkey, bool) {
	if strings.TrimSpace(s) == "" {
		return Hotkey{}, false
	}
	tokens := tokenizeHotkey(s)
	if len(tokens) == 0 {
		return Hotkey{}, false
	}

	var hk Hotkey
	sawKey := false
	for _, tok := range tokens {
		if tok == "" {
			// Trailing separator (tokenizeHotkey keeps only a final empty token).
			return Hotkey{}, false
		}
		upper := toUpper(tok)
		if setMod, isMod := modifierNames[upper]; isMod {
			if sawKey {
				// A modifier after the key, e.g. "ctrl+a+b".
				return Hotkey{}, false
			}
			setMod(&hk)
			continue
		}
		vk, ok := FromName(tok)
		if !ok {
			return Hotkey{}, false
		}
		if sawKey {
			return Hotkey{}, false
		}
		hk.Key = vk
		sawKey = true
	}
	if !sawKey {
		return Hotkey{}, false
	}
	return hk, true
}

// tokenizeHotkey splits on "+" and whitespace, the two separators the
// grammar allows interchangeably. A lone trailing separator yields an
// explicit empty token so ParseHotkey can reject it rather than silently
// dropping it.
func tokenizeHotkey(s string) []string {
	var tokens []string
	var cur strings.Builder
	flush := func() {
		tokens = append(tokens, cur.String())
		cur.Reset()
	}
	for _, r := range s {
		if r == '+' || r == ' ' || r == '\t' {
			flush()
			continue
		}
		cur.WriteRune(r)
	}
	flush()
	// Drop the empty tokens that consecutive separators produce, whether
	// "+" or whitespace (so "ctrl  shift k" and "ctrl + k" both parse), but
	// keep an empty final token, which only a trailing separator produces.
	out := tokens[:0]
	for i, t := range tokens {
		if t == "" && i < len(tokens)-1 {
			continue
		}
		out = append(out, t)
	}
	return out
}
