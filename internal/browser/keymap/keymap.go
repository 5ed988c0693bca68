// Package keymap maps characters and named keys to the virtual key codes
// and modifiers expected by protocol level key events.
package keymap

import (
	"strings"
	"unicode"
)

// Key is a protocol key description.
type Key struct {
	// Key is the DOM `key` value ("a", "A", "!", "Enter").
	Key string
	// Code is the DOM `code` value ("KeyA", "Digit1", "Enter").
	Code string
	// VirtualKeyCode is the Windows virtual key code.
	VirtualKeyCode int64
	// Shift is true when the key requires the shift modifier.
	Shift bool
	// Text is the text the key produces, empty for non printable keys.
	Text string
}

// Resolution tells how a character was resolved.
type Resolution int

const (
	// ResolutionExact means the character is in the table.
	ResolutionExact Resolution = iota
	// ResolutionUppercase means the uppercase form of the character was used.
	ResolutionUppercase
	// ResolutionUnmapped means no entry was found and a zero code is returned.
	ResolutionUnmapped
)

var chars = buildChars()

var named = map[string]Key{
	"enter":      {Key: "Enter", Code: "Enter", VirtualKeyCode: 13, Text: "\r"},
	"escape":     {Key: "Escape", Code: "Escape", VirtualKeyCode: 27},
	"tab":        {Key: "Tab", Code: "Tab", VirtualKeyCode: 9},
	"backspace":  {Key: "Backspace", Code: "Backspace", VirtualKeyCode: 8},
	"delete":     {Key: "Delete", Code: "Delete", VirtualKeyCode: 46},
	"arrowup":    {Key: "ArrowUp", Code: "ArrowUp", VirtualKeyCode: 38},
	"arrowdown":  {Key: "ArrowDown", Code: "ArrowDown", VirtualKeyCode: 40},
	"arrowleft":  {Key: "ArrowLeft", Code: "ArrowLeft", VirtualKeyCode: 37},
	"arrowright": {Key: "ArrowRight", Code: "ArrowRight", VirtualKeyCode: 39},
	"space":      {Key: " ", Code: "Space", VirtualKeyCode: 32, Text: " "},
}

var namedAliases = map[string]string{
	"up":     "arrowup",
	"down":   "arrowdown",
	"left":   "arrowleft",
	"right":  "arrowright",
	"esc":    "escape",
	"return": "enter",
	"del":    "delete",
}

func buildChars() map[rune]Key {
	m := map[rune]Key{}

	for r := 'a'; r <= 'z'; r++ {
		upper := unicode.ToUpper(r)
		code := "Key" + string(upper)
		vk := int64(upper)
		m[r] = Key{Key: string(r), Code: code, VirtualKeyCode: vk, Text: string(r)}
		m[upper] = Key{Key: string(upper), Code: code, VirtualKeyCode: vk, Shift: true, Text: string(upper)}
	}

	shiftedDigits := ")!@#$%^&*("
	for i, r := range "0123456789" {
		code := "Digit" + string(r)
		vk := int64(r)
		m[r] = Key{Key: string(r), Code: code, VirtualKeyCode: vk, Text: string(r)}
		s := rune(shiftedDigits[i])
		m[s] = Key{Key: string(s), Code: code, VirtualKeyCode: vk, Shift: true, Text: string(s)}
	}

	punct := []struct {
		plain, shifted rune
		code           string
		vk             int64
	}{
		{';', ':', "Semicolon", 186},
		{'=', '+', "Equal", 187},
		{',', '<', "Comma", 188},
		{'-', '_', "Minus", 189},
		{'.', '>', "Period", 190},
		{'/', '?', "Slash", 191},
		{'`', '~', "Backquote", 192},
		{'[', '{', "BracketLeft", 219},
		{'\\', '|', "Backslash", 220},
		{']', '}', "BracketRight", 221},
		{'\'', '"', "Quote", 222},
	}
	for _, p := range punct {
		m[p.plain] = Key{Key: string(p.plain), Code: p.code, VirtualKeyCode: p.vk, Text: string(p.plain)}
		m[p.shifted] = Key{Key: string(p.shifted), Code: p.code, VirtualKeyCode: p.vk, Shift: true, Text: string(p.shifted)}
	}

	m[' '] = named["space"]
	m['\n'] = named["enter"]
	m['\r'] = named["enter"]
	m['\t'] = Key{Key: "Tab", Code: "Tab", VirtualKeyCode: 9, Text: "\t"}

	return m
}

// Lookup returns the table entry of a character.
func Lookup(r rune) (Key, bool) {
	k, ok := chars[r]
	return k, ok
}

// Resolve always returns a key for a character. Characters missing from the
// table fall back to their uppercase form, and if that is missing too a zero
// code key that still carries the character as text.
func Resolve(r rune) (Key, Resolution) {
	if k, ok := chars[r]; ok {
		return k, ResolutionExact
	}

	if up := unicode.ToUpper(r); up != r {
		if k, ok := chars[up]; ok {
			// Keep the original text so the page receives what was asked.
			k.Key = string(r)
			k.Text = string(r)
			return k, ResolutionUppercase
		}
	}

	return Key{Key: string(r), Text: string(r)}, ResolutionUnmapped
}

// Named returns the key for a named key ("enter", "arrowup", "up"...), case insensitive.
func Named(name string) (Key, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := namedAliases[n]; ok {
		n = alias
	}
	k, ok := named[n]
	return k, ok
}

// NamedKeys returns the canonical named keys.
func NamedKeys() []string {
	return []string{"enter", "escape", "tab", "backspace", "delete", "arrowup", "arrowdown", "arrowleft", "arrowright", "space"}
}
