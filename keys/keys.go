// Package keys defines the key-name vocabulary shared by bindings, the stop
// key and the global keyboard hook.
package keys

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Names is the fixed vocabulary of canonical key names.
var Names = []string{
	"`", "1", "2", "3", "4", "5", "6", "7", "8", "9", "0", "-", "=", "BACKSPACE",
	"TAB", "Q", "W", "E", "R", "T", "Y", "U", "I", "O", "P", "[", "]", "\\",
	"CAPS", "A", "S", "D", "F", "G", "H", "J", "K", "L", ";", "'", "ENTER",
	"SHIFT", "Z", "X", "C", "V", "B", "N", "M", ",", ".", "/",
	"CTRL", "WIN", "ALT", "SPACE",
	"ESC", "F1", "F2", "F3", "F4", "F5", "F6", "F7", "F8", "F9", "F10", "F11", "F12",
	"UP", "DOWN", "LEFT", "RIGHT",
	"INSERT", "DELETE", "HOME", "END", "PAGEUP", "PAGEDOWN",
}

// aliases maps names reported by keyboard hooks and typed by users to
// canonical names. Keys are already upper-cased.
var aliases = map[string]string{
	" ":           "SPACE",
	"SPACEBAR":    "SPACE",
	"UP ARROW":    "UP",
	"DOWN ARROW":  "DOWN",
	"LEFT ARROW":  "LEFT",
	"RIGHT ARROW": "RIGHT",
	"L-SUPER":     "WIN",
	"R-SUPER":     "WIN",
	"ESCAPE":      "ESC",
	"RETURN":      "ENTER",
	"CONTROL":     "CTRL",
	"LCTRL":       "CTRL",
	"RCTRL":       "CTRL",
	"LEFT CTRL":   "CTRL",
	"RIGHT CTRL":  "CTRL",
	"LSHIFT":      "SHIFT",
	"RSHIFT":      "SHIFT",
	"LEFT SHIFT":  "SHIFT",
	"RIGHT SHIFT": "SHIFT",
	"LALT":        "ALT",
	"RALT":        "ALT",
	"ALT GR":      "ALT",
	"OPTION":      "ALT",
	"CMD":         "WIN",
	"COMMAND":     "WIN",
	"META":        "WIN",
	"SUPER":       "WIN",
	"WINDOWS":     "WIN",
	"LCMD":        "WIN",
	"RCMD":        "WIN",
	"CAPS LOCK":   "CAPS",
	"CAPSLOCK":    "CAPS",
	"BACK":        "BACKSPACE",
	"DEL":         "DELETE",
	"INS":         "INSERT",
	"PAGE UP":     "PAGEUP",
	"PAGE DOWN":   "PAGEDOWN",
	"PGUP":        "PAGEUP",
	"PGDN":        "PAGEDOWN",
	"GRAVE":       "`",
	"MINUS":       "-",
	"EQUAL":       "=",
	"COMMA":       ",",
	"PERIOD":      ".",
	"SLASH":       "/",
	"BACKSLASH":   "\\",
	"SEMICOLON":   ";",
	"QUOTE":       "'",
}

var (
	upper = cases.Upper(language.Und)
	known = func() map[string]struct{} {
		m := make(map[string]struct{}, len(Names))
		for _, n := range Names {
			m[n] = struct{}{}
		}
		return m
	}()
)

// Normalize returns the canonical form of a key name. Names outside the
// vocabulary are upper-cased and returned as is, so keys the hook reports
// but the vocabulary does not list can still be bound. It returns "" for
// blank input.
func Normalize(name string) string {
	if name == " " {
		return "SPACE"
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	n := upper.String(name)
	if canon, ok := aliases[n]; ok {
		return canon
	}
	return n
}

// Known reports whether the normalized name is in the vocabulary.
func Known(name string) bool {
	_, ok := known[Normalize(name)]
	return ok
}
