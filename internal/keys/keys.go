// Package keys maps keyboard chords to jar actions.
package keys

import (
	"strings"
)

type Action string

const (
	None         Action = ""
	Undo         Action = "undo"
	Redo         Action = "redo"
	ToggleSearch Action = "toggle-search"
)

// Binding ties a key, pressed together with ctrl or cmd, to an action.
type Binding struct {
	Key    string
	Action Action
	Help   string
}

var Bindings = []Binding{
	{Key: "z", Action: Undo, Help: "undo the last jar change"},
	{Key: "y", Action: Redo, Help: "redo the last undone change"},
	{Key: "k", Action: ToggleSearch, Help: "open or close fruit search"},
}

var modifiers = map[string]bool{
	"ctrl":    true,
	"control": true,
	"cmd":     true,
	"command": true,
	"meta":    true,
	"super":   true,
	"⌘":       true,
	"^":       true,
}

// Lookup resolves a chord such as "ctrl+z", "Cmd-Y", "^K" or "⌘z". Both the
// ctrl and cmd families trigger the same action, matching ctrlKey||metaKey.
func Lookup(chord string) (Action, bool) {
	mod, key, ok := split(strings.ToLower(strings.TrimSpace(chord)))
	if !ok || !modifiers[mod] {
		return None, false
	}
	for _, b := range Bindings {
		if b.Key == key {
			return b.Action, true
		}
	}
	return None, false
}

// LookupControl resolves a raw control byte as sent by a terminal for
// ctrl+<letter> (0x1a for ctrl+z).
func LookupControl(b byte) (Action, bool) {
	if b < 0x01 || b > 0x1a {
		return None, false
	}
	key := string(rune('a' + b - 1))
	for _, bd := range Bindings {
		if bd.Key == key {
			return bd.Action, true
		}
	}
	return None, false
}

func split(chord string) (mod, key string, ok bool) {
	for _, sep := range []string{"+", "-"} {
		if i := strings.LastIndex(chord, sep); i > 0 && i < len(chord)-1 {
			return strings.TrimSpace(chord[:i]), strings.TrimSpace(chord[i+1:]), true
		}
	}
	for _, prefix := range []string{"^", "⌘"} {
		if strings.HasPrefix(chord, prefix) && len(chord) > len(prefix) {
			return prefix, chord[len(prefix):], true
		}
	}
	return "", "", false
}
