// Package keymap maps characters and key combination strings to evdev
// keycodes for a US keyboard layout.
package keymap

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrInvalidCombo is wrapped by every combo parse failure
	ErrInvalidCombo = errors.New("invalid key combo")
	// ErrEmptyCombo is returned for an empty combination or an empty token
	ErrEmptyCombo = errors.New("empty key combo")
	// ErrUnknownModifier is returned for a modifier name that is not recognised
	ErrUnknownModifier = errors.New("unknown modifier")
	// ErrUnknownKey is returned when the final token of a combo names no key
	ErrUnknownKey = errors.New("unknown key")
)

// ComboSeparator splits the tokens of a combo string
const ComboSeparator = "+"

// KeyInfo is the keycode for a character and whether shift must be held
type KeyInfo struct {
	Code  uint32
	Shift bool
}

// Combo is a parsed key combination: modifiers pressed in order, then Key
type Combo struct {
	Modifiers []uint32
	Key       uint32
}

// CharToKey maps a character to its keycode and shift state
func CharToKey(r rune) (KeyInfo, bool) {
	switch {
	case r >= 'a' && r <= 'z':
		return KeyInfo{Code: letterCodes[r-'a']}, true
	case r >= 'A' && r <= 'Z':
		return KeyInfo{Code: letterCodes[r-'A'], Shift: true}, true
	case r >= '1' && r <= '9':
		return KeyInfo{Code: KEY_1 + uint32(r-'1')}, true
	case r == '0':
		return KeyInfo{Code: KEY_0}, true
	case r == ' ':
		return KeyInfo{Code: KEY_SPACE}, true
	case r == '\n':
		return KeyInfo{Code: KEY_ENTER}, true
	case r == '\t':
		return KeyInfo{Code: KEY_TAB}, true
	}
	info, ok := punctuation[r]
	return info, ok
}

// ParseCombo parses a combination such as "ctrl+v", "ctrl+shift+t" or
// "enter". Every token but the last is a modifier. The last token is either
// a single character, which adds shift when the character needs it, or a
// named key. Nothing is returned unless the whole combo parses.
func ParseCombo(spec string) (Combo, error) {
	if strings.TrimSpace(spec) == "" {
		return Combo{}, fmt.Errorf("%w: %w", ErrInvalidCombo, ErrEmptyCombo)
	}
	parts := strings.Split(spec, ComboSeparator)

	// "ctrl++" names the plus key itself
	if len(parts) >= 2 && parts[len(parts)-1] == "" && parts[len(parts)-2] == "" {
		parts = append(parts[:len(parts)-2], ComboSeparator)
	}

	var combo Combo
	for _, part := range parts[:len(parts)-1] {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			return Combo{}, fmt.Errorf("%w: %w in %q", ErrInvalidCombo, ErrEmptyCombo, spec)
		}
		code, ok := modifierNames[name]
		if !ok {
			return Combo{}, fmt.Errorf("%w: %w '%s'", ErrInvalidCombo, ErrUnknownModifier, name)
		}
		combo.Modifiers = append(combo.Modifiers, code)
	}

	last := parts[len(parts)-1]
	if last != " " {
		last = strings.TrimSpace(last)
	}
	if last == "" {
		return Combo{}, fmt.Errorf("%w: %w in %q", ErrInvalidCombo, ErrEmptyCombo, spec)
	}

	if runes := []rune(last); len(runes) == 1 {
		info, ok := CharToKey(runes[0])
		if !ok {
			return Combo{}, fmt.Errorf("%w: %w '%s'", ErrInvalidCombo, ErrUnknownKey, last)
		}
		if info.Shift && !slices.Contains(combo.Modifiers, KEY_LEFTSHIFT) {
			combo.Modifiers = append(combo.Modifiers, KEY_LEFTSHIFT)
		}
		combo.Key = info.Code
		return combo, nil
	}

	code, ok := namedKeys[strings.ToLower(last)]
	if !ok {
		return Combo{}, fmt.Errorf("%w: %w '%s'", ErrInvalidCombo, ErrUnknownKey, strings.ToLower(last))
	}
	combo.Key = code
	return combo, nil
}
