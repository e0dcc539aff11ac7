// Package orient encodes a fixture's hinge side and swing direction as a
// 4-bit flag set.
package orient

import (
	"errors"
	"fmt"
	"strings"
)

// Flags is the orientation bit set. A valid value has exactly one of
// Left/Right and exactly one of SwingOut/SwingIn.
type Flags uint8

const (
	Left     Flags = 1 << iota // hinge on the left
	Right                      // hinge on the right
	SwingOut                   // opens away from the building
	SwingIn                    // opens into the building
)

const (
	sideMask  = Left | Right
	swingMask = SwingOut | SwingIn
)

// ErrInvalidSpec is returned when an orientation string cannot be decoded.
var ErrInvalidSpec = errors.New("invalid orientation spec")

var tokens = map[string]Flags{
	"left":  Left,
	"right": Right,
	"out":   SwingOut,
	"in":    SwingIn,
}

// Parse decodes a catalog orientation string such as "left|out".
func Parse(spec string) (Flags, error) {
	parts := strings.Split(spec, "|")
	if len(parts) != 2 {
		return 0, fmt.Errorf("%w: %q: want two tokens separated by '|'", ErrInvalidSpec, spec)
	}
	var f Flags
	for _, p := range parts {
		bit, ok := tokens[strings.ToLower(strings.TrimSpace(p))]
		if !ok {
			return 0, fmt.Errorf("%w: %q: unknown token %q", ErrInvalidSpec, spec, p)
		}
		f |= bit
	}
	if !f.Valid() {
		return 0, fmt.Errorf("%w: %q: need one of left/right and one of in/out", ErrInvalidSpec, spec)
	}
	return f, nil
}

// MustParse is like Parse but panics on error. Intended for literals.
func MustParse(spec string) Flags {
	f, err := Parse(spec)
	if err != nil {
		panic(err)
	}
	return f
}

// Mirror swaps the hinge side and leaves the swing untouched.
func Mirror(f Flags) Flags {
	return f ^ sideMask
}

// Valid reports whether exactly one side bit and one swing bit are set.
func (f Flags) Valid() bool {
	side, swing := f&sideMask, f&swingMask
	return (side == Left || side == Right) && (swing == SwingOut || swing == SwingIn) && f&^(sideMask|swingMask) == 0
}

// IsLeft reports whether the hinge is on the left.
func (f Flags) IsLeft() bool { return f&Left != 0 }

// SwingsOut reports whether the fixture opens outward.
func (f Flags) SwingsOut() bool { return f&SwingOut != 0 }

// String returns the canonical catalog form, e.g. "right|in".
func (f Flags) String() string {
	if !f.Valid() {
		return fmt.Sprintf("Flags(%d)", uint8(f))
	}
	side := "right"
	if f.IsLeft() {
		side = "left"
	}
	swing := "in"
	if f.SwingsOut() {
		swing = "out"
	}
	return side + "|" + swing
}
