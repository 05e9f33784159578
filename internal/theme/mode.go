// Package theme applies accessibility filters and color overrides to a page.
package theme

import (
	"fmt"
	"strings"
)

// Mode is an accessibility preset. Exactly one is active at a time.
type Mode int

const (
	Normal Mode = iota
	HighContrast
	DarkMode
	Grayscale
	Protanopia
	Deuteranopia
	Tritanopia

	modeCount
)

var modeNames = [...]string{
	Normal:       "NORMAL",
	HighContrast: "HIGH_CONTRAST",
	DarkMode:     "DARK_MODE",
	Grayscale:    "GRAYSCALE",
	Protanopia:   "PROTANOPIA",
	Deuteranopia: "DEUTERANOPIA",
	Tritanopia:   "TRITANOPIA",
}

var modeFilters = [...]string{
	Normal:       "none",
	HighContrast: "contrast(1.5)",
	DarkMode:     "invert(1) hue-rotate(180deg)",
	Grayscale:    "grayscale(1)",
	Protanopia:   "sepia(0.5) saturate(2)",
	Deuteranopia: "sepia(0.4) hue-rotate(-20deg) saturate(1.6)",
	Tritanopia:   "sepia(0.3) hue-rotate(40deg) saturate(1.4)",
}

// Both tables must cover every mode; a new mode without entries fails to compile.
var (
	_ [modeCount]string = modeNames
	_ [modeCount]string = modeFilters
)

// Modes lists every mode in declaration order.
func Modes() []Mode {
	out := make([]Mode, 0, modeCount)
	for m := Normal; m < modeCount; m++ {
		out = append(out, m)
	}
	return out
}

func (m Mode) String() string {
	if !m.Valid() {
		return fmt.Sprintf("Mode(%d)", int(m))
	}
	return modeNames[m]
}

// Valid reports whether m is a declared mode.
func (m Mode) Valid() bool {
	return m >= Normal && m < modeCount
}

// Filter returns the CSS filter expression for m. Unknown values map to "none".
func (m Mode) Filter() string {
	if !m.Valid() {
		return modeFilters[Normal]
	}
	return modeFilters[m]
}

// ParseMode accepts the canonical names case-insensitively, with - or _.
func ParseMode(s string) (Mode, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for m, name := range modeNames {
		if name == norm {
			return Mode(m), nil
		}
	}
	return Normal, fmt.Errorf("unknown accessibility mode %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Mode) UnmarshalText(b []byte) error {
	parsed, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
