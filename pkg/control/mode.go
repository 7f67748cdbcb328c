package control

import (
	"fmt"
	"strings"
)

// Mode selects who issues resistance commands.
type Mode int32

const (
	// Manual: resistance is dispatched by the user.
	Manual Mode = iota
	// Auto: resistance is computed by the force feedback bridge.
	Auto
)

func (m Mode) String() string {
	switch m {
	case Manual:
		return "manual"
	case Auto:
		return "auto"
	default:
		return fmt.Sprintf("mode(%d)", int32(m))
	}
}

// ParseMode parses "manual" or "auto", ignoring case.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "manual":
		return Manual, nil
	case "auto":
		return Auto, nil
	}
	return Manual, fmt.Errorf("unknown mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if m != Manual && m != Auto {
		return nil, fmt.Errorf("unknown mode %d", int32(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	v, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
