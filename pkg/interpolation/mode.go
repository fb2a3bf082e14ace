package interpolation

import (
	"fmt"
	"strings"
)

// Mode selects the interpolation kernel.
type Mode int

const (
	Nearest Mode = iota
	Linear
	Cubic
)

var modeNames = []string{"nearest", "linear", "cubic"}

func (m Mode) String() string {
	if m >= 0 && int(m) < len(modeNames) {
		return modeNames[m]
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Valid reports whether m names a known kernel.
func (m Mode) Valid() bool {
	return m >= Nearest && m <= Cubic
}

// ParseMode converts "nearest", "linear" or "cubic" into a Mode.
func ParseMode(s string) (Mode, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range modeNames {
		if n == name {
			return Mode(i), nil
		}
	}
	return 0, fmt.Errorf("%w: interpolation %q", ErrUnsupported, s)
}

func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: interpolation %d", ErrUnsupported, int(m))
	}
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
