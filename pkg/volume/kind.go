package volume

import (
	"fmt"
	"math"
	"strings"
)

// ScalarKind identifies the numeric type stored in a volume buffer.
type ScalarKind int

const (
	UnknownKind ScalarKind = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var kindNames = map[ScalarKind]string{
	Int8:    "int8",
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Float32: "float32",
	Float64: "float64",
}

// Kinds lists every supported scalar kind.
var Kinds = []ScalarKind{Int8, Uint8, Int16, Uint16, Int32, Uint32, Float32, Float64}

func (k ScalarKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ScalarKind(%d)", int(k))
}

// Size returns the width of one scalar in bytes, or 0 for an unknown kind.
func (k ScalarKind) Size() int {
	switch k {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	case Float64:
		return 8
	}
	return 0
}

// IsFloat reports whether values of this kind are stored unrounded.
func (k ScalarKind) IsFloat() bool {
	return k == Float32 || k == Float64
}

// Range returns the representable range of the kind. Float kinds report
// the full float64 range since their values are never clamped.
func (k ScalarKind) Range() (lo, hi float64) {
	switch k {
	case Int8:
		return math.MinInt8, math.MaxInt8
	case Uint8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint32:
		return 0, math.MaxUint32
	}
	return -math.MaxFloat64, math.MaxFloat64
}

// ParseScalarKind converts a kind name such as "uint16" into a ScalarKind.
func ParseScalarKind(s string) (ScalarKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for k, n := range kindNames {
		if n == name {
			return k, nil
		}
	}
	return UnknownKind, fmt.Errorf("unknown scalar kind %q", s)
}

// MarshalText lets scalar kinds appear by name in YAML headers and configs.
func (k ScalarKind) MarshalText() ([]byte, error) {
	if _, ok := kindNames[k]; !ok {
		return nil, fmt.Errorf("cannot marshal %v", k)
	}
	return []byte(k.String()), nil
}

func (k *ScalarKind) UnmarshalText(text []byte) error {
	parsed, err := ParseScalarKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Scalar is the set of Go types a volume buffer can hold.
type Scalar interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | float32 | float64
}

// KindOf returns the ScalarKind that corresponds to T.
func KindOf[T Scalar]() ScalarKind {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case float32:
		return Float32
	case float64:
		return Float64
	}
	return UnknownKind
}
