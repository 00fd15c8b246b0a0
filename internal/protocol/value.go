package protocol

import (
	"strconv"
)

// ValueKind tags the payload carried by a Value.
type ValueKind uint8

const (
	KindInt ValueKind = iota + 1
	KindFloat
	KindRaw
)

// Value is a response payload: an integer, a float reading, or raw text.
type Value struct {
	Kind  ValueKind
	Int   int
	Float float64
	Raw   string
}

// IntValue creates an integer response value.
func IntValue(v int) Value {
	return Value{Kind: KindInt, Int: v}
}

// FloatValue creates a float response value.
func FloatValue(v float64) Value {
	return Value{Kind: KindFloat, Float: v}
}

// RawValue creates a value written to the wire without framing.
func RawValue(s string) Value {
	return Value{Kind: KindRaw, Raw: s}
}

// Format renders the value the way it appears between the parentheses of a response.
// Floats use six significant digits, trailing zeros trimmed.
func (v Value) Format() string {
	switch v.Kind {
	case KindInt:
		return strconv.Itoa(v.Int)
	case KindFloat:
		return strconv.FormatFloat(v.Float, 'g', 6, 64)
	case KindRaw:
		return v.Raw
	default:
		return ""
	}
}

// AsInt returns the value as an integer.
func (v Value) AsInt() (int, error) {
	if v.Kind != KindInt {
		return 0, ErrValueKind
	}
	return v.Int, nil
}

// AsFloat returns the value as a float. Integer values are widened.
func (v Value) AsFloat() (float64, error) {
	switch v.Kind {
	case KindFloat:
		return v.Float, nil
	case KindInt:
		return float64(v.Int), nil
	default:
		return 0, ErrValueKind
	}
}

func parseValue(raw string) Value {
	if n, err := strconv.Atoi(raw); err == nil {
		return IntValue(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return FloatValue(f)
	}
	return RawValue(raw)
}
