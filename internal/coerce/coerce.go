// Package coerce turns matched numeric text into typed record values.
package coerce

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value.
type Kind int

const (
	// KindString holds text that did not parse as a number.
	KindString Kind = iota
	// KindInt holds a whole number.
	KindInt
	// KindFloat holds a number written with a decimal point.
	KindFloat
)

// String returns the kind's short name.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	default:
		return "str"
	}
}

// Value is an integer, a float or the original text.
type Value struct {
	Kind  Kind
	Int   int64
	Float float64
	Text  string
}

// Coerce parses text as a float when it contains a ".", as an integer
// otherwise. Text that fails to parse, or overflows, is kept as a string.
func Coerce(text string) Value {
	if strings.Contains(text, ".") {
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return Float(f)
		}
		return String(text)
	}
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Int(i)
	}
	return String(text)
}

// Int wraps an integer.
func Int(i int64) Value { return Value{Kind: KindInt, Int: i} }

// Float wraps a float.
func Float(f float64) Value { return Value{Kind: KindFloat, Float: f} }

// String wraps raw text.
func String(s string) Value { return Value{Kind: KindString, Text: s} }

// Degraded reports whether the value fell back to text.
func (v Value) Degraded() bool { return v.Kind == KindString }

// Interface returns the value as int64, float64 or string.
func (v Value) Interface() any {
	switch v.Kind {
	case KindInt:
		return v.Int
	case KindFloat:
		return v.Float
	default:
		return v.Text
	}
}

// String formats the value. Floats always carry a decimal point so 12.0
// stays distinguishable from the integer 12.
func (v Value) String() string {
	switch v.Kind {
	case KindInt:
		return strconv.FormatInt(v.Int, 10)
	case KindFloat:
		s := strconv.FormatFloat(v.Float, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eE") {
			s += ".0"
		}
		return s
	default:
		return v.Text
	}
}

// MarshalJSON encodes numbers as JSON numbers and text as a JSON string.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Kind == KindString {
		return json.Marshal(v.Text)
	}
	return []byte(v.String()), nil
}

// MarshalYAML encodes the value as its native scalar.
func (v Value) MarshalYAML() (any, error) {
	return v.Interface(), nil
}
