// Package constant defines the compile-time value representation produced by
// constant evaluation.
//
// A Value is immutable. The zero Value is Invalid, which is what every failed
// evaluation produces; Invalid propagates through arithmetic and has no
// truthiness.
package constant

import (
	"math"
	"strconv"
	"strings"
)

// Kind identifies the variant held by a Value.
type Kind int

const (
	KindInvalid Kind = iota
	KindInteger
	KindReal
	KindString
	KindAggregate
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindInteger:
		return "integer"
	case KindReal:
		return "real"
	case KindString:
		return "string"
	case KindAggregate:
		return "aggregate"
	default:
		return "?"
	}
}

// Value is a tagged union over the constant kinds.
type Value struct {
	kind  Kind
	i     int64
	r     float64
	s     string
	elems []Value
}

// Int returns an integer value.
func Int(v int64) Value { return Value{kind: KindInteger, i: v} }

// Real returns a real value. Non-finite inputs yield Invalid.
func Real(v float64) Value {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Value{}
	}
	return Value{kind: KindReal, r: v}
}

// Str returns a string value.
func Str(v string) Value { return Value{kind: KindString, s: v} }

// Bool returns the integer encoding of a boolean (1 or 0).
func Bool(v bool) Value {
	if v {
		return Int(1)
	}
	return Int(0)
}

// Agg returns an aggregate holding a copy of elems. If any element is
// Invalid the aggregate is Invalid too.
func Agg(elems ...Value) Value {
	cp := make([]Value, len(elems))
	for i, e := range elems {
		if e.Bad() {
			return Value{}
		}
		cp[i] = e
	}
	return Value{kind: KindAggregate, elems: cp}
}

// Kind reports the variant.
func (v Value) Kind() Kind { return v.kind }

// Bad reports whether v is Invalid.
func (v Value) Bad() bool { return v.kind == KindInvalid }

// IsNumeric reports whether v is an integer or a real.
func (v Value) IsNumeric() bool { return v.kind == KindInteger || v.kind == KindReal }

// AsInt returns the integer payload.
func (v Value) AsInt() (int64, bool) {
	if v.kind != KindInteger {
		return 0, false
	}
	return v.i, true
}

// AsReal returns the numeric payload widened to float64.
func (v Value) AsReal() (float64, bool) {
	switch v.kind {
	case KindInteger:
		return float64(v.i), true
	case KindReal:
		return v.r, true
	default:
		return 0, false
	}
}

// AsString returns the string payload.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// Len returns the number of aggregate elements, or -1 for other kinds.
func (v Value) Len() int {
	if v.kind != KindAggregate {
		return -1
	}
	return len(v.elems)
}

// Index returns element i of an aggregate, or Invalid when out of range.
func (v Value) Index(i int64) Value {
	if v.kind != KindAggregate || i < 0 || i >= int64(len(v.elems)) {
		return Value{}
	}
	return v.elems[i]
}

// Elements returns a copy of the aggregate elements.
func (v Value) Elements() []Value {
	if v.kind != KindAggregate {
		return nil
	}
	cp := make([]Value, len(v.elems))
	copy(cp, v.elems)
	return cp
}

// Truth reports the boolean interpretation of v. ok is false for Invalid:
// callers must treat that as an evaluation failure.
func (v Value) Truth() (truth bool, ok bool) {
	switch v.kind {
	case KindInteger:
		return v.i != 0, true
	case KindReal:
		return v.r != 0, true
	case KindString:
		return v.s != "", true
	case KindAggregate:
		return len(v.elems) != 0, true
	default:
		return false, false
	}
}

// Equal reports whether v and other denote the same constant. Integers and
// reals compare numerically. Invalid is never equal to anything.
func (v Value) Equal(other Value) bool {
	if v.Bad() || other.Bad() {
		return false
	}
	if v.IsNumeric() && other.IsNumeric() {
		if v.kind == KindInteger && other.kind == KindInteger {
			return v.i == other.i
		}
		a, _ := v.AsReal()
		b, _ := other.AsReal()
		return a == b
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.s == other.s
	case KindAggregate:
		if len(v.elems) != len(other.elems) {
			return false
		}
		for i := range v.elems {
			if !v.elems[i].Equal(other.elems[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Compare orders two numeric values or two strings. ok is false when the
// operands are not ordered against each other.
func (v Value) Compare(other Value) (cmp int, ok bool) {
	switch {
	case v.kind == KindInteger && other.kind == KindInteger:
		return compareOrdered(v.i, other.i), true
	case v.IsNumeric() && other.IsNumeric():
		a, _ := v.AsReal()
		b, _ := other.AsReal()
		return compareOrdered(a, b), true
	case v.kind == KindString && other.kind == KindString:
		return strings.Compare(v.s, other.s), true
	default:
		return 0, false
	}
}

func compareOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindInteger:
		return strconv.FormatInt(v.i, 10)
	case KindReal:
		return FormatReal(v.r)
	case KindString:
		return strconv.Quote(v.s)
	case KindAggregate:
		parts := make([]string, len(v.elems))
		for i, e := range v.elems {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "<invalid>"
	}
}

// FormatReal renders f so that it always reads back as a real literal.
func FormatReal(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
