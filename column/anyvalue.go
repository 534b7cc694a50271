package column

import (
	"cmp"
	"fmt"
	"math"
	"strconv"
)

// ValueKind tags the variant held by an AnyValue.
type ValueKind uint8

const (
	NullValue ValueKind = iota
	BooleanValue
	IntValue
	UintValue
	FloatValue
	Utf8Value
	ListValue
)

// AnyValue is the logical value stored at one row of a column.
// Int, Uint and Float are the numeric variants.
type AnyValue struct {
	kind ValueKind
	b    bool
	i    int64
	u    uint64
	f    float64
	s    string
	list *Column
}

func Null() AnyValue               { return AnyValue{} }
func Bool(v bool) AnyValue         { return AnyValue{kind: BooleanValue, b: v} }
func Int(v int64) AnyValue         { return AnyValue{kind: IntValue, i: v} }
func Uint(v uint64) AnyValue       { return AnyValue{kind: UintValue, u: v} }
func Float(v float64) AnyValue     { return AnyValue{kind: FloatValue, f: v} }
func Str(v string) AnyValue        { return AnyValue{kind: Utf8Value, s: v} }
func ListOf(c *Column) AnyValue    { return AnyValue{kind: ListValue, list: c} }
func (v AnyValue) Kind() ValueKind { return v.kind }
func (v AnyValue) IsNull() bool    { return v.kind == NullValue }
func (v AnyValue) IsNumeric() bool { return v.kind >= IntValue && v.kind <= FloatValue }
func (v AnyValue) Bool() bool      { return v.b }
func (v AnyValue) Int() int64      { return v.i }
func (v AnyValue) Uint() uint64    { return v.u }
func (v AnyValue) Float() float64  { return v.f }
func (v AnyValue) Str() string     { return v.s }
func (v AnyValue) List() *Column   { return v.list }

// Float64 converts a numeric value to float64. ok is false for non-numeric
// values, nulls included.
func (v AnyValue) Float64() (f float64, ok bool) {
	switch v.kind {
	case IntValue:
		return float64(v.i), true
	case UintValue:
		return float64(v.u), true
	case FloatValue:
		return v.f, true
	default:
		return 0, false
	}
}

// nanKey is the map key shared by every NaN.
type nanKey struct{}

// Canonical folds float values that compare equal under Compare onto one
// representation: every NaN becomes the same NaN and -0 becomes +0.
func (v AnyValue) Canonical() AnyValue {
	if v.kind != FloatValue {
		return v
	}
	switch {
	case math.IsNaN(v.f):
		return Float(math.NaN())
	case v.f == 0:
		return Float(0)
	default:
		return v
	}
}

// Key returns a comparable representation usable as a map key. All NaNs share
// one key, as do -0 and +0. List values have no key.
func (v AnyValue) Key() (any, bool) {
	switch v.kind {
	case NullValue:
		return nil, true
	case BooleanValue:
		return v.b, true
	case IntValue:
		return v.i, true
	case UintValue:
		return v.u, true
	case FloatValue:
		if math.IsNaN(v.f) {
			return nanKey{}, true
		}
		return v.Canonical().f, true
	case Utf8Value:
		return v.s, true
	default:
		return nil, false
	}
}

// Compare orders two values of the same kind. Null sorts before any value.
// Values of different non-null kinds compare by kind tag.
func Compare(a, b AnyValue) int {
	if a.kind != b.kind {
		switch {
		case a.kind == NullValue:
			return -1
		case b.kind == NullValue:
			return 1
		}
		if fa, ok := a.Float64(); ok {
			if fb, ok := b.Float64(); ok {
				return cmp.Compare(fa, fb)
			}
		}
		return cmp.Compare(a.kind, b.kind)
	}
	switch a.kind {
	case BooleanValue:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		default:
			return 1
		}
	case IntValue:
		return cmp.Compare(a.i, b.i)
	case UintValue:
		return cmp.Compare(a.u, b.u)
	case FloatValue:
		return cmp.Compare(a.f, b.f)
	case Utf8Value:
		return cmp.Compare(a.s, b.s)
	case ListValue:
		return cmp.Compare(a.list.Len(), b.list.Len())
	default:
		return 0
	}
}

func (v AnyValue) String() string {
	switch v.kind {
	case NullValue:
		return "null"
	case BooleanValue:
		return strconv.FormatBool(v.b)
	case IntValue:
		return strconv.FormatInt(v.i, 10)
	case UintValue:
		return strconv.FormatUint(v.u, 10)
	case FloatValue:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case Utf8Value:
		return strconv.Quote(v.s)
	case ListValue:
		return fmt.Sprintf("list[%d]", v.list.Len())
	default:
		return "?"
	}
}
