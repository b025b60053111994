package table

import (
	"math"
	"strconv"
	"time"
)

// Kind is the dynamic type of a cell.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindFloat
	KindInt
	KindTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// Value is a single table cell. The zero Value is null.
type Value struct {
	kind Kind
	s    string
	f    float64
	i    int64
	t    time.Time
	b    bool
}

// Null returns a missing value.
func Null() Value { return Value{} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// Float returns a float value; NaN is treated as missing.
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	return Value{kind: KindFloat, f: f}
}

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Time returns a date-time value.
func Time(t time.Time) Value { return Value{kind: KindTime, t: t} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

// Text returns the raw text and whether v holds text.
func (v Value) Text() (string, bool) { return v.s, v.kind == KindText }

// Time returns the time and whether v holds a time.
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindTime }

// Bool returns the boolean and whether v holds one.
func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

// Int returns the integer and whether v holds one.
func (v Value) Int() (int64, bool) { return v.i, v.kind == KindInt }

// Float returns v as a float64 when it is numeric (float, int or bool).
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindFloat:
		return v.f, true
	case KindInt:
		return float64(v.i), true
	case KindBool:
		if v.b {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// Equal reports whether two values are identical in kind and content.
// Numeric kinds compare by value, so Int(3) equals Float(3).
func (v Value) Equal(o Value) bool {
	if v.isNumeric() && o.isNumeric() {
		a, _ := v.Float()
		b, _ := o.Float()
		return a == b
	}
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindText:
		return v.s == o.s
	case KindTime:
		return v.t.Equal(o.t)
	default:
		return false
	}
}

func (v Value) isNumeric() bool {
	return v.kind == KindFloat || v.kind == KindInt || v.kind == KindBool
}

// Compare orders values: nulls first, then numbers, times, and text.
// Within a kind the natural ascending order applies.
func Compare(a, b Value) int {
	ra, rb := a.rank(), b.rank()
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch {
	case a.isNumeric():
		x, _ := a.Float()
		y, _ := b.Float()
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	case a.kind == KindTime:
		return a.t.Compare(b.t)
	case a.kind == KindText:
		switch {
		case a.s < b.s:
			return -1
		case a.s > b.s:
			return 1
		}
	}
	return 0
}

func (v Value) rank() int {
	switch v.kind {
	case KindNull:
		return 0
	case KindFloat, KindInt, KindBool:
		return 1
	case KindTime:
		return 2
	default:
		return 3
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Key returns a string that is identical for Equal values, for use as a map key.
func (v Value) Key() string {
	switch v.kind {
	case KindNull:
		return "n:"
	case KindFloat, KindInt, KindBool:
		f, _ := v.Float()
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	case KindTime:
		return "t:" + strconv.FormatInt(v.t.UnixNano(), 10)
	default:
		return "s:" + v.s
	}
}

// String renders the value for display and CSV output.
// Floats use the shortest round-trip form with a trailing ".0" when integral,
// booleans render as True/False.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindText:
		return v.s
	case KindFloat:
		return FormatFloat(v.f)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindTime:
		return v.t.Format("2006-01-02 15:04:05")
	case KindBool:
		if v.b {
			return "True"
		}
		return "False"
	default:
		return ""
	}
}

// FormatFloat renders f in shortest round-trip form, keeping a ".0" on integral values.
func FormatFloat(f float64) string {
	if math.IsInf(f, 1) {
		return "inf"
	}
	if math.IsInf(f, -1) {
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	for _, c := range s {
		if c == '.' {
			return s
		}
	}
	return s + ".0"
}
