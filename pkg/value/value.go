// Package value implements the tagged-union Value type shared across
// silo's attribute encoding: a scalar cell plus the three vector forms
// that exist only transiently at the API boundary.
package value

import "fmt"

// Kind tags which variant a Value holds.
type Kind int

const (
	Null Kind = iota
	Int64Kind
	RealKind
	TextKind
	BlobKind
	IntVecKind
	RealVecKind
	TextVecKind
)

// Value is a tagged union over {Null, Int64, Real, Text, Blob, IntVec,
// RealVec, TextVec}. Only one field is meaningful, selected by Kind.
type Value struct {
	kind    Kind
	i64     int64
	real    float64
	text    string
	blob    []byte
	intVec  []int64
	realVec []float64
	textVec []string
}

func NewNull() Value               { return Value{kind: Null} }
func NewInt64(v int64) Value       { return Value{kind: Int64Kind, i64: v} }
func NewReal(v float64) Value      { return Value{kind: RealKind, real: v} }
func NewText(v string) Value       { return Value{kind: TextKind, text: v} }
func NewBlob(v []byte) Value       { return Value{kind: BlobKind, blob: v} }
func NewIntVec(v []int64) Value    { return Value{kind: IntVecKind, intVec: v} }
func NewRealVec(v []float64) Value { return Value{kind: RealVecKind, realVec: v} }
func NewTextVec(v []string) Value  { return Value{kind: TextVecKind, textVec: v} }

// String names a Kind for diagnostics (type-mismatch error messages).
func (k Kind) String() string {
	switch k {
	case Null:
		return "Null"
	case Int64Kind:
		return "Int64"
	case RealKind:
		return "Real"
	case TextKind:
		return "Text"
	case BlobKind:
		return "Blob"
	case IntVecKind:
		return "IntVec"
	case RealVecKind:
		return "RealVec"
	case TextVecKind:
		return "TextVec"
	default:
		return "Unknown"
	}
}

func (v Value) Kind() Kind  { return v.kind }
func (v Value) IsNull() bool { return v.kind == Null }

// Int64, Real, Text and Blob return the held scalar and whether the Value
// is actually of that kind. A Value never coerces between variants here;
// widening rules live in pkg/typecheck.
func (v Value) Int64() (int64, bool)      { return v.i64, v.kind == Int64Kind }
func (v Value) Real() (float64, bool)     { return v.real, v.kind == RealKind }
func (v Value) Text() (string, bool)      { return v.text, v.kind == TextKind }
func (v Value) Blob() ([]byte, bool)      { return v.blob, v.kind == BlobKind }
func (v Value) IntVec() ([]int64, bool)   { return v.intVec, v.kind == IntVecKind }
func (v Value) RealVec() ([]float64, bool) { return v.realVec, v.kind == RealVecKind }
func (v Value) TextVec() ([]string, bool) { return v.textVec, v.kind == TextVecKind }

// IsVector reports whether this Value is one of the three vector variants.
func (v Value) IsVector() bool {
	switch v.kind {
	case IntVecKind, RealVecKind, TextVecKind:
		return true
	default:
		return false
	}
}

// Any returns the value as an interface{} suitable for database/sql
// argument binding: exactly one concrete Go type per non-vector Kind.
func (v Value) Any() any {
	switch v.kind {
	case Null:
		return nil
	case Int64Kind:
		return v.i64
	case RealKind:
		return v.real
	case TextKind:
		return v.text
	case BlobKind:
		return v.blob
	default:
		panic(fmt.Sprintf("value: Any() called on vector kind %v", v.kind))
	}
}

// FromScan wraps a value produced by sql.Rows.Scan into Null, Int64, Real,
// Text or Blob depending on its dynamic type.
func FromScan(raw any) Value {
	switch t := raw.(type) {
	case nil:
		return NewNull()
	case int64:
		return NewInt64(t)
	case float64:
		return NewReal(t)
	case string:
		return NewText(t)
	case []byte:
		return NewBlob(t)
	default:
		return NewText(fmt.Sprintf("%v", t))
	}
}

// Equal compares two Values for the canonical equality predicate used by
// diff and round-trip tests: bit-exact for Int64/Text/Blob, numeric
// equality for Real.
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case Null:
		return true
	case Int64Kind:
		return a.i64 == b.i64
	case RealKind:
		return a.real == b.real
	case TextKind:
		return a.text == b.text
	case BlobKind:
		return string(a.blob) == string(b.blob)
	case IntVecKind:
		return equalSlice(a.intVec, b.intVec)
	case RealVecKind:
		return equalSlice(a.realVec, b.realVec)
	case TextVecKind:
		return equalSlice(a.textVec, b.textVec)
	}
	return false
}

func equalSlice[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// String renders a Value for diff lines and CLI output.
func (v Value) String() string {
	switch v.kind {
	case Null:
		return "NULL"
	case Int64Kind:
		return fmt.Sprintf("%d", v.i64)
	case RealKind:
		return fmt.Sprintf("%g", v.real)
	case TextKind:
		return v.text
	case BlobKind:
		return fmt.Sprintf("<blob:%dB>", len(v.blob))
	case IntVecKind:
		return fmt.Sprintf("%v", v.intVec)
	case RealVecKind:
		return fmt.Sprintf("%v", v.realVec)
	case TextVecKind:
		return fmt.Sprintf("%v", v.textVec)
	}
	return "?"
}
