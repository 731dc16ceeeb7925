package value

import (
	"math"
	"strconv"
	"strings"
	"unique"
)

// Kind identifies the concrete type stored in a Value.
type Kind uint8

const (
	// KindInvalid represents an invalid kind.
	KindInvalid Kind = iota
	// KindInt32 represents a signed 32-bit integer.
	KindInt32
	// KindUint32 represents an unsigned 32-bit integer.
	KindUint32
	// KindUint64 represents an unsigned 64-bit integer.
	KindUint64
	// KindFloat32 represents a 32-bit float.
	KindFloat32
	// KindFloat64 represents a 64-bit float.
	KindFloat64
	// KindText represents a text value.
	KindText
	// KindVector represents a vector of scalars sharing one element kind.
	KindVector
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "Int32"
	case KindUint32:
		return "Uint32"
	case KindUint64:
		return "Uint64"
	case KindFloat32:
		return "Float32"
	case KindFloat64:
		return "Float64"
	case KindText:
		return "Text"
	case KindVector:
		return "Vector"
	default:
		return "Invalid"
	}
}

// IsScalar reports whether k is one of the supported scalar kinds.
func (k Kind) IsScalar() bool {
	switch k {
	case KindInt32, KindUint32, KindUint64, KindFloat32, KindFloat64, KindText:
		return true
	default:
		return false
	}
}

// Value is a typed scalar or vector used for mapping keys and values.
//
// The representation avoids reflection and fmt-based stringification on
// the lookup hot path. Numeric payloads live in fixed fields selected by
// Kind; vectors carry their element kind so an empty vector is still
// fully typed.
type Value struct {
	Kind Kind
	Elem Kind // element kind when Kind == KindVector
	I64  int64
	U64  uint64
	F64  float64
	s    unique.Handle[string] // private interned text
	Vec  []Value
}

// Int32 returns an int32 Value.
func Int32(v int32) Value { return Value{Kind: KindInt32, I64: int64(v)} }

// Uint32 returns a uint32 Value.
func Uint32(v uint32) Value { return Value{Kind: KindUint32, U64: uint64(v)} }

// Uint64 returns a uint64 Value.
func Uint64(v uint64) Value { return Value{Kind: KindUint64, U64: v} }

// Float32 returns a float32 Value.
func Float32(v float32) Value { return Value{Kind: KindFloat32, F64: float64(v)} }

// Float64 returns a float64 Value.
func Float64(v float64) Value { return Value{Kind: KindFloat64, F64: v} }

// Text returns a text Value.
func Text(v string) Value { return Value{Kind: KindText, s: unique.Make(v)} }

// Vector returns a vector Value over elements of kind elem.
// Elements must all be scalars of that kind; this is not re-checked here.
func Vector(elem Kind, elems []Value) Value {
	return Value{Kind: KindVector, Elem: elem, Vec: elems}
}

// AsInt32 returns the int32 payload if Kind is KindInt32.
func (v Value) AsInt32() (int32, bool) {
	if v.Kind != KindInt32 {
		return 0, false
	}
	return int32(v.I64), true
}

// AsUint32 returns the uint32 payload if Kind is KindUint32.
func (v Value) AsUint32() (uint32, bool) {
	if v.Kind != KindUint32 {
		return 0, false
	}
	return uint32(v.U64), true
}

// AsUint64 returns the uint64 payload if Kind is KindUint64.
func (v Value) AsUint64() (uint64, bool) {
	if v.Kind != KindUint64 {
		return 0, false
	}
	return v.U64, true
}

// AsFloat32 returns the float32 payload if Kind is KindFloat32.
func (v Value) AsFloat32() (float32, bool) {
	if v.Kind != KindFloat32 {
		return 0, false
	}
	return float32(v.F64), true
}

// AsFloat64 returns the float64 payload if Kind is KindFloat64.
func (v Value) AsFloat64() (float64, bool) {
	if v.Kind != KindFloat64 {
		return 0, false
	}
	return v.F64, true
}

// AsText returns the text payload if Kind is KindText.
func (v Value) AsText() (string, bool) {
	if v.Kind != KindText {
		return "", false
	}
	return v.s.Value(), true
}

// AsVector returns the element slice if Kind is KindVector.
func (v Value) AsVector() ([]Value, bool) {
	if v.Kind != KindVector {
		return nil, false
	}
	return v.Vec, true
}

// TextValue returns the text payload, or "" for non-text values.
func (v Value) TextValue() string {
	if v.Kind == KindText {
		return v.s.Value()
	}
	return ""
}

// Key returns a stable string representation for use as a hash-map key.
//
// Floats are keyed by bit pattern, so NaN keys are legal and self-equal.
// Must remain stable across versions: persisted tables rebuild their
// indexes through it.
func (v Value) Key() string {
	switch v.Kind {
	case KindInt32:
		return "i:" + strconv.FormatInt(v.I64, 10)
	case KindUint32, KindUint64:
		return "u:" + strconv.FormatUint(v.U64, 10)
	case KindFloat32, KindFloat64:
		return "f:" + strconv.FormatUint(math.Float64bits(v.F64), 16)
	case KindText:
		return "s:" + v.s.Value()
	case KindVector:
		if len(v.Vec) == 0 {
			return "v:"
		}
		parts := make([]string, len(v.Vec))
		for i := range v.Vec {
			parts[i] = v.Vec[i].Key()
		}
		return "v:" + strings.Join(parts, "\x1f")
	default:
		return "invalid"
	}
}

// Equal reports deep equality: same kind, same payload, element-wise for
// vectors. Floats compare by bit pattern.
func Equal(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt32:
		return a.I64 == b.I64
	case KindUint32, KindUint64:
		return a.U64 == b.U64
	case KindFloat32, KindFloat64:
		return math.Float64bits(a.F64) == math.Float64bits(b.F64)
	case KindText:
		return a.s == b.s
	case KindVector:
		if a.Elem != b.Elem || len(a.Vec) != len(b.Vec) {
			return false
		}
		for i := range a.Vec {
			if !Equal(a.Vec[i], b.Vec[i]) {
				return false
			}
		}
		return true
	default:
		return a.Kind == b.Kind
	}
}

// Default returns the miss-substitute for a scalar kind: numeric zero or
// empty text. Vector defaults are built with EmptyVector since they need
// an element kind.
func Default(kind Kind) Value {
	switch kind {
	case KindText:
		return Text("")
	default:
		return Value{Kind: kind}
	}
}

// EmptyVector returns a zero-length vector Value typed over elem.
func EmptyVector(elem Kind) Value {
	return Value{Kind: KindVector, Elem: elem}
}

// String returns a human-readable representation, for logs and errors.
func (v Value) String() string {
	switch v.Kind {
	case KindInt32:
		return strconv.FormatInt(v.I64, 10)
	case KindUint32, KindUint64:
		return strconv.FormatUint(v.U64, 10)
	case KindFloat32, KindFloat64:
		return strconv.FormatFloat(v.F64, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.s.Value())
	case KindVector:
		parts := make([]string, len(v.Vec))
		for i := range v.Vec {
			parts[i] = v.Vec[i].String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}
