// Package schema computes the output column shape of a mapping transform
// from schema information alone, before any row is read. Pipelines use
// it to validate composition ahead of execution.
package schema

import (
	"fmt"
	"math"

	"github.com/valmap/valmap/value"
)

// Vectorness describes the vector shape of an output column.
type Vectorness uint8

const (
	// Scalar is a single value per row.
	Scalar Vectorness = iota
	// FixedVector is a vector with the same length on every row.
	// No mapping rule produces it today; it is reserved so downstream
	// shape consumers can switch over the full vectorness domain.
	FixedVector
	// VariableVector is a vector whose length may differ per row.
	VariableVector
)

// String returns the string representation of the Vectorness.
func (v Vectorness) String() string {
	switch v {
	case Scalar:
		return "Scalar"
	case FixedVector:
		return "FixedVector"
	case VariableVector:
		return "VariableVector"
	default:
		return "Unknown"
	}
}

// Uint32CodeLimit is the largest distinct-value count representable by
// uint32 ordinal codes. Beyond it, codes widen to uint64.
const Uint32CodeLimit = math.MaxUint32

// OutputShape describes one output column of the transform.
type OutputShape struct {
	ItemKind   value.Kind
	Vectorness Vectorness
	FixedSize  int // element count when Vectorness == FixedVector

	// IsKey is set in key-type mode: the column holds dense ordinal
	// codes and exposes the distinct-value sequence as metadata.
	IsKey    bool
	KeyCount int
}

// UnsupportedShapeError reports an input/value shape pairing the
// transform cannot produce.
type UnsupportedShapeError struct {
	InputVector bool
	ValueVector bool
}

func (e *UnsupportedShapeError) Error() string {
	return fmt.Sprintf("unsupported shape combination: input vector=%t, value vector=%t", e.InputVector, e.ValueVector)
}

// CodeKind returns the ordinal code kind for a distinct-value count:
// uint32 unless the count exceeds Uint32CodeLimit.
func CodeKind(distinctCount int) value.Kind {
	if uint64(distinctCount) > uint64(Uint32CodeLimit) {
		return value.KindUint64
	}
	return value.KindUint32
}

// Resolve computes the output shape for a bound column.
//
//   - scalar input, scalar value: scalar output.
//   - scalar input, vector value: variable vector (length depends on the
//     matched key).
//   - vector input, scalar value: variable vector (length follows the
//     input, which may itself vary per row).
//   - vector input, vector value: rejected.
//
// In key-type mode the item kind becomes the ordinal code kind and the
// distinct-value count is exposed as KeyCount.
func Resolve(inputVector bool, valueItemKind value.Kind, valueVector, keyMode bool, distinctCount int) (OutputShape, error) {
	if inputVector && valueVector {
		return OutputShape{}, &UnsupportedShapeError{InputVector: true, ValueVector: true}
	}

	shape := OutputShape{ItemKind: valueItemKind, Vectorness: Scalar}
	if inputVector || valueVector {
		shape.Vectorness = VariableVector
	}

	if keyMode {
		shape.ItemKind = CodeKind(distinctCount)
		shape.IsKey = true
		shape.KeyCount = distinctCount
	}
	return shape, nil
}
