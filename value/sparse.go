package value

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Sparse is a sparse vector input: a logical length plus explicitly set
// positions. Positions not set carry the implicit value, which is still a
// real key as far as mapping is concerned.
//
// The present-position set is a roaring bitmap so that large mostly-empty
// inputs stay cheap to represent and iterate in order.
type Sparse struct {
	length   int
	implicit Value
	present  *roaring.Bitmap
	vals     map[uint32]Value
}

// NewSparse creates a sparse vector of the given logical length whose
// unset positions hold implicit.
func NewSparse(length int, implicit Value) *Sparse {
	return &Sparse{
		length:   length,
		implicit: implicit,
		present:  roaring.New(),
		vals:     make(map[uint32]Value),
	}
}

// Len returns the logical length.
func (s *Sparse) Len() int { return s.length }

// Set records an explicit value at position i.
func (s *Sparse) Set(i int, v Value) error {
	if i < 0 || i >= s.length {
		return fmt.Errorf("sparse position %d out of range [0,%d)", i, s.length)
	}
	s.present.Add(uint32(i))
	s.vals[uint32(i)] = v
	return nil
}

// Get returns the value at position i, falling back to the implicit value
// for unset positions.
func (s *Sparse) Get(i int) Value {
	if s.present.Contains(uint32(i)) {
		return s.vals[uint32(i)]
	}
	return s.implicit
}

// Densify materializes the full element sequence in position order.
func (s *Sparse) Densify() []Value {
	out := make([]Value, s.length)
	for i := range out {
		out[i] = s.implicit
	}
	it := s.present.Iterator()
	for it.HasNext() {
		pos := it.Next()
		out[pos] = s.vals[pos]
	}
	return out
}

// Cardinality returns the number of explicitly set positions.
func (s *Sparse) Cardinality() int {
	return int(s.present.GetCardinality())
}
