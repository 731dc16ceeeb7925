package table

import (
	"github.com/valmap/valmap/value"
)

// OrdinalIndex assigns each distinct table value a dense 1-based code in
// first-occurrence order. Code 0 is reserved: it is never assigned to a
// real value and therefore unambiguously signals a missing key.
//
// The ordered distinct-value list is retained for reverse lookup and for
// the key metadata exposed to downstream consumers.
type OrdinalIndex struct {
	codes    map[string]uint64
	distinct []value.Value
}

// BuildOrdinalIndex iterates values in table order, assigning the next
// unused ordinal to each value not yet seen. Duplicate values share the
// code of their first occurrence. Values compare by deep equality.
func BuildOrdinalIndex(t *Table) *OrdinalIndex {
	idx := &OrdinalIndex{
		codes: make(map[string]uint64, t.Len()),
	}
	for _, v := range t.Values() {
		hk := v.Key()
		if _, ok := idx.codes[hk]; ok {
			continue
		}
		idx.distinct = append(idx.distinct, v)
		idx.codes[hk] = uint64(len(idx.distinct))
	}
	return idx
}

// Code returns the 1-based ordinal for v, or 0 if v is not a table value.
func (idx *OrdinalIndex) Code(v value.Value) uint64 {
	return idx.codes[v.Key()]
}

// Value returns the original value for a 1-based ordinal code.
func (idx *OrdinalIndex) Value(code uint64) (value.Value, bool) {
	if code == 0 || code > uint64(len(idx.distinct)) {
		return value.Value{}, false
	}
	return idx.distinct[code-1], true
}

// Count returns the number of distinct values.
func (idx *OrdinalIndex) Count() int { return len(idx.distinct) }

// Distinct returns the distinct values in first-occurrence order.
// Callers must not mutate the returned slice.
func (idx *OrdinalIndex) Distinct() []value.Value { return idx.distinct }
