package table

import (
	"fmt"

	"github.com/valmap/valmap/value"
)

// DuplicateKeyError is returned by BuildIndex when the key sequence
// contains a repeated key. Construction must fail; overwriting silently
// would make the mapping order-dependent.
type DuplicateKeyError struct {
	Key  value.Value
	Slot int // slot of the second occurrence
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %s at slot %d", e.Key, e.Slot)
}

// Index maps a key to its value slot in the table.
// The zero value is not usable; build one with BuildIndex.
type Index struct {
	pos map[string]int
}

// BuildIndex iterates the table once and builds the key hash index.
// It fails with DuplicateKeyError on the first repeated key, regardless
// of whether the repeated keys map to equal values.
func BuildIndex(t *Table) (*Index, error) {
	pos := make(map[string]int, t.Len())
	for i, k := range t.Keys() {
		hk := k.Key()
		if _, ok := pos[hk]; ok {
			return nil, &DuplicateKeyError{Key: k, Slot: i}
		}
		pos[hk] = i
	}
	return &Index{pos: pos}, nil
}

// Lookup returns the value slot for key.
func (idx *Index) Lookup(key value.Value) (int, bool) {
	slot, ok := idx.pos[key.Key()]
	return slot, ok
}

// Len returns the number of indexed keys.
func (idx *Index) Len() int { return len(idx.pos) }
