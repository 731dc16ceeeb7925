// Package table holds the immutable key/value store of a mapping
// transform and the hash indexes built over it.
//
// A Table is built once, validated, and never mutated afterwards; the
// indexes derived from it are plain read-only maps, safe for concurrent
// lookups without locking.
package table

import (
	"fmt"

	"github.com/valmap/valmap/value"
)

// Table is the immutable key/value store. Keys are scalars of one kind;
// values are scalars of one kind or vectors over one scalar kind.
type Table struct {
	keys      []value.Value
	vals      []value.Value
	keyKind   value.Kind
	valKind   value.Kind // scalar item kind of the values
	valVector bool
}

// New validates and builds a Table from parallel key and value slices.
// It fails when the slices differ in length, when keys or values mix
// kinds, or when an unsupported kind is supplied. Duplicate keys are not
// checked here; BuildIndex rejects them.
func New(keys, vals []value.Value) (*Table, error) {
	if len(keys) != len(vals) {
		return nil, fmt.Errorf("key count %d does not match value count %d", len(keys), len(vals))
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty mapping table")
	}

	keyKind := keys[0].Kind
	if !keyKind.IsScalar() {
		return nil, fmt.Errorf("unsupported key kind %s", keyKind)
	}
	for i, k := range keys {
		if k.Kind != keyKind {
			return nil, fmt.Errorf("key %d has kind %s, want %s", i, k.Kind, keyKind)
		}
	}

	valVector := vals[0].Kind == value.KindVector
	valKind := vals[0].Kind
	if valVector {
		valKind = vals[0].Elem
	}
	if !valKind.IsScalar() {
		return nil, fmt.Errorf("unsupported value kind %s", valKind)
	}
	for i, v := range vals {
		if valVector {
			if v.Kind != value.KindVector || v.Elem != valKind {
				return nil, fmt.Errorf("value %d has kind %s, want vector of %s", i, v.Kind, valKind)
			}
			continue
		}
		if v.Kind != valKind {
			return nil, fmt.Errorf("value %d has kind %s, want %s", i, v.Kind, valKind)
		}
	}

	return &Table{
		keys:      keys,
		vals:      vals,
		keyKind:   keyKind,
		valKind:   valKind,
		valVector: valVector,
	}, nil
}

// Len returns the number of (key, value) pairs.
func (t *Table) Len() int { return len(t.keys) }

// KeyKind returns the scalar kind of the keys.
func (t *Table) KeyKind() value.Kind { return t.keyKind }

// ValueItemKind returns the scalar item kind of the values.
func (t *Table) ValueItemKind() value.Kind { return t.valKind }

// IsValueVector reports whether values are vector-valued.
func (t *Table) IsValueVector() bool { return t.valVector }

// Get returns the pair at slot i.
func (t *Table) Get(i int) (key, val value.Value) {
	return t.keys[i], t.vals[i]
}

// Keys returns the key slice. Callers must not mutate it.
func (t *Table) Keys() []value.Value { return t.keys }

// Values returns the value slice. Callers must not mutate it.
func (t *Table) Values() []value.Value { return t.vals }
