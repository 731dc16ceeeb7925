package valmap

import (
	"errors"
	"fmt"

	"github.com/valmap/valmap/persist"
	"github.com/valmap/valmap/schema"
	"github.com/valmap/valmap/table"
)

var (
	// ErrEmptyTable is returned when construction is attempted with no
	// key/value pairs.
	ErrEmptyTable = errors.New("empty mapping table")
	// ErrFormat unifies persistence decode failures; see persist.ErrFormat.
	ErrFormat = persist.ErrFormat
	// ErrNotKeyMode is returned by reverse lookup when the transform was
	// not built in key-type mode.
	ErrNotKeyMode = errors.New("transform not in key-type mode")
)

// DuplicateKeyError reports a repeated key at construction time.
type DuplicateKeyError = table.DuplicateKeyError

// UnsupportedShapeError reports an input/value shape pairing the
// transform cannot produce.
type UnsupportedShapeError = schema.UnsupportedShapeError

// DuplicateOutputError reports two bindings writing the same output
// column.
type DuplicateOutputError struct {
	Output string
}

func (e *DuplicateOutputError) Error() string {
	return fmt.Sprintf("duplicate output column %q across bindings", e.Output)
}
