package valmap

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/valmap/valmap/blobstore"
	"github.com/valmap/valmap/persist"
	"github.com/valmap/valmap/schema"
	"github.com/valmap/valmap/table"
	"github.com/valmap/valmap/value"
)

// Binding pairs an input column with the output column it is rewritten
// into.
type Binding = persist.Binding

// Supplier is an opaque sequence of (key, value) pairs used to build a
// transform from an external source. Next returns ok=false when the
// sequence is exhausted.
type Supplier interface {
	Next(ctx context.Context) (key, val value.Value, ok bool, err error)
}

// Transformer is a built value-mapping transform. After construction it
// is immutable and safe for concurrent lookups without locking.
type Transformer struct {
	tbl      *table.Table
	idx      *table.Index
	ord      *table.OrdinalIndex // key-type mode only
	bindings []Binding
	keyMode  bool
	codeKind value.Kind

	compression persist.Compression
	logger      *Logger
	metrics     MetricsCollector
}

// New builds a Transformer from parallel key and value slices.
// Duplicate keys and duplicate output columns fail construction; missing
// keys during later evaluation do not.
func New(keys, vals []value.Value, bindings []Binding, opts ...Option) (*Transformer, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	start := time.Now()
	t, err := build(keys, vals, bindings, o)
	o.metrics.RecordBuild(len(keys), time.Since(start), err)
	if err != nil {
		return nil, err
	}

	t.logger.WithKeyCount(t.tbl.Len()).Debug("transform built",
		"keyKind", t.tbl.KeyKind().String(),
		"valueKind", t.tbl.ValueItemKind().String(),
		"valueVector", t.tbl.IsValueVector(),
		"keyMode", t.keyMode,
	)
	return t, nil
}

func build(keys, vals []value.Value, bindings []Binding, o options) (*Transformer, error) {
	if len(keys) == 0 && len(vals) == 0 {
		return nil, ErrEmptyTable
	}
	if err := validateBindings(bindings); err != nil {
		return nil, err
	}

	tbl, err := table.New(keys, vals)
	if err != nil {
		return nil, err
	}
	idx, err := table.BuildIndex(tbl)
	if err != nil {
		return nil, err
	}

	t := &Transformer{
		tbl:         tbl,
		idx:         idx,
		bindings:    bindings,
		keyMode:     o.keyMode,
		compression: o.compression,
		logger:      o.logger,
		metrics:     o.metrics,
	}
	if o.keyMode {
		t.ord = table.BuildOrdinalIndex(tbl)
		t.codeKind = schema.CodeKind(t.ord.Count())
	}
	return t, nil
}

func validateBindings(bindings []Binding) error {
	seen := make(map[string]struct{}, len(bindings))
	for _, b := range bindings {
		if b.Input == "" || b.Output == "" {
			return fmt.Errorf("binding %q -> %q has an empty column name", b.Input, b.Output)
		}
		if _, ok := seen[b.Output]; ok {
			return &DuplicateOutputError{Output: b.Output}
		}
		seen[b.Output] = struct{}{}
	}
	return nil
}

// FromSupplier drains s and builds a Transformer from the collected
// pairs.
func FromSupplier(ctx context.Context, s Supplier, bindings []Binding, opts ...Option) (*Transformer, error) {
	var keys, vals []value.Value
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k, v, ok, err := s.Next(ctx)
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		keys = append(keys, k)
		vals = append(vals, v)
	}
	return New(keys, vals, bindings, opts...)
}

// Lookup maps one scalar key. Present keys yield their paired value (or
// ordinal code in key-type mode); absent keys yield the output type's
// default: numeric zero, empty text, empty vector, or code 0.
func (t *Transformer) Lookup(key value.Value) value.Value {
	slot, ok := t.idx.Lookup(key)
	t.metrics.RecordLookup(ok)

	if t.keyMode {
		var code uint64
		if ok {
			_, v := t.tbl.Get(slot)
			code = t.ord.Code(v)
		}
		if t.codeKind == value.KindUint64 {
			return value.Uint64(code)
		}
		return value.Uint32(uint32(code))
	}

	if !ok {
		if t.tbl.IsValueVector() {
			return value.EmptyVector(t.tbl.ValueItemKind())
		}
		return value.Default(t.tbl.ValueItemKind())
	}
	_, v := t.tbl.Get(slot)
	return v
}

// LookupVector maps each element of an input vector independently,
// preserving element order and length.
func (t *Transformer) LookupVector(keys []value.Value) []value.Value {
	out := make([]value.Value, len(keys))
	for i, k := range keys {
		out[i] = t.Lookup(k)
	}
	return out
}

// LookupSparse maps a sparse input vector as if densified: implicit
// elements are keys to be looked up, not skipped.
func (t *Transformer) LookupSparse(s *value.Sparse) []value.Value {
	return t.LookupVector(s.Densify())
}

// ReverseLookup returns the original value for a 1-based ordinal code.
// It fails with ErrNotKeyMode unless the transform was built in key-type
// mode; code 0 and out-of-range codes report a plain miss.
func (t *Transformer) ReverseLookup(code uint64) (value.Value, bool, error) {
	if !t.keyMode {
		return value.Value{}, false, ErrNotKeyMode
	}
	v, ok := t.ord.Value(code)
	return v, ok, nil
}

// OutputShape computes the output column shape for an input column of
// the given vectorness, from schema alone.
func (t *Transformer) OutputShape(inputIsVector bool) (schema.OutputShape, error) {
	distinct := 0
	if t.keyMode {
		distinct = t.ord.Count()
	}
	return schema.Resolve(inputIsVector, t.tbl.ValueItemKind(), t.tbl.IsValueVector(), t.keyMode, distinct)
}

// Len returns the number of (key, value) pairs in the table.
func (t *Transformer) Len() int { return t.tbl.Len() }

// KeyMode reports whether key-type output mode is active.
func (t *Transformer) KeyMode() bool { return t.keyMode }

// DistinctValues returns the ordered distinct-value sequence exposed as
// key metadata in key-type mode, or nil otherwise. Callers must not
// mutate the returned slice.
func (t *Transformer) DistinctValues() []value.Value {
	if !t.keyMode {
		return nil
	}
	return t.ord.Distinct()
}

// Bindings returns the ordered column bindings.
func (t *Transformer) Bindings() []Binding { return t.bindings }

// Save serializes the built state to w using the configured compression.
func (t *Transformer) Save(w io.Writer) error {
	start := time.Now()
	cw := &countingWriter{w: w}
	err := persist.Encode(cw, &persist.State{
		Table:    t.tbl,
		Bindings: t.bindings,
		KeyMode:  t.keyMode,
	}, t.compression)
	t.metrics.RecordSave(cw.n, time.Since(start), err)
	if err != nil {
		return err
	}
	t.logger.WithKeyCount(t.tbl.Len()).Debug("transform saved",
		"bytes", cw.n,
		"compression", t.compression.String(),
	)
	return nil
}

// SaveTo serializes the built state into the named blob.
func (t *Transformer) SaveTo(ctx context.Context, store blobstore.Store, name string) error {
	var buf bytes.Buffer
	if err := t.Save(&buf); err != nil {
		return err
	}
	return store.Put(ctx, name, buf.Bytes())
}

// Load reconstructs a Transformer from a serialized stream, current or
// legacy layout. Indexes are rebuilt deterministically from the decoded
// table; no external estimation is re-run.
func Load(r io.Reader, opts ...Option) (*Transformer, error) {
	o := defaultOptions()
	for _, fn := range opts {
		fn(&o)
	}

	start := time.Now()
	state, err := persist.Decode(r)
	if err != nil {
		o.metrics.RecordLoad(time.Since(start), err)
		return nil, err
	}

	// The stream's key-type flag wins over construction options.
	o.keyMode = state.KeyMode
	t, err := build(state.Table.Keys(), state.Table.Values(), state.Bindings, o)
	o.metrics.RecordLoad(time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFormat, err)
	}

	t.logger.WithKeyCount(t.tbl.Len()).Debug("transform loaded", "keyMode", t.keyMode)
	return t, nil
}

// LoadFrom reconstructs a Transformer from the named blob.
func LoadFrom(ctx context.Context, store blobstore.Store, name string, opts ...Option) (*Transformer, error) {
	data, err := store.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return Load(bytes.NewReader(data), opts...)
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}
