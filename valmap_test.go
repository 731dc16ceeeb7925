package valmap

import (
	"bytes"
	"context"
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valmap/valmap/blobstore"
	"github.com/valmap/valmap/persist"
	"github.com/valmap/valmap/schema"
	"github.com/valmap/valmap/value"
)

func textValues(ss ...string) []value.Value {
	out := make([]value.Value, len(ss))
	for i, s := range ss {
		out[i] = value.Text(s)
	}
	return out
}

func int32Values(ns ...int32) []value.Value {
	out := make([]value.Value, len(ns))
	for i, n := range ns {
		out[i] = value.Int32(n)
	}
	return out
}

func newTestTransformer(t *testing.T, opts ...Option) *Transformer {
	t.Helper()
	tr, err := New(
		textValues("foo", "bar", "test", "wahoo"),
		int32Values(1, 2, 3, 4),
		[]Binding{{Input: "raw", Output: "mapped"}},
		opts...,
	)
	require.NoError(t, err)
	return tr
}

func TestLookup(t *testing.T) {
	tr := newTestTransformer(t)

	// Every present key maps to exactly its paired value.
	want := map[string]int32{"foo": 1, "bar": 2, "test": 3, "wahoo": 4}
	for k, v := range want {
		got, ok := tr.Lookup(value.Text(k)).AsInt32()
		require.True(t, ok)
		assert.Equal(t, v, got)
	}

	// Absent keys yield the numeric default.
	got, ok := tr.Lookup(value.Text("missing")).AsInt32()
	require.True(t, ok)
	assert.Equal(t, int32(0), got)
}

func TestLookupTextDefault(t *testing.T) {
	tr, err := New(int32Values(1, 2), textValues("one", "two"), nil)
	require.NoError(t, err)

	assert.Equal(t, "one", tr.Lookup(value.Int32(1)).TextValue())
	assert.Equal(t, "", tr.Lookup(value.Int32(99)).TextValue())
}

func TestNewErrors(t *testing.T) {
	t.Run("DuplicateKey", func(t *testing.T) {
		_, err := New(textValues("foo", "foo"), int32Values(1, 2), nil)
		require.Error(t, err)
		var dup *DuplicateKeyError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("Empty", func(t *testing.T) {
		_, err := New(nil, nil, nil)
		assert.ErrorIs(t, err, ErrEmptyTable)
	})

	t.Run("DuplicateOutput", func(t *testing.T) {
		_, err := New(textValues("foo"), int32Values(1), []Binding{
			{Input: "a", Output: "out"},
			{Input: "b", Output: "out"},
		})
		require.Error(t, err)
		var dup *DuplicateOutputError
		assert.ErrorAs(t, err, &dup)
	})

	t.Run("EmptyColumnName", func(t *testing.T) {
		_, err := New(textValues("foo"), int32Values(1), []Binding{{Input: "", Output: "out"}})
		assert.Error(t, err)
	})
}

func TestLookupVector(t *testing.T) {
	tr := newTestTransformer(t)

	// Element order is preserved.
	got := tr.LookupVector(textValues("bar", "test", "foo"))
	require.Len(t, got, 3)
	for i, want := range []int32{2, 3, 1} {
		n, ok := got[i].AsInt32()
		require.True(t, ok)
		assert.Equal(t, want, n)
	}

	// Misses inside the vector become defaults, not gaps.
	got = tr.LookupVector(textValues("nope", "wahoo"))
	require.Len(t, got, 2)
	n, _ := got[0].AsInt32()
	assert.Equal(t, int32(0), n)
	n, _ = got[1].AsInt32()
	assert.Equal(t, int32(4), n)
}

func TestLookupSparse(t *testing.T) {
	tr := newTestTransformer(t)

	// Implicit elements are still keys, not skipped.
	sv := value.NewSparse(3, value.Text("foo"))
	require.NoError(t, sv.Set(1, value.Text("test")))

	got := tr.LookupSparse(sv)
	dense := tr.LookupVector(sv.Densify())
	require.Len(t, got, 3)
	for i := range got {
		assert.True(t, value.Equal(dense[i], got[i]))
	}
	n, _ := got[0].AsInt32()
	assert.Equal(t, int32(1), n) // implicit "foo"
	n, _ = got[1].AsInt32()
	assert.Equal(t, int32(3), n)
}

func TestVectorValues(t *testing.T) {
	tr, err := New(
		textValues("foo", "bar", "test"),
		[]value.Value{
			value.Vector(value.KindInt32, int32Values(2, 3, 4)),
			value.Vector(value.KindInt32, int32Values(100, 200)),
			value.Vector(value.KindInt32, int32Values(400, 500, 600, 700)),
		},
		nil,
	)
	require.NoError(t, err)

	// Per-key result lengths vary.
	elems, ok := tr.Lookup(value.Text("bar")).AsVector()
	require.True(t, ok)
	assert.Len(t, elems, 2)

	elems, ok = tr.Lookup(value.Text("test")).AsVector()
	require.True(t, ok)
	assert.Len(t, elems, 4)

	// Miss yields an empty, still-typed vector.
	miss, ok := tr.Lookup(value.Text("nope")).AsVector()
	require.True(t, ok)
	assert.Len(t, miss, 0)

	// Schema reports variable vectors before any row is read.
	shape, err := tr.OutputShape(false)
	require.NoError(t, err)
	assert.Equal(t, schema.VariableVector, shape.Vectorness)
	assert.Equal(t, value.KindInt32, shape.ItemKind)

	// Vector input on top of vector values is rejected.
	_, err = tr.OutputShape(true)
	require.Error(t, err)
	var unsupported *UnsupportedShapeError
	assert.ErrorAs(t, err, &unsupported)
}

func TestKeyMode(t *testing.T) {
	tr, err := New(
		textValues("a", "b", "c", "d"),
		textValues("foo1", "foo2", "foo1", "foo3"),
		nil,
		WithKeyMode(true),
	)
	require.NoError(t, err)
	require.True(t, tr.KeyMode())

	// First-occurrence numbering; duplicates share a code.
	wantCodes := map[string]uint32{"a": 1, "b": 2, "c": 1, "d": 3}
	for k, want := range wantCodes {
		code, ok := tr.Lookup(value.Text(k)).AsUint32()
		require.True(t, ok)
		assert.Equal(t, want, code)
	}

	// Code 0 signals a miss.
	code, ok := tr.Lookup(value.Text("bar")).AsUint32()
	require.True(t, ok)
	assert.Equal(t, uint32(0), code)

	// Distinct-value metadata.
	distinct := tr.DistinctValues()
	require.Len(t, distinct, 3)
	seen := map[string]bool{}
	for _, v := range distinct {
		seen[v.TextValue()] = true
	}
	assert.Equal(t, map[string]bool{"foo1": true, "foo2": true, "foo3": true}, seen)

	// Forward then reverse path.
	code, ok = tr.Lookup(value.Text("b")).AsUint32()
	require.True(t, ok)
	v, found, err := tr.ReverseLookup(uint64(code))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "foo2", v.TextValue())

	// Reserved miss code reverses to nothing.
	_, found, err = tr.ReverseLookup(0)
	require.NoError(t, err)
	assert.False(t, found)

	// Schema exposes the key metadata.
	shape, err := tr.OutputShape(false)
	require.NoError(t, err)
	assert.True(t, shape.IsKey)
	assert.Equal(t, 3, shape.KeyCount)
	assert.Equal(t, value.KindUint32, shape.ItemKind)
}

func TestReverseLookupRequiresKeyMode(t *testing.T) {
	tr := newTestTransformer(t)
	_, _, err := tr.ReverseLookup(1)
	assert.ErrorIs(t, err, ErrNotKeyMode)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	for _, comp := range []persist.Compression{persist.CompressionNone, persist.CompressionZstd, persist.CompressionLZ4} {
		t.Run(comp.String(), func(t *testing.T) {
			tr := newTestTransformer(t, WithCompression(comp))

			var buf bytes.Buffer
			require.NoError(t, tr.Save(&buf))

			loaded, err := Load(&buf)
			require.NoError(t, err)

			assert.Equal(t, tr.Bindings(), loaded.Bindings())
			assert.Equal(t, tr.Len(), loaded.Len())
			for _, k := range []string{"foo", "bar", "test", "wahoo", "missing"} {
				assert.True(t, value.Equal(tr.Lookup(value.Text(k)), loaded.Lookup(value.Text(k))), "key %q", k)
			}
		})
	}
}

func TestSaveLoadKeyMode(t *testing.T) {
	tr, err := New(
		textValues("a", "b", "c", "d"),
		textValues("foo1", "foo2", "foo1", "foo3"),
		nil,
		WithKeyMode(true),
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tr.Save(&buf))

	// KeyMode comes from the stream, not from load options.
	loaded, err := Load(&buf)
	require.NoError(t, err)
	require.True(t, loaded.KeyMode())

	for _, k := range []string{"a", "b", "c", "d", "zzz"} {
		assert.True(t, value.Equal(tr.Lookup(value.Text(k)), loaded.Lookup(value.Text(k))), "key %q", k)
	}
	v, found, err := loaded.ReverseLookup(2)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "foo2", v.TextValue())
}

func TestLoadLegacy(t *testing.T) {
	// Headerless predecessor layout: pair count, kind bytes, flags, then
	// inline (key, value) entries.
	keys := textValues("foo", "bar", "test")
	vals := int32Values(1, 2, 3)

	buf := binary.AppendUvarint(nil, uint64(len(keys)))
	buf = append(buf, byte(value.KindText), byte(value.KindInt32), 0)
	var err error
	for i := range keys {
		buf, err = value.AppendBinary(buf, keys[i])
		require.NoError(t, err)
		buf, err = value.AppendBinary(buf, vals[i])
		require.NoError(t, err)
	}

	loaded, err := Load(bytes.NewReader(buf))
	require.NoError(t, err)

	n, ok := loaded.Lookup(value.Text("bar")).AsInt32()
	require.True(t, ok)
	assert.Equal(t, int32(2), n)
	n, _ = loaded.Lookup(value.Text("missing")).AsInt32()
	assert.Equal(t, int32(0), n)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte{0xFF, 0x00}))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestLoadDuplicateKeyStream(t *testing.T) {
	// A decodable stream whose table repeats a key fails the index
	// rebuild; the duplicate-key detail must survive the format wrap.
	keys := textValues("foo", "foo")
	vals := int32Values(1, 2)

	buf := binary.AppendUvarint(nil, uint64(len(keys)))
	buf = append(buf, byte(value.KindText), byte(value.KindInt32), 0)
	var err error
	for i := range keys {
		buf, err = value.AppendBinary(buf, keys[i])
		require.NoError(t, err)
		buf, err = value.AppendBinary(buf, vals[i])
		require.NoError(t, err)
	}

	_, err = Load(bytes.NewReader(buf))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFormat)

	var dup *DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.True(t, value.Equal(value.Text("foo"), dup.Key))
}

func TestLoadHugeCountStream(t *testing.T) {
	// Crafted counts far beyond the stream size surface as format
	// errors, never as allocator panics.
	buf := binary.AppendUvarint(nil, 1<<60)
	buf = append(buf, byte(value.KindText), byte(value.KindInt32), 0)

	var err error
	assert.NotPanics(t, func() {
		_, err = Load(bytes.NewReader(buf))
	})
	assert.ErrorIs(t, err, ErrFormat)
}

func TestSaveToLoadFrom(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	tr := newTestTransformer(t, WithCompression(persist.CompressionZstd))

	require.NoError(t, tr.SaveTo(ctx, store, "model/state.bin"))

	loaded, err := LoadFrom(ctx, store, "model/state.bin")
	require.NoError(t, err)
	assert.True(t, value.Equal(tr.Lookup(value.Text("test")), loaded.Lookup(value.Text("test"))))

	_, err = LoadFrom(ctx, store, "model/absent.bin")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestMapColumns(t *testing.T) {
	ctx := context.Background()
	tr, err := New(
		textValues("foo", "bar", "test", "wahoo"),
		int32Values(1, 2, 3, 4),
		[]Binding{
			{Input: "colA", Output: "outA"},
			{Input: "colB", Output: "outB"},
		},
	)
	require.NoError(t, err)

	out, err := tr.MapColumns(ctx, map[string][]value.Value{
		"colA":    textValues("bar", "test", "foo"),
		"colB":    textValues("wahoo", "nope"),
		"ignored": textValues("foo"),
	})
	require.NoError(t, err)
	require.Len(t, out, 2)

	wantA := []int32{2, 3, 1}
	require.Len(t, out["outA"], 3)
	for i, want := range wantA {
		n, _ := out["outA"][i].AsInt32()
		assert.Equal(t, want, n)
	}

	require.Len(t, out["outB"], 2)
	n, _ := out["outB"][0].AsInt32()
	assert.Equal(t, int32(4), n)
	n, _ = out["outB"][1].AsInt32()
	assert.Equal(t, int32(0), n)

	// Missing bound input column.
	_, err = tr.MapColumns(ctx, map[string][]value.Value{"colA": textValues("foo")})
	assert.Error(t, err)
}

type sliceSupplier struct {
	keys, vals []value.Value
	i          int
}

func (s *sliceSupplier) Next(context.Context) (value.Value, value.Value, bool, error) {
	if s.i >= len(s.keys) {
		return value.Value{}, value.Value{}, false, nil
	}
	k, v := s.keys[s.i], s.vals[s.i]
	s.i++
	return k, v, true, nil
}

func TestFromSupplier(t *testing.T) {
	ctx := context.Background()
	tr, err := FromSupplier(ctx, &sliceSupplier{
		keys: textValues("foo", "bar"),
		vals: int32Values(1, 2),
	}, nil)
	require.NoError(t, err)

	n, ok := tr.Lookup(value.Text("bar")).AsInt32()
	require.True(t, ok)
	assert.Equal(t, int32(2), n)
}

func TestConcurrentLookup(t *testing.T) {
	tr := newTestTransformer(t, WithMetrics(&BasicMetricsCollector{}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				n, _ := tr.Lookup(value.Text("test")).AsInt32()
				assert.Equal(t, int32(3), n)
				tr.LookupVector(textValues("foo", "missing"))
			}
		}()
	}
	wg.Wait()
}

func TestMetrics(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	tr := newTestTransformer(t, WithMetrics(metrics))
	assert.Equal(t, int64(1), metrics.BuildCount.Load())

	tr.Lookup(value.Text("foo"))
	tr.Lookup(value.Text("missing"))
	assert.Equal(t, int64(1), metrics.LookupHits.Load())
	assert.Equal(t, int64(1), metrics.LookupMisses.Load())

	var buf bytes.Buffer
	require.NoError(t, tr.Save(&buf))
	assert.Equal(t, int64(1), metrics.SaveCount.Load())
	assert.Positive(t, metrics.SaveBytes.Load())

	_, err := Load(&buf, WithMetrics(metrics))
	require.NoError(t, err)
	assert.Equal(t, int64(1), metrics.LoadCount.Load())
}
