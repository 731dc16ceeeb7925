package persist

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/valmap/valmap/table"
	"github.com/valmap/valmap/value"
)

// State is the logical content of a serialized mapping transform. Both
// decode paths (current and legacy) converge on it; lookup indexes are
// rebuilt from the table by the caller, never stored.
type State struct {
	Table    *table.Table
	Bindings []Binding
	KeyMode  bool
}

// Encode writes s in the current layout, compressing the payload with
// comp.
func Encode(w io.Writer, s *State, comp Compression) error {
	flags := uint8(0)
	if s.Table.IsValueVector() {
		flags |= flagValueVector
	}
	if s.KeyMode {
		flags |= flagKeyMode
	}

	h := header{
		Magic:       MagicNumber,
		Version:     Version,
		KeyKind:     uint8(s.Table.KeyKind()),
		ValKind:     uint8(s.Table.ValueItemKind()),
		Flags:       flags,
		Compression: uint8(comp),
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}

	payload, err := encodePayload(s)
	if err != nil {
		return err
	}
	payload, err = compress(payload, comp)
	if err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

func encodePayload(s *State) ([]byte, error) {
	buf := make([]byte, 0, 64+s.Table.Len()*16)

	buf = binary.AppendUvarint(buf, uint64(len(s.Bindings)))
	for _, b := range s.Bindings {
		buf = appendString(buf, b.Input)
		buf = appendString(buf, b.Output)
	}

	buf = binary.AppendUvarint(buf, uint64(s.Table.Len()))
	var err error
	for _, k := range s.Table.Keys() {
		if buf, err = value.AppendBinary(buf, k); err != nil {
			return nil, err
		}
	}
	for _, v := range s.Table.Values() {
		if buf, err = value.AppendBinary(buf, v); err != nil {
			return nil, err
		}
	}

	if s.KeyMode {
		// The ordered distinct-value array is written for downstream
		// metadata readers; Decode re-derives it and cross-checks.
		ord := table.BuildOrdinalIndex(s.Table)
		buf = binary.AppendUvarint(buf, uint64(ord.Count()))
		for _, v := range ord.Distinct() {
			if buf, err = value.AppendBinary(buf, v); err != nil {
				return nil, err
			}
		}
	}
	return buf, nil
}

// Decode reads a serialized mapping state, dispatching on the leading
// magic number. Streams without it are probed as the legacy layout.
func Decode(r io.Reader) (*State, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(data) >= 16 && binary.LittleEndian.Uint32(data) == MagicNumber {
		return decodeCurrent(data)
	}
	return decodeLegacy(data)
}

func decodeCurrent(data []byte) (*State, error) {
	var h header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrFormat)
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: got 0x%08x", ErrInvalidVersion, h.Version)
	}
	if !value.Kind(h.KeyKind).IsScalar() || !value.Kind(h.ValKind).IsScalar() {
		return nil, fmt.Errorf("%w: invalid kinds key=%d value=%d", ErrFormat, h.KeyKind, h.ValKind)
	}

	payload, err := decompress(data[16:], Compression(h.Compression))
	if err != nil {
		return nil, err
	}

	bindings, payload, err := parseBindings(payload)
	if err != nil {
		return nil, err
	}

	count, n := binary.Uvarint(payload)
	if n <= 0 {
		return nil, fmt.Errorf("%w: invalid pair count", ErrFormat)
	}
	payload = payload[n:]

	keys, payload, err := parseValues(payload, count)
	if err != nil {
		return nil, err
	}
	vals, payload, err := parseValues(payload, count)
	if err != nil {
		return nil, err
	}

	tbl, err := table.New(keys, vals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if tbl.KeyKind() != value.Kind(h.KeyKind) || tbl.ValueItemKind() != value.Kind(h.ValKind) {
		return nil, fmt.Errorf("%w: header kinds disagree with data", ErrFormat)
	}
	if tbl.IsValueVector() != (h.Flags&flagValueVector != 0) {
		return nil, fmt.Errorf("%w: header vector flag disagrees with data", ErrFormat)
	}

	keyMode := h.Flags&flagKeyMode != 0
	if keyMode {
		distinct, rest, err := parsePrefixedValues(payload)
		if err != nil {
			return nil, err
		}
		payload = rest
		ord := table.BuildOrdinalIndex(tbl)
		if len(distinct) != ord.Count() {
			return nil, fmt.Errorf("%w: distinct values %d, derived %d", ErrFormat, len(distinct), ord.Count())
		}
	}
	if len(payload) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, len(payload))
	}

	return &State{Table: tbl, Bindings: bindings, KeyMode: keyMode}, nil
}

// decodeLegacy reads the headerless layout written by the predecessor
// transform: pair count, key/value kind bytes, a flags byte, then inline
// (key, value) entries. When the direct-codes flag is set, the value of
// each entry is a raw ordinal code and the ordered distinct-value array
// follows; the table is normalized back to the real values with key-type
// mode enabled.
func decodeLegacy(data []byte) (*State, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 || count == 0 {
		return nil, fmt.Errorf("%w: not a recognized layout", ErrFormat)
	}
	data = data[n:]

	if len(data) < 3 {
		return nil, fmt.Errorf("%w: short legacy header", ErrFormat)
	}
	keyKind, valKind, flags := value.Kind(data[0]), value.Kind(data[1]), data[2]
	data = data[3:]
	// Every (key, value) entry needs at least two bytes; a declared
	// count beyond that is malformed, not an allocation request.
	if count > uint64(len(data)) {
		return nil, fmt.Errorf("%w: legacy pair count %d exceeds buffer", ErrFormat, count)
	}
	if !keyKind.IsScalar() {
		return nil, fmt.Errorf("%w: invalid legacy key kind %d", ErrFormat, keyKind)
	}
	directCodes := flags&legacyFlagDirectCodes != 0
	if !directCodes && !valKind.IsScalar() && valKind != value.KindVector {
		return nil, fmt.Errorf("%w: invalid legacy value kind %d", ErrFormat, valKind)
	}

	keys := make([]value.Value, 0, count)
	var vals []value.Value
	var codes []uint64
	for i := uint64(0); i < count; i++ {
		k, rest, err := value.ParseBinary(data)
		if err != nil {
			return nil, fmt.Errorf("%w: legacy key %d: %v", ErrFormat, i, err)
		}
		data = rest
		keys = append(keys, k)

		if directCodes {
			code, n := binary.Uvarint(data)
			if n <= 0 || code == 0 {
				return nil, fmt.Errorf("%w: invalid legacy code at entry %d", ErrFormat, i)
			}
			data = data[n:]
			codes = append(codes, code)
			continue
		}
		v, rest, err := value.ParseBinary(data)
		if err != nil {
			return nil, fmt.Errorf("%w: legacy value %d: %v", ErrFormat, i, err)
		}
		data = rest
		vals = append(vals, v)
	}

	keyMode := directCodes
	if directCodes {
		distinct, rest, err := parsePrefixedValues(data)
		if err != nil {
			return nil, err
		}
		data = rest
		vals = make([]value.Value, len(codes))
		for i, code := range codes {
			if code > uint64(len(distinct)) {
				return nil, fmt.Errorf("%w: legacy code %d exceeds %d distinct values", ErrFormat, code, len(distinct))
			}
			vals[i] = distinct[code-1]
		}
	}
	if len(data) != 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrFormat, len(data))
	}

	tbl, err := table.New(keys, vals)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if tbl.KeyKind() != keyKind {
		return nil, fmt.Errorf("%w: legacy key kind disagrees with data", ErrFormat)
	}
	if !directCodes {
		if valKind == value.KindVector && !tbl.IsValueVector() {
			return nil, fmt.Errorf("%w: legacy value kind disagrees with data", ErrFormat)
		}
		if valKind != value.KindVector && tbl.ValueItemKind() != valKind {
			return nil, fmt.Errorf("%w: legacy value kind disagrees with data", ErrFormat)
		}
	}
	return &State{Table: tbl, KeyMode: keyMode}, nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

func parseString(data []byte) (string, []byte, error) {
	sLen, n := binary.Uvarint(data)
	if n <= 0 {
		return "", nil, fmt.Errorf("%w: invalid string length", ErrFormat)
	}
	data = data[n:]
	if uint64(len(data)) < sLen {
		return "", nil, fmt.Errorf("%w: short buffer for string", ErrFormat)
	}
	return string(data[:sLen]), data[sLen:], nil
}

func parseBindings(data []byte) ([]Binding, []byte, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid binding count", ErrFormat)
	}
	data = data[n:]

	// A binding is at least two length bytes.
	if count > uint64(len(data)) {
		return nil, nil, fmt.Errorf("%w: binding count %d exceeds buffer", ErrFormat, count)
	}
	bindings := make([]Binding, 0, count)
	for i := uint64(0); i < count; i++ {
		var b Binding
		var err error
		if b.Input, data, err = parseString(data); err != nil {
			return nil, nil, err
		}
		if b.Output, data, err = parseString(data); err != nil {
			return nil, nil, err
		}
		bindings = append(bindings, b)
	}
	return bindings, data, nil
}

func parseValues(data []byte, count uint64) ([]value.Value, []byte, error) {
	// Each encoded value occupies at least one byte; reject counts the
	// remaining buffer cannot satisfy before sizing any allocation.
	if count > uint64(len(data)) {
		return nil, nil, fmt.Errorf("%w: value count %d exceeds buffer", ErrFormat, count)
	}
	vals := make([]value.Value, 0, count)
	for i := uint64(0); i < count; i++ {
		v, rest, err := value.ParseBinary(data)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: value %d: %v", ErrFormat, i, err)
		}
		data = rest
		vals = append(vals, v)
	}
	return vals, data, nil
}

func parsePrefixedValues(data []byte) ([]value.Value, []byte, error) {
	count, n := binary.Uvarint(data)
	if n <= 0 {
		return nil, nil, fmt.Errorf("%w: invalid distinct count", ErrFormat)
	}
	return parseValues(data[n:], count)
}
