package value

import (
	"encoding/binary"
	"errors"
	"math"
	"unique"
)

// AppendBinary appends the compact binary form of v to buf.
//
// Layout per value: [Kind byte][payload]. Integers use varints, floats
// use 8 little-endian bytes of their float64 bit pattern (lossless for
// float32), text is length-prefixed, vectors carry their element kind
// and count followed by the encoded elements.
func AppendBinary(buf []byte, v Value) ([]byte, error) {
	buf = append(buf, byte(v.Kind))

	switch v.Kind {
	case KindInt32:
		buf = binary.AppendVarint(buf, v.I64)
	case KindUint32, KindUint64:
		buf = binary.AppendUvarint(buf, v.U64)
	case KindFloat32, KindFloat64:
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v.F64))
	case KindText:
		s := v.s.Value()
		buf = binary.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	case KindVector:
		buf = append(buf, byte(v.Elem))
		buf = binary.AppendUvarint(buf, uint64(len(v.Vec)))
		for _, item := range v.Vec {
			var err error
			buf, err = AppendBinary(buf, item)
			if err != nil {
				return nil, err
			}
		}
	default:
		return nil, errors.New("unknown value kind")
	}
	return buf, nil
}

// ParseBinary decodes one value from data and returns the remaining bytes.
func ParseBinary(data []byte) (Value, []byte, error) {
	if len(data) == 0 {
		return Value{}, nil, errors.New("short buffer for value kind")
	}
	kind := Kind(data[0])
	data = data[1:]

	var v Value
	v.Kind = kind

	switch kind {
	case KindInt32:
		i, n := binary.Varint(data)
		if n <= 0 {
			return v, nil, errors.New("invalid int value")
		}
		v.I64 = i
		data = data[n:]
	case KindUint32, KindUint64:
		u, n := binary.Uvarint(data)
		if n <= 0 {
			return v, nil, errors.New("invalid uint value")
		}
		v.U64 = u
		data = data[n:]
	case KindFloat32, KindFloat64:
		if len(data) < 8 {
			return v, nil, errors.New("short buffer for float")
		}
		v.F64 = math.Float64frombits(binary.LittleEndian.Uint64(data))
		data = data[8:]
	case KindText:
		sLen, n := binary.Uvarint(data)
		if n <= 0 {
			return v, nil, errors.New("invalid text length")
		}
		data = data[n:]
		if uint64(len(data)) < sLen {
			return v, nil, errors.New("short buffer for text")
		}
		v.s = unique.Make(string(data[:sLen]))
		data = data[sLen:]
	case KindVector:
		if len(data) == 0 {
			return v, nil, errors.New("short buffer for vector elem kind")
		}
		v.Elem = Kind(data[0])
		data = data[1:]
		vLen, n := binary.Uvarint(data)
		if n <= 0 {
			return v, nil, errors.New("invalid vector length")
		}
		data = data[n:]
		// Each element occupies at least one byte; a larger count cannot
		// be satisfied by the remaining buffer and must not reach make.
		if vLen > uint64(len(data)) {
			return v, nil, errors.New("vector length exceeds buffer")
		}
		if vLen > 0 {
			v.Vec = make([]Value, vLen)
			for i := uint64(0); i < vLen; i++ {
				item, remaining, err := ParseBinary(data)
				if err != nil {
					return v, nil, err
				}
				v.Vec[i] = item
				data = remaining
			}
		}
	default:
		return v, nil, errors.New("unknown value kind")
	}
	return v, data, nil
}
