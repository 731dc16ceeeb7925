// Package persist serializes the built mapping state: the key/value
// table, column bindings, and the key-type mode flag.
//
// The current layout is self-describing (magic + version header) so the
// decoder can dispatch on it. A headerless legacy layout written by the
// predecessor transform is detected by structural probing and normalized
// into the same in-memory representation.
package persist

import "errors"

const (
	// MagicNumber identifies valmap state streams (ASCII: "VMAP").
	MagicNumber = 0x564D4150
	// Version is the current stream format version (v1.0.0).
	Version = 0x00010000
)

// Header flag bits.
const (
	flagValueVector = 1 << 0
	flagKeyMode     = 1 << 1
)

// Legacy flag bits.
const (
	legacyFlagDirectCodes = 1 << 0
)

var (
	// ErrFormat indicates a stream that is neither the current nor the
	// recognized legacy layout, or one that fails structural validation.
	ErrFormat = errors.New("malformed mapping state")
	// ErrInvalidVersion indicates a current-layout stream with an
	// unsupported version.
	ErrInvalidVersion = errors.New("unsupported format version")
)

// Compression selects the payload compression applied after the header.
type Compression uint8

const (
	// CompressionNone stores the payload uncompressed.
	CompressionNone Compression = iota
	// CompressionZstd compresses the payload with zstd.
	CompressionZstd
	// CompressionLZ4 compresses the payload with an lz4 frame.
	CompressionLZ4
)

// String returns the string representation of the Compression.
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return "unknown"
	}
}

// header is the fixed 16-byte prefix of the current layout.
type header struct {
	Magic       uint32
	Version     uint32
	KeyKind     uint8
	ValKind     uint8
	Flags       uint8
	Compression uint8
	Reserved    [4]byte
}

// Binding pairs an input column with the output column it is rewritten
// into. A transform persists its ordered binding sequence alongside the
// table.
type Binding struct {
	Input  string
	Output string
}
