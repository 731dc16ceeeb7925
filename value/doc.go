// Package value defines the closed set of typed values a mapping table
// can hold: scalars over {int32, uint32, uint64, float32, float64, text}
// and vectors of those scalars.
//
// Value is a small tagged union designed to keep the lookup hot path free
// of reflection and interface boxing. Text payloads are interned so that
// repeated keys share storage.
package value
