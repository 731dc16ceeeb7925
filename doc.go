// Package valmap implements a typed value-mapping transform for tabular
// pipelines: a fixed key→value table that rewrites column values by
// exact substitution.
//
// A Transformer is built once from parallel key/value sequences (or a
// Supplier), validated eagerly (duplicate keys fail construction), and
// is immutable afterwards: concurrent lookups need no locking. Missing
// keys are not errors; they yield the output type's default.
//
// In key-type mode the output is a dense 1-based ordinal code over the
// distinct values, with 0 reserved for "not found" and the ordered
// distinct-value sequence exposed for reverse lookup.
//
// Built state persists through the persist package and any
// blobstore.Store backend (local disk, memory, MinIO, S3).
package valmap
