// Package store provides a SQLite-backed catalog of IR trees.
//
// The catalog holds:
//   - Expressions: trees keyed by content hash, stored once as a msgpack
//     envelope plus their canonical JSON for inspection
//   - Lowerings: the outcome of each attempt to lower a stored tree, with
//     the taxonomy code on failure
//
// # Ordering
//
// All ordering uses a per-table seq INTEGER (logical clock), never
// timestamps. Queries order by seq ASC with a binary-collated tiebreaker so
// listings are identical across runs.
//
// # Database Configuration
//
// Open applies WAL journaling, synchronous=NORMAL, a 5 second busy timeout
// and foreign key enforcement, then brings user_version up to date through
// the ordered migrations list. Catalogs written by a newer version are
// refused.
//
// Stats reports expression and lowering counts and how many expressions
// currently fail to lower.
//
// Expression hashes are computed by ir.TreeHash using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
