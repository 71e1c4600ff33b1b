// Package tasktable implements the transactional table that stores pending
// index-maintenance tasks for one tenant.
//
// # Keyspace
//
// All keys are prefixed with ns/{tenant}/tasks/:
//
//	row/{id}                               - Row columns (kind, index_id, added_at, task bytes)
//	by_index/{index_id}{kind16}{id}        - Composite index for merge-candidate ranges
//	meta/last_id                           - Identity high-water mark
//
// # Access paths
//
//   - Primary scan: row/ in identity (= insertion) order.
//   - Composite range: by_index/{index_id}{kind16}. The kind is truncated to
//     KindKeyWidth bytes, so the range is approximate and callers must
//     re-check Row.Kind.
//   - Identity point seek: row/{id}.
//
// # Transactions
//
// Tx wraps a pebblestore.Txn. Writes claim their keys, and two transactions
// deleting the same row conflict with ErrWriteConflict at write time.
// Identities are assigned at Insert from a sequence restored at Open; the
// mark is persisted with every committing insert, so committed identities
// are never handed out again.
package tasktable
