// Package id provides the monotonic identity sequence used for persisted
// records.
//
// # Format
//
// Identities are uint64 values starting at 1. Their key form is 8 bytes
// big-endian, so byte-wise comparison preserves numeric (and therefore
// insertion) order.
//
// # Monotonicity
//
// A Sequence never goes backwards and never repeats. Values handed to a caller
// that later rolls back are lost, leaving gaps. Restoring a Sequence from
// persisted state uses Observe so the mark can only move forward.
//
// Usage
//
//	seq := id.NewSequence(lastPersisted)
//	next := seq.Next()
//	k := id.Key(next) // 8-byte sortable key
package id
