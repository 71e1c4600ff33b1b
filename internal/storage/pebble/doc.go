// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// batches, compaction, minimal metrics hooks and optimistic transactions.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	// Point ops
//	_ = db.Set([]byte("k2"), []byte("v2"))
//	v, _ := db.Get([]byte("k2"))
//
//	// Transactions: writes claim their keys; a second writer of the same key
//	// gets ErrWriteConflict at write time and should retry its transaction.
//	txn := db.Begin()
//	if err := txn.Delete([]byte("k2")); errors.Is(err, pebblestore.ErrWriteConflict) {
//	    txn.Rollback()
//	}
//	_ = txn.Commit(context.Background())
package pebblestore
