// Package tasks implements the durable index-maintenance task queue.
//
// Tasks are a closed set of kinds (RemoveFromIndexTask, ReduceTask,
// TouchReferencesTask). Each is stored as one tasktable record with its
// kind and index in separate columns and a CRC-framed protowire payload.
//
// A drain cycle looks like this:
//
//	seen := tasks.NewIDSet()
//	t, ok, err := q.TryDequeueMerged(ctx, tx, tasks.KindReduceIndex, busy, all, seen)
//	// apply t durably, then
//	_, err = q.DeleteTasks(ctx, tx, seen)
//	err = tx.Commit(ctx)
//
// Dequeue never deletes the records it hands out; only poisoned records are
// removed on the spot. Deleting seen before the work is applied loses it on
// a crash.
//
// Error taxonomy: *PoisonedError (logged, record deleted), *ConcurrencyError
// (retry the transaction), anything else is a storage failure and aborts the
// transaction. Missing rows are never errors.
package tasks
