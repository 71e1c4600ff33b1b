// Package indexing is the consumer side of the task queue: a per-tenant
// registry of index definitions and the worker that drains merged tasks.
//
// A batch is dequeued, applied and deleted inside one table transaction:
//
//	tx := table.Begin()
//	seen := tasks.NewIDSet()
//	t, ok, err := queue.TryDequeueMerged(ctx, tx, kind, reg.Busy(), reg.IDs(), seen)
//	// applier.Apply(ctx, tenant, t)
//	queue.DeleteTasks(ctx, tx, seen)
//	tx.Commit(ctx)
//
// If Apply fails or the transaction conflicts, it is rolled back and the
// records are picked up again by a later cycle.
package indexing
