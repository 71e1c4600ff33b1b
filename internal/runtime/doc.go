// Package runtime wires storage, config, tenants and the task queue into a
// single-node docket instance.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	t, _ := rt.ResolveTenant("default")
//	_ = t.Table.Update(ctx, func(tx *tasktable.Tx) error {
//	    _, err := rt.Queue().Enqueue(ctx, tx, tasks.NewReduce(1, "orders/1"), time.Now())
//	    return err
//	})
package runtime
