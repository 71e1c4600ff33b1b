// Package serverrun exposes the Run entrypoint used by the CLI to start the
// docket runtime, its drain worker, and the HTTP and gRPC servers.
//
// Example:
//
//	cfg := config.Default()
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = serverrun.Run(ctx, serverrun.Options{DataDir: "./data", Config: cfg})
package serverrun
