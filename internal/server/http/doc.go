// Package httpserver hosts docket's admin API on chi: health, Prometheus
// metrics, and tenant-scoped task and index endpoints.
//
// Routes:
//
//	GET    /v1/healthz
//	GET    /metrics
//	GET    /v1/tenants
//	GET    /v1/tenants/{tenant}/tasks?filter=<CEL>&limit=N
//	POST   /v1/tenants/{tenant}/tasks
//	GET    /v1/tenants/{tenant}/tasks/stats
//	POST   /v1/tenants/{tenant}/drain
//	GET    /v1/tenants/{tenant}/indexes
//	POST   /v1/tenants/{tenant}/indexes
//	DELETE /v1/tenants/{tenant}/indexes/{id}
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	s := httpserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
