// Package grpcserver serves the standard grpc.health.v1 service. Status is
// SERVING while the runtime's storage health check passes.
//
// Example:
//
//	s := grpcserver.New(rt, logger)
//	_ = s.ListenAndServe(ctx, ":9090")
package grpcserver
