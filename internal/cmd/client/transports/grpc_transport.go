// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"context"

	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// GrpcHealth queries the standard gRPC health service.
type GrpcHealth struct {
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

// NewGrpcHealth constructs a GrpcHealth using the provided dialer.
func NewGrpcHealth(dial func(ctx context.Context) (*grpc.ClientConn, error)) *GrpcHealth {
	return &GrpcHealth{dial: dial}
}

// Check returns the serving status of service ("" for the whole server).
func (g *GrpcHealth) Check(ctx context.Context, service string) (string, error) {
	conn, err := g.dial(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = conn.Close() }()
	res, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		return "", err
	}
	return res.GetStatus().String(), nil
}
