package client

import (
	"context"
	"encoding/json"
	"io"
	"os"

	transports "github.com/rzbill/docket/internal/cmd/client/transports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// HTTPBaseFromEnv returns DOCKET_HTTP or the local default.
func HTTPBaseFromEnv() string {
	if v := os.Getenv("DOCKET_HTTP"); v != "" {
		return v
	}
	return "http://127.0.0.1:8080"
}

// grpcAddrFromEnv returns the gRPC server address from DOCKET_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("DOCKET_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:9090"
}

// dialGRPCContext dials the docket gRPC endpoint with insecure transport for local/dev.
func dialGRPCContext(context.Context) (*grpc.ClientConn, error) {
	return grpc.NewClient(grpcAddrFromEnv(), grpc.WithTransportCredentials(insecure.NewCredentials()))
}

func transportFor(baseURL BaseURLFunc) transports.Transport {
	return transports.NewHTTPTransport(baseURL(), nil)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
