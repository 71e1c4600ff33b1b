package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	cfgpkg "github.com/rzbill/docket/internal/config"
	"github.com/rzbill/docket/internal/runtime"
	pebblestore "github.com/rzbill/docket/internal/storage/pebble"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

const bufSize = 1 << 20

func TestHealthOverGRPC(t *testing.T) {
	dir := t.TempDir()
	rt, err := runtime.Open(runtime.Options{DataDir: dir, Fsync: pebblestore.FsyncModeAlways, Config: cfgpkg.Default()})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	defer rt.Close()

	srv := New(rt, nil)
	lis := bufconn.Listen(bufSize)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	serveCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- srv.Serve(serveCtx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	c := healthpb.NewHealthClient(conn)
	for _, svc := range []string{"", ServiceName} {
		res, err := c.Check(ctx, &healthpb.HealthCheckRequest{Service: svc})
		if err != nil {
			t.Fatalf("check %q: %v", svc, err)
		}
		if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
			t.Fatalf("status %q: %v", svc, res.GetStatus())
		}
	}

	stop()
	if err := <-done; err != nil {
		t.Fatalf("serve: %v", err)
	}
}
