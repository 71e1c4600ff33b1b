package grpcserver

import (
	"context"
	"net"
	"time"

	"github.com/rzbill/docket/internal/runtime"
	"github.com/rzbill/docket/pkg/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported alongside the overall ("") status.
const ServiceName = "docket.Queue"

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	grpc   *grpc.Server
	health *health.Server
	lis    net.Listener
	logger log.Logger
	// Interval between storage health probes.
	Interval time.Duration
}

// New constructs a gRPC server and registers the standard health service.
func New(rt *runtime.Runtime, logger log.Logger, opts ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	s := &Server{
		rt:       rt,
		grpc:     grpc.NewServer(opts...),
		health:   health.NewServer(),
		logger:   logger.WithComponent("grpc"),
		Interval: 5 * time.Second,
	}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	return s
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, l)
}

// Serve serves on l until ctx is done.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.lis = l
	s.logger.Info("grpc listening", log.Str("addr", l.Addr().String()))
	s.probe(ctx)
	watchCtx, stopWatch := context.WithCancel(ctx)
	watched := make(chan struct{})
	go func() {
		defer close(watched)
		s.watchHealth(watchCtx)
	}()
	// The probe reads storage, so it must be gone before the caller closes the runtime.
	defer func() {
		stopWatch()
		<-watched
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- s.grpc.Serve(l) }()
	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
