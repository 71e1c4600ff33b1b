package grpcserver

import (
	"context"
	"time"

	"github.com/rzbill/docket/pkg/log"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func (s *Server) watchHealth(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.probe(ctx)
		}
	}
}

// probe maps Runtime.CheckHealth onto the health service status.
func (s *Server) probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	if err := s.rt.CheckHealth(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("storage health check failed", log.Err(err))
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}
