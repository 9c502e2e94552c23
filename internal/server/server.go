package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// HealthCheck probes a dependency; a non-nil error marks the server NOT_SERVING.
type HealthCheck func(ctx context.Context) error

// Server is the daemon's gRPC endpoint: health, reflection and the review service.
type Server struct {
	grpc   *grpc.Server
	health *health.Server
	logger *slog.Logger
}

func New(logger *slog.Logger, review *ReviewService) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer()

	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	// Reflection for grpcurl
	reflection.Register(gs)
	if review != nil {
		gs.RegisterService(&reviewServiceDesc, review)
		hs.SetServingStatus(reviewServiceName, healthpb.HealthCheckResponse_SERVING)
	}
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	return &Server{grpc: gs, health: hs, logger: logger}
}

// SetServing flips the overall health status.
func (s *Server) SetServing(ok bool) {
	st := healthpb.HealthCheckResponse_SERVING
	if !ok {
		st = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", st)
}

// Serve blocks until ctx is done, then stops gracefully.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- s.grpc.Serve(lis) }()
	s.logger.Info("server.listening", "addr", lis.Addr().String())

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpc.GracefulStop()
		<-errc
		s.logger.Info("server.stopped")
		return nil
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
}

// Stop ends all RPCs immediately.
func (s *Server) Stop() {
	s.grpc.Stop()
}

// WatchHealth runs check every interval and updates the overall status until ctx is done.
func (s *Server) WatchHealth(ctx context.Context, interval time.Duration, check HealthCheck) {
	if check == nil || interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			err := check(ctx)
			if ok := err == nil; ok != healthy {
				healthy = ok
				s.SetServing(ok)
				s.logger.Warn("server.health.changed", "serving", ok, "error", err)
			}
		}
	}
}
