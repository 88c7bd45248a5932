package servers

import (
	"context"
	"net"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"medpipe_backend/pkg/logging"
)

// Check probes one dependency of the pipeline.
type Check func(ctx context.Context) error

// HealthService serves the standard grpc health protocol. Every named check
// is reported as its own service; the empty service name is SERVING only
// while all checks pass.
type HealthService struct {
	port     string
	checks   map[string]Check
	interval time.Duration
	health   *health.Server
	server   *grpc.Server
	listener net.Listener
	stop     chan struct{}
}

func NewHealthService(port string, checks map[string]Check) *HealthService {
	return &HealthService{
		port:     port,
		checks:   checks,
		interval: 15 * time.Second,
		health:   health.NewServer(),
		stop:     make(chan struct{}),
	}
}

func (s *HealthService) Start() error {
	lis, err := net.Listen("tcp", ":"+s.port)
	if err != nil {
		logging.Logger.Error("fail NewHealthService", "error", err)
		return err
	}
	s.listener = lis
	s.server = grpc.NewServer()
	healthpb.RegisterHealthServer(s.server, s.health)
	s.Probe(context.Background())

	logging.Logger.Info("start grpc health server", "port", s.port)
	go func() {
		if err := s.server.Serve(lis); err != nil {
			logging.Logger.Error("fail grpc server", "error", err)
		}
	}()
	go s.loop()
	return nil
}

func (s *HealthService) loop() {
	t := time.NewTicker(s.interval)
	defer t.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-t.C:
			s.Probe(context.Background())
		}
	}
}

// Probe runs every check once and updates the served statuses.
func (s *HealthService) Probe(ctx context.Context) bool {
	all := true
	for name, check := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := check(cctx)
		cancel()
		status := healthpb.HealthCheckResponse_SERVING
		if err != nil {
			logging.Logger.Warn("health check failed", "check", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
			all = false
		}
		s.health.SetServingStatus(name, status)
	}
	overall := healthpb.HealthCheckResponse_SERVING
	if !all {
		overall = healthpb.HealthCheckResponse_NOT_SERVING
	}
	s.health.SetServingStatus("", overall)
	return all
}

func (s *HealthService) Stop() error {
	close(s.stop)
	s.health.Shutdown()
	if s.server != nil {
		s.server.GracefulStop()
	}
	logging.Logger.Info("grpc health server stopped")
	return nil
}
