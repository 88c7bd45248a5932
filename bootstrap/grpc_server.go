package bootstrap

import (
	"context"
	"fmt"

	"medpipe_backend/config"
	"medpipe_backend/platform/grpc/servers"
)

type GrpcServices struct {
	HealthService *servers.HealthService
}

func NewGrpcServices(cfg *config.Config, infra *Infrastructure) (*GrpcServices, error) {
	checks := map[string]servers.Check{
		"postgres": func(ctx context.Context) error { return infra.DB.Ping() },
		"redis":    func(ctx context.Context) error { return infra.Redis.Rdb.Ping(ctx).Err() },
	}
	s := &GrpcServices{
		HealthService: servers.NewHealthService(cfg.GrpcHealthPort, checks),
	}
	if err := s.HealthService.Start(); err != nil {
		return nil, fmt.Errorf("failed to start health service: %w", err)
	}
	return s, nil
}

func (s *GrpcServices) Shutdown() error {
	if s.HealthService != nil {
		return s.HealthService.Stop()
	}
	return nil
}
