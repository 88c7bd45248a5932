package bootstrap

import (
	"context"

	"medpipe_backend/config"
	"medpipe_backend/pkg/logging"
)

type App struct {
	Cfg            *config.Config
	Infrastructure *Infrastructure
	Repositories   *Repositories
	Services       *Services
	GrpcServices   *GrpcServices
	Handlers       *Handlers

	stopWorker context.CancelFunc
}

func NewApp(cfg *config.Config) (*App, error) {
	app := &App{Cfg: cfg}
	infra, err := NewInfrastructure(cfg)
	if err != nil {
		logging.Logger.Error("fail NewInfrastructure", "error", err)
		return nil, err
	}
	app.Infrastructure = infra

	// repos
	app.Repositories = NewRepositories(infra.DB)

	// services
	app.Services = NewServices(cfg, app.Repositories, infra)

	app.Handlers = NewHandlers(app.Services, infra)

	// grpc health
	grpcServices, err := NewGrpcServices(cfg, infra)
	if err != nil {
		logging.Logger.Error("fail NewGrpcServices", "error", err)
		return nil, err
	}
	app.GrpcServices = grpcServices

	return app, nil
}

// StartWorker pulls pipeline tasks until Shutdown. In inline mode tasks run
// in the process that dispatched them and there is nothing to start.
func (a *App) StartWorker() {
	if a.Services.Worker == nil {
		logging.Logger.Info("tasks run inline, no queue worker")
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.stopWorker = cancel
	go a.Services.Worker.Start(ctx)
}

// Shutdown stops pulling tasks, waits for the running ones and closes infra.
func (a *App) Shutdown() error {
	if a == nil {
		return nil
	}
	if a.stopWorker != nil {
		a.stopWorker()
		a.Services.Worker.Wait()
	}
	if a.Services != nil && a.Services.Inline != nil {
		a.Services.Inline.Wait()
	}
	if a.GrpcServices != nil {
		if err := a.GrpcServices.Shutdown(); err != nil {
			return err
		}
	}
	if a.Infrastructure != nil {
		if err := a.Infrastructure.Shutdown(); err != nil {
			return err
		}
	}
	return nil
}
