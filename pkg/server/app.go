package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"tradevision/internal/domain/repository"
	"tradevision/internal/handler/api"
	"tradevision/internal/usecase"
	"tradevision/pkg/cache"
	"tradevision/pkg/config"
	xhttp "tradevision/pkg/http"
	"tradevision/pkg/logger"
)

// App encapsulates the application lifecycle: HTTP server, background
// jobs and the shutdown order of shared infrastructure.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *xhttp.Server
	jobs       *usecase.Jobs
	hub        *api.FeedHub
	store      repository.SignalStore
	publisher  repository.EventPublisher
	cache      cache.Service
}

// New assembles the application from its wired parts.
func New(
	cfg *config.Config,
	log *logger.Logger,
	handlers []xhttp.Handler,
	jobs *usecase.Jobs,
	hub *api.FeedHub,
	store repository.SignalStore,
	publisher repository.EventPublisher,
	c cache.Service,
) *App {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORSOrigins(cfg.Server.CORSOrigins),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	return &App{
		cfg:        cfg,
		log:        log,
		httpServer: xhttp.NewServer(log, handlers, opts...),
		jobs:       jobs,
		hub:        hub,
		store:      store,
		publisher:  publisher,
		cache:      c,
	}
}

// Run starts everything and blocks until interrupted.
func (a *App) Run() error {
	if err := a.jobs.Start(); err != nil {
		return err
	}
	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.log.Info("server started",
		logger.Int("port", a.cfg.Server.Port),
		logger.Strings("symbols", a.cfg.Signals.Symbols))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown", logger.Error(err))
	}
	a.hub.Shutdown()
	a.jobs.Stop()

	if err := a.publisher.Close(); err != nil {
		a.log.Warn("publisher close", logger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.log.Warn("cache close", logger.Error(err))
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("store close", logger.Error(err))
	}
	a.log.Info("shutdown complete")
	return nil
}
