//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"tradevision/pkg/config"
	"tradevision/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideDB,
		ProvideCache,
		ProvidePublisher,
		ProvideBrokerGateway,
		ProvideMailer,
		ProvideTokenManager,

		// Repositories
		ProvideSignalStore,
		ProvideUserStore,
		ProvideSignalCache,

		// Use cases
		ProvideFeedHub,
		ProvideSignalsUseCase,
		ProvideStatsUseCase,
		ProvideAuthUseCase,
		ProvideAccessUseCase,
		ProvideJobs,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
