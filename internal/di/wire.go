//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"CoinPulse/pkg/config"
	"CoinPulse/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvideAnalyticsMetrics,
		ProvideCache,
		ProvideClickHouseClient,

		// Collaborators
		ProvideMarketSource,
		ProvideEventQuerier,

		// Repositories
		ProvideReportStore,
		ProvideReportPublisher,

		// Use cases
		ProvidePipelineConfig,
		ProvidePipeline,

		// Transport and application
		ProvideHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
