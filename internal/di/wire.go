//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"StockTime/pkg/config"
	"StockTime/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideRegistry,
		ProvideMetrics,

		// Infrastructure clients
		ProvideCache,
		ProvideKafkaProducer,

		// Repositories and gateways
		ProvideGateway,
		ProvideEventPublisher,
		ProvideEventPipeline,

		// Delivery
		ProvideHub,
		ProvideChartLibrary,
		ProvideSessionRegistry,
		ProvideLimiter,
		ProvideDashboardHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
