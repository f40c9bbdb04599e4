//go:build wireinject
// +build wireinject

package di

import (
	"FinSight/pkg/config"
	"FinSight/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCacheBackend,
		ProvideStore,
		ProvideCoalescer,
		ProvideKafkaProducer,

		// Domain services
		ProvideLimiter,
		ProvideMarketsService,
		ProvideTechnicalService,
		ProvideAIService,
		ProvideQuoteStream,

		// HTTP and application
		ProvideRouter,
		ProvideApp,
	)
	return &server.App{}, nil
}
