//go:build wireinject
// +build wireinject

package di

import (
	"FinBack/pkg/config"
	"FinBack/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideCandleStore,
		ProvideLedgerStore,
		ProvideResultPublisher,
		ProvideResultCache,

		// Use cases
		ProvideCandlesUseCase,
		ProvideBacktestRunner,
		ProvideKafkaBacktestHandler,

		// Transport
		ProvideRateLimiter,
		ProvideHTTPHandler,

		ProvideApp,
	)
	return &server.App{}, nil
}
