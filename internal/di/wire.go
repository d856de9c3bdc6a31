//go:build wireinject
// +build wireinject

package di

import (
	"RatioLab/pkg/config"
	"RatioLab/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideClickHouseClient,
		ProvidePGPool,
		ProvideRedisCache,
		ProvideCacheService,

		// Repositories
		ProvideMinuteFeed,
		ProvideResultSink,
		ProvideMetrics,

		// Use cases
		ProvideBacktester,
		ProvideJobHandler,

		// Transports
		ProvideKafkaConsumer,
		ProvideJobQueue,
		ProvideLimiter,
		ProvideBacktestHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
