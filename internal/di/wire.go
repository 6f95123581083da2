//go:build wireinject
// +build wireinject

package di

import (
	"SignalLab/pkg/config"
	"SignalLab/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients (nil when disabled)
		ProvideRedisClient,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideRedisCache,
		ProvideResultCache,
		ProvideJobStore,
		ProvideObservationSource,
		ProvideResultPublisher,

		// Analysis core
		ProvideLexicon,
		ProvideSentimentAnalyzer,
		ProvideForecaster,
		ProvideDataset,

		// Use cases
		ProvideForecastUseCase,
		ProvideSentimentUseCase,
		ProvideSentimentJobHandler,
		ProvideRedisQueue,
		ProvideSentimentJobs,

		// Transport and application
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
