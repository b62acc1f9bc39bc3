//go:build wireinject
// +build wireinject

package di

import (
	"CryptoSatX/internal/domain/repository"
	"CryptoSatX/pkg/config"
	"CryptoSatX/pkg/metrics"
	"CryptoSatX/pkg/server"

	"github.com/google/wire"
)

var infraSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	wire.Bind(new(repository.Metrics), new(*metrics.Recorder)),
	ProvideCache,
	ProvideClickHouseClient,
	ProvideKafkaProducer,
)

var signalSet = wire.NewSet(
	ProvideDispatcher,
	ProvideScoringConfig,
	ProvideSignalEngine,
	ProvideSignalStore,
	ProvideSignalPublisher,
	ProvideSignalService,
	ProvideBinanceClient,
	ProvideLiquidationMonitor,
	ProvideLiquidationStream,
	ProvideOperations,
)

var transportSet = wire.NewSet(
	ProvideRateLimiter,
	ProvideHTTPServer,
	ProvideKafkaConsumer,
	ProvideApp,
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(infraSet, signalSet, transportSet)
	return &server.App{}, nil
}
