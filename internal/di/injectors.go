//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"tally/internal"
	"tally/internal/controllers"
	"tally/internal/maintenance"
	"tally/internal/maintenance/interfaces"
	"tally/internal/models"
	"tally/internal/providers"
	"tally/internal/services"
	"tally/internal/storage"
	"tally/internal/stream"
	"tally/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewMetricsProvider,
		providers.NewInstrumentedCacheProvider,
		storage.NewStore,
		models.NewClock,

		services.NewCounterService,
		services.NewPresenceService,
		services.NewActivityService,
		services.NewDashboardService,
		stream.NewHub,
		wire.Bind(new(interfaces.TickerInterface), new(*stream.Hub)),

		maintenance.NewZstdCompressor,
		maintenance.NewArchiver,
		maintenance.NewScheduler,
		controllers.NewApiController,
		controllers.NewStreamController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewHandler,
		internal.NewApp,
	)

	return nil, nil, nil
}

func InitArchiver(cfg *structures.CliFlags) (*maintenance.Archiver, func(), error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		maintenance.NewZstdCompressor,
		maintenance.NewArchiver,
	)

	return nil, nil, nil
}
