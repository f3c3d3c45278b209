//go:build wireinject
// +build wireinject

package di

import (
	wire "github.com/google/wire"
	"songbook/internal"
	"songbook/internal/album"
	"songbook/internal/controllers"
	"songbook/internal/gate"
	"songbook/internal/player"
	"songbook/internal/providers"
	"songbook/internal/services"
	"songbook/internal/storage"
	"songbook/internal/structures"
)

func InitApp(cfg *structures.CliFlags) (*internal.App, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewClockProvider,
		services.NewRegistry,
		wire.Bind(new(providers.MountCounter), new(*services.Registry)),
		providers.NewMetricsProvider,

		gate.DurableKeys,
		storage.NewStoreProvider,
		storage.NewZstdCompressor,
		storage.NewScheduler,
		album.NewSourceProvider,
		player.NewMounter,
		services.NewPlayerService,
		services.NewSweeper,
		controllers.NewPlayerController,
		controllers.NewHealthController,
		internal.InitRoutes,
		internal.NewApp,
	)

	return nil, nil
}

// InitMaintenance builds what the offline commands need: the store and its
// snapshot scheduler, without metrics or an HTTP server.
func InitMaintenance(cfg *structures.CliFlags) (*Maintenance, error) {

	wire.Build(
		providers.NewConfigProvider,
		providers.NewLogProvider,
		providers.NewNoopMetrics,

		gate.DurableKeys,
		storage.NewStoreProvider,
		storage.NewZstdCompressor,
		storage.NewScheduler,
		wire.Struct(new(Maintenance), "*"),
	)

	return nil, nil
}
