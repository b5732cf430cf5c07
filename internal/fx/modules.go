package fx

import (
	"duel-tracker/internal/api"
	"duel-tracker/internal/config"
	"duel-tracker/internal/database"
	"duel-tracker/internal/logger"
	"duel-tracker/internal/repository"
	"duel-tracker/internal/server"
	"duel-tracker/internal/service"

	"go.uber.org/fx"
)

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewGameRepository),
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	// registry client
	fx.Provide(api.NewRegistryClient),
	// svc
	fx.Provide(service.NewGameService),
	fx.Provide(service.NewAggregateService),
	// server
	fx.Provide(server.NewTrackerServer),
)
