package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/MKhiriev/go-sync-engine/internal/app"
	"github.com/MKhiriev/go-sync-engine/internal/config"
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

var (
	buildVersion string
	buildDate    string
	buildCommit  string
)

func main() {
	info := models.NewAppBuildInfo(buildVersion, buildDate, buildCommit)
	fmt.Print(info)

	cfg, err := config.GetEngineConfig()
	if err != nil {
		logger.NewLogger("syncd").Fatal().Err(err).Msg("error getting configs")
	}

	log := logger.NewFileLogger("syncd", logger.FileOptions{Path: cfg.App.LogFile})
	if cfg.App.LogLevel != "" && !logger.SetLevel(cfg.App.LogLevel) {
		log.Warn().Str("level", cfg.App.LogLevel).Msg("unknown log level, keeping debug")
	}
	log.Debug().
		Str("driver", cfg.Storage.Driver).
		Str("graphql_url", cfg.Adapter.GraphQLURL).
		Str("ops_address", cfg.Server.HTTPAddress).
		Msg("received configs")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)
	defer stop()

	daemon, err := app.NewApp(ctx, cfg, info.WithVersion(cfg.App.Version), log)
	if err != nil {
		log.Fatal().Err(err).Msg("init sync daemon error")
	}

	if err = daemon.Run(ctx); err != nil {
		log.Fatal().Err(err).Msg("sync daemon run error")
	}
	log.Info().Msg("sync daemon stopped")
}
