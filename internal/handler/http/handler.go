package http

import (
	"github.com/MKhiriev/go-sync-engine/internal/logger"
	"github.com/MKhiriev/go-sync-engine/models"
)

type Handler struct {
	engine  Engine
	storage Pinger
	models  LocalModels
	schemas Schemas
	events  EventSource
	info    models.AppBuildInfo

	logger *logger.Logger
}

func NewHandler(services Services, info models.AppBuildInfo, logger *logger.Logger) *Handler {
	logger.Info().Msg("http handler created")
	return &Handler{
		engine:  services.Engine,
		storage: services.Storage,
		models:  services.Models,
		schemas: services.Schemas,
		events:  services.Events,
		info:    info,
		logger:  logger,
	}
}
