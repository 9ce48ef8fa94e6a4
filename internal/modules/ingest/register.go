package ingest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/config"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/db"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/migrate"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/controller"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/repository"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/service"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/mqtt"
)

type Deps struct {
	DB      *sql.DB
	Dialect db.Dialect
	Schema  *migrate.Schema
	Cities  *cities.Table
	Config  config.Config
	Metrics service.Recorder
	// Subscriber is optional; nil leaves MQTT ingestion off.
	Subscriber mqtt.MQTTSubscriber
	Logger     *slog.Logger
}

func RegisterFeature(mux *http.ServeMux, deps Deps) *service.Service {
	ingestRepository := repository.NewRepository(deps.DB, deps.Dialect, deps.Schema)

	opts := service.OptionsFromConfig(deps.Config)
	opts.Metrics = deps.Metrics
	ingestService := service.NewService(ingestRepository, deps.Cities, opts)

	ingestController := controller.NewIngestController(ingestService, deps.Config.APIKey)
	ingestController.RegisterRoutes(mux)

	if deps.Subscriber != nil {
		logger := deps.Logger
		if logger == nil {
			logger = slog.Default()
		}
		registerMQTTHandler(deps.Subscriber, ingestService, logger)
	}
	return ingestService
}
