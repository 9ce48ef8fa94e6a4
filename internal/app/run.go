package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/config"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/db"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/httpapi"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/metrics"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/migrate"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/mqtt"
)

const (
	startupDBTimeout   = 5 * time.Second
	mqttConnectTimeout = 5 * time.Second
	shutdownTimeout    = 10 * time.Second
)

func Run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	slog.Info("config loaded",
		"appEnv", cfg.AppEnv,
		"logLevel", cfg.LogLevel.String(),
		"httpAddr", cfg.HTTPAddr,
		"dbDriver", cfg.Driver,
		"sqlitePath", cfg.SQLitePath,
		"dbMaxOpenConns", cfg.MaxOpenConns,
		"dbMaxIdleConns", cfg.MaxIdleConns,
		"dbConnMaxLifetime", cfg.ConnMaxLifetime,
		"apiKeyConfigured", cfg.APIKey != "",
		"timezone", cfg.Location.String(),
		"negativeValuePolicy", cfg.NegativePolicy,
		"requireRegisteredStation", cfg.RequireRegisteredStation,
		"stationCityCodes", len(cfg.StationCityCodes),
		"mqttBroker", cfg.MQTTBroker,
		"mqttPort", cfg.MQTTPort,
		"mqttTopic", cfg.MQTTTopic,
	)

	table, err := cities.NewTable(cfg.StationCityCodes)
	if err != nil {
		return err
	}

	dbConn, dialect, err := db.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := db.Close(dbConn)
		if closeErr != nil {
			slog.Error("db close", "error", closeErr)
		}
	}()

	// An unreachable database is not fatal: the schema is ensured again on
	// the first request that needs it and /readyz reports the outage.
	schema := migrate.NewSchema(dbConn, dialect)
	startupCtx, startupCancel := context.WithTimeout(ctx, startupDBTimeout)
	if err := schema.Ensure(startupCtx); err != nil {
		slog.Warn("database not ready at startup (continuing, will retry on first request)", "error", err)
	} else {
		slog.Info("database connection successful", "dialect", dialect)
	}
	startupCancel()

	m := metrics.New()
	mux := httpapi.NewMux(dbConn, m.Handler())

	deps := ingest.Deps{
		DB:      dbConn,
		Dialect: dialect,
		Schema:  schema,
		Cities:  table,
		Config:  cfg,
		Metrics: m,
		Logger:  logger,
	}

	// Set the MQTT handler before Connect: the broker may deliver queued
	// messages right after CONNACK.
	var subscriber *mqtt.Subscriber
	if cfg.MQTTEnabled() {
		subscriber = mqtt.NewSubscriber(cfg, logger)
		deps.Subscriber = subscriber
	}
	ingest.RegisterFeature(mux, deps)

	if subscriber != nil {
		connectCtx, connectCancel := context.WithTimeout(ctx, mqttConnectTimeout)
		err = subscriber.Connect(connectCtx)
		connectCancel()
		if err != nil {
			slog.Warn("mqtt connection failed (continuing without mqtt)", "error", err)
		}
	}

	srv := httpapi.NewServer(cfg, mux, m)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listening", "addr", cfg.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if subscriber != nil {
		slog.Info("mqtt disconnecting")
		subscriber.Disconnect()
	}

	slog.Info("http shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	err = <-errCh
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
