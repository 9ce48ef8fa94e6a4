package ingest

import (
	"context"
	"log/slog"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/mqtt"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

type ingester interface {
	Ingest(ctx context.Context, p payload.Payload) (types.IngestResult, error)
}

// registerMQTTHandler feeds broker messages through the same ingest path as
// HTTP submissions. The broker authenticates publishers, so no API key is
// checked here.
func registerMQTTHandler(subscriber mqtt.MQTTSubscriber, svc ingester, logger *slog.Logger) {
	subscriber.SetMessageHandler(func(ctx context.Context, p payload.Payload) error {
		res, err := svc.Ingest(ctx, p)
		if err != nil {
			logger.Warn("failed to ingest mqtt reading",
				"station_code", p.Get("station_code"),
				"error", err,
			)
			return err
		}
		logger.Debug("stored mqtt reading",
			"station_code", res.StationCode,
			"gas", res.GasUpserted,
			"meteo", res.MeteoUpserted,
		)
		return nil
	})
}
