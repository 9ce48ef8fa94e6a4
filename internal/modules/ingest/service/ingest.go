package service

import (
	"context"
	"log/slog"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/repository"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

// Ingest stores one submission. Gas and meteo rows are written together in
// a single transaction; a schema with no values gets no row.
func (s *Service) Ingest(ctx context.Context, p payload.Payload) (types.IngestResult, error) {
	res, err := s.ingest(ctx, p)
	s.metrics.Ingest(outcome(err))
	if err != nil {
		return types.IngestResult{}, err
	}
	if res.GasUpserted > 0 {
		s.metrics.RowInserted(types.Gas)
	}
	if res.MeteoUpserted > 0 {
		s.metrics.RowInserted(types.Meteo)
	}

	slog.Info("reading ingested",
		"station_code", res.StationCode,
		"city", derefOr(res.City, ""),
		"gas", res.GasUpserted,
		"meteo", res.MeteoUpserted,
	)
	return res, nil
}

func (s *Service) ingest(ctx context.Context, p payload.Payload) (types.IngestResult, error) {
	station, ok := ExtractStation(p)
	if !ok {
		return types.IngestResult{}, types.ErrMissingStationCode
	}
	code, ok := cities.NormalizeStationCode(station)
	if !ok {
		return types.IngestResult{}, types.ErrMissingStationCode
	}

	gas := Normalize(p, types.Gas, s.policy)
	meteo := Normalize(p, types.Meteo, s.policy)
	hasGas, hasMeteo := gas.HasAny(), meteo.HasAny()

	res := types.IngestResult{StationCode: code}
	err := s.repository.InTx(ctx, func(tx repository.Tx) error {
		var mapping *types.StationMapping
		if s.requireRegistered {
			m, err := tx.MappingByCode(ctx, code)
			if err != nil {
				return err
			}
			mapping = m
		}

		if !hasGas && !hasMeteo {
			if s.requireRegistered && mapping == nil {
				return types.ErrStationNotRegistered
			}
			return types.ErrNoMetrics
		}

		city, err := s.resolver.Resolve(ctx, tx, p, station)
		if err != nil {
			return err
		}
		res.City = city

		if s.requireRegistered {
			if err := checkRegistered(ctx, tx, mapping, city, hasGas, hasMeteo); err != nil {
				return err
			}
		}

		now := s.now()
		if hasGas {
			r := types.Reading{StationCode: code, City: city, Time: now, Values: gas}
			if err := tx.InsertReading(ctx, types.Gas, r); err != nil {
				return err
			}
			res.GasUpserted = 1
		}
		if hasMeteo {
			r := types.Reading{StationCode: code, City: city, Time: now, Values: meteo}
			if err := tx.InsertReading(ctx, types.Meteo, r); err != nil {
				return err
			}
			res.MeteoUpserted = 1
		}
		return nil
	})
	if err != nil {
		slog.Debug("ingest rejected", "station_code", code, "error", err)
		return types.IngestResult{}, err
	}
	return res, nil
}

// checkRegistered requires a mapping for gas. Meteo is accepted when either
// the station or, failing that, its resolved city has a mapping.
func checkRegistered(ctx context.Context, tx repository.Tx, mapping *types.StationMapping, city *string, hasGas, hasMeteo bool) error {
	if mapping != nil {
		return nil
	}
	if hasGas {
		return types.ErrStationNotRegistered
	}
	if hasMeteo {
		if city == nil {
			return types.ErrStationNotRegistered
		}
		ok, err := tx.HasMappingForCity(ctx, *city)
		if err != nil {
			return err
		}
		if !ok {
			return types.ErrStationNotRegistered
		}
	}
	return nil
}

func derefOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
