package service

import (
	"context"
	"log/slog"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/repository"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

// MappingRequestFrom reads a mapping upsert from a payload.
func MappingRequestFrom(p payload.Payload) types.MappingRequest {
	prev, _ := p.First("previous_station_code", "old_station_code")
	name, _ := p.First("city", "city_name")
	return types.MappingRequest{
		StationCode:         p.Get("station_code"),
		PreviousStationCode: prev,
		CityName:            name,
		CityID:              p.Get("city_id"),
	}
}

// cityFromRequest returns the requested city, "" when none was given, or
// ErrInvalidCity when a value was given but is not known.
func (s *Service) cityFromRequest(req types.MappingRequest) (string, error) {
	if req.CityName != "" {
		name, ok := s.cities.ByName(req.CityName)
		if !ok {
			return "", types.ErrInvalidCity
		}
		return name, nil
	}
	if req.CityID != "" {
		name, ok := s.cities.ByIDString(req.CityID)
		if !ok {
			return "", types.ErrInvalidCity
		}
		return name, nil
	}
	return "", nil
}

// UpsertMapping creates, updates or renames a station mapping in one
// transaction.
func (s *Service) UpsertMapping(ctx context.Context, req types.MappingRequest) (types.MappingResult, error) {
	res, err := s.upsertMapping(ctx, req)
	s.metrics.Mapping(outcome(err))
	if err != nil {
		return types.MappingResult{}, err
	}
	slog.Info("station mapping saved",
		"station_code", res.StationCode,
		"previous_station_code", req.PreviousStationCode,
		"city", res.City,
		"operation", res.Operation,
	)
	return res, nil
}

func (s *Service) upsertMapping(ctx context.Context, req types.MappingRequest) (types.MappingResult, error) {
	code, ok := cities.NormalizeStationCode(req.StationCode)
	if !ok {
		return types.MappingResult{}, types.ErrMissingStationCode
	}
	city, err := s.cityFromRequest(req)
	if err != nil {
		return types.MappingResult{}, err
	}
	prev, hasPrev := cities.NormalizeStationCode(req.PreviousStationCode)

	var result types.MappingResult
	err = s.repository.InTx(ctx, func(tx repository.Tx) error {
		now := s.now()

		var existing *types.StationMapping
		op := types.OpUpdated
		if hasPrev && prev != code {
			m, err := tx.MappingByCode(ctx, prev)
			if err != nil {
				return err
			}
			if m == nil {
				return types.ErrStationNotFound
			}
			existing = m
			op = types.OpRenamed
		} else {
			m, err := tx.MappingByCode(ctx, code)
			if err != nil {
				return err
			}
			existing = m
		}

		owner, err := tx.MappingByCode(ctx, code)
		if err != nil {
			return err
		}
		if owner != nil && (existing == nil || owner.ID != existing.ID) {
			return types.ErrDuplicateStationCode
		}

		if existing == nil {
			if city == "" {
				return types.ErrMissingCity
			}
			if err := tx.InsertMapping(ctx, code, city, now); err != nil {
				return err
			}
			result = types.MappingResult{StationCode: code, City: city, Operation: types.OpCreated}
			return nil
		}

		if city == "" {
			city = existing.City
		}
		if err := tx.UpdateMapping(ctx, existing.ID, code, city, now); err != nil {
			return err
		}
		result = types.MappingResult{StationCode: code, City: city, Operation: op}
		return nil
	})
	if err != nil {
		return types.MappingResult{}, err
	}
	return result, nil
}
