package service

import (
	"context"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/repository"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

var (
	cityNameKeys = []string{"city", "city_name"}
	cityIDKeys   = []string{"city_id", "station_id"}
	codeKeys     = []string{"station_code", "station", "id"}
)

// Resolver finds the city a reading belongs to.
type Resolver struct {
	cities *cities.Table
}

func NewResolver(table *cities.Table) *Resolver {
	return &Resolver{cities: table}
}

// Resolve tries, in order: explicit city names, numeric city ids, station
// codes in the payload (persisted mapping, then static code table), and
// finally the extracted station token, which may also be a city id. It
// returns nil when nothing matches.
func (r *Resolver) Resolve(ctx context.Context, tx repository.Tx, p payload.Payload, station string) (*string, error) {
	for _, k := range cityNameKeys {
		if name, ok := r.cities.ByName(p.Get(k)); ok {
			return &name, nil
		}
	}

	for _, k := range cityIDKeys {
		if name, ok := r.cities.ByIDString(p.Get(k)); ok {
			return &name, nil
		}
	}

	for _, k := range codeKeys {
		city, err := r.byStation(ctx, tx, p.Get(k))
		if err != nil || city != nil {
			return city, err
		}
	}

	if station == "" {
		return nil, nil
	}
	city, err := r.byStation(ctx, tx, station)
	if err != nil || city != nil {
		return city, err
	}
	if name, ok := r.cities.ByIDString(station); ok {
		return &name, nil
	}
	return nil, nil
}

func (r *Resolver) byStation(ctx context.Context, tx repository.Tx, raw string) (*string, error) {
	code, ok := cities.NormalizeStationCode(raw)
	if !ok {
		return nil, nil
	}
	m, err := tx.MappingByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if m != nil && m.City != "" {
		return &m.City, nil
	}
	if city, ok := r.cities.ByCode(code); ok {
		return &city, nil
	}
	return nil, nil
}
