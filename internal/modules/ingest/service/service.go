package service

import (
	"errors"
	"time"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/config"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/repository"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
)

// Recorder receives ingest and mapping outcomes. Outcomes are "ok", an API
// error code, or "internal_error".
type Recorder interface {
	Ingest(outcome string)
	RowInserted(schema types.Schema)
	Mapping(outcome string)
}

type noopRecorder struct{}

func (noopRecorder) Ingest(string)            {}
func (noopRecorder) RowInserted(types.Schema) {}
func (noopRecorder) Mapping(string)           {}

type Options struct {
	NegativePolicy           config.NegativePolicy
	RequireRegisteredStation bool
	// Location is the zone server timestamps are written in. Defaults to UTC.
	Location *time.Location
	Metrics  Recorder
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// OptionsFromConfig copies the ingest settings out of cfg.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		NegativePolicy:           cfg.NegativePolicy,
		RequireRegisteredStation: cfg.RequireRegisteredStation,
		Location:                 cfg.Location,
	}
}

type Service struct {
	repository        repository.Repository
	cities            *cities.Table
	resolver          *Resolver
	policy            config.NegativePolicy
	requireRegistered bool
	loc               *time.Location
	clock             func() time.Time
	metrics           Recorder
}

func NewService(repo repository.Repository, table *cities.Table, opts Options) *Service {
	s := &Service{
		repository:        repo,
		cities:            table,
		resolver:          NewResolver(table),
		policy:            opts.NegativePolicy,
		requireRegistered: opts.RequireRegisteredStation,
		loc:               opts.Location,
		clock:             opts.Clock,
		metrics:           opts.Metrics,
	}
	if s.policy == "" {
		s.policy = config.NegativeKeep
	}
	if s.loc == nil {
		s.loc = time.UTC
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.metrics == nil {
		s.metrics = noopRecorder{}
	}
	return s
}

// Cities lists the known cities ordered by id.
func (s *Service) Cities() []cities.City {
	return s.cities.List()
}

func (s *Service) now() time.Time {
	return s.clock().In(s.loc)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var apiErr *types.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return "internal_error"
}
