package controller

import (
	"context"
	"net/http"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

// IngestService is what the HTTP layer needs from the ingest service.
type IngestService interface {
	Ingest(ctx context.Context, p payload.Payload) (types.IngestResult, error)
	UpsertMapping(ctx context.Context, req types.MappingRequest) (types.MappingResult, error)
	Cities() []cities.City
}

type IngestController interface {
	RegisterRoutes(mux *http.ServeMux)
}

type ingestControllerImpl struct {
	service IngestService
	apiKey  string
}

// NewIngestController builds the controller. An empty apiKey disables
// authentication.
func NewIngestController(service IngestService, apiKey string) IngestController {
	return &ingestControllerImpl{service: service, apiKey: apiKey}
}

func (c *ingestControllerImpl) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /ingest", c.handleIngest)
	mux.HandleFunc("POST /ingest/{token}", c.handleIngest)
	mux.HandleFunc("POST /station-mappings", c.handleStationMapping)
	mux.HandleFunc("POST /station-mappings/{token}", c.handleStationMapping)
	mux.HandleFunc("GET /cities", c.handleCities)
	mux.HandleFunc("GET /cities/{token}", c.handleCities)
}
