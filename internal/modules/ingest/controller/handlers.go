package controller

import (
	"errors"
	"net/http"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/service"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/utils"
)

func (c *ingestControllerImpl) handleIngest(w http.ResponseWriter, r *http.Request) {
	if err := c.authenticate(r); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := payload.FromRequest(r)
	if err != nil {
		writePayloadError(w, err)
		return
	}

	res, err := c.service.Ingest(r.Context(), p)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"gas_upserted":   res.GasUpserted,
		"meteo_upserted": res.MeteoUpserted,
	})
}

func (c *ingestControllerImpl) handleStationMapping(w http.ResponseWriter, r *http.Request) {
	if err := c.authenticate(r); err != nil {
		writeServiceError(w, r, err)
		return
	}
	p, err := payload.FromRequest(r)
	if err != nil {
		writePayloadError(w, err)
		return
	}

	res, err := c.service.UpsertMapping(r.Context(), service.MappingRequestFrom(p))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"status":       "ok",
		"station_code": res.StationCode,
		"city":         res.City,
		"operation":    res.Operation,
	})
}

func (c *ingestControllerImpl) handleCities(w http.ResponseWriter, r *http.Request) {
	if err := c.authenticate(r); err != nil {
		writeServiceError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"cities": c.service.Cities()})
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *types.APIError
	if errors.As(err, &apiErr) {
		utils.WriteError(w, apiErr.Status, apiErr.Code, apiErr.Message)
		return
	}
	utils.WriteInternalError(w, r, err)
}

func writePayloadError(w http.ResponseWriter, err error) {
	if errors.Is(err, payload.ErrTooLarge) {
		utils.WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body exceeds 1 MiB")
		return
	}
	utils.WriteError(w, http.StatusBadRequest, "invalid_payload", "could not read request body")
}
