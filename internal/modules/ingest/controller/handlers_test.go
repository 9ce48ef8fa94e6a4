package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/cities"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

type mockService struct {
	ingestRes  types.IngestResult
	ingestErr  error
	mappingRes types.MappingResult
	mappingErr error
	cities     []cities.City

	gotPayload payload.Payload
	gotMapping types.MappingRequest
}

func (m *mockService) Ingest(_ context.Context, p payload.Payload) (types.IngestResult, error) {
	m.gotPayload = p
	return m.ingestRes, m.ingestErr
}

func (m *mockService) UpsertMapping(_ context.Context, req types.MappingRequest) (types.MappingResult, error) {
	m.gotMapping = req
	return m.mappingRes, m.mappingErr
}

func (m *mockService) Cities() []cities.City {
	return m.cities
}

func newTestMux(svc IngestService, apiKey string) *http.ServeMux {
	mux := http.NewServeMux()
	NewIngestController(svc, apiKey).RegisterRoutes(mux)
	return mux
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("body is not valid JSON: %v", err)
	}
	return body
}

func Test_handleIngest(t *testing.T) {
	t.Run("returns counts on success", func(t *testing.T) {
		svc := &mockService{ingestRes: types.IngestResult{GasUpserted: 1}}
		mux := newTestMux(svc, "")
		req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(`{"station_code":"S1","CO":"12.5","SO2":"-1"}`))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		body := decodeBody(t, rec)
		if body["status"] != "ok" || body["gas_upserted"] != float64(1) || body["meteo_upserted"] != float64(0) {
			t.Errorf("body = %v", body)
		}
		if svc.gotPayload["CO"] != "12.5" {
			t.Errorf("payload passed to service = %v", svc.gotPayload)
		}
	})

	t.Run("maps API errors to status and code", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
			code   string
		}{
			{err: types.ErrMissingStationCode, status: http.StatusBadRequest, code: "missing_station_code"},
			{err: types.ErrNoMetrics, status: http.StatusBadRequest, code: "no_metrics"},
			{err: types.ErrStationNotRegistered, status: http.StatusNotFound, code: "station_not_registered"},
			{err: types.ErrValueOutOfRange, status: http.StatusBadRequest, code: "value_out_of_range"},
			{err: errors.New("disk full"), status: http.StatusInternalServerError, code: "internal_error"},
		}
		for _, tt := range tests {
			mux := newTestMux(&mockService{ingestErr: tt.err}, "")
			req := httptest.NewRequest(http.MethodPost, "/ingest?station_code=S1", nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("%s: status = %d; want %d", tt.code, rec.Code, tt.status)
			}
			body := decodeBody(t, rec)
			if body["error"] != tt.code {
				t.Errorf("error = %v; want %s", body["error"], tt.code)
			}
			if _, ok := body["message"]; !ok {
				t.Errorf("%s: body has no message: %v", tt.code, body)
			}
		}
	})

	t.Run("rejects oversized body", func(t *testing.T) {
		svc := &mockService{}
		mux := newTestMux(svc, "")
		body := `{"station_code":"S1","note":"` + strings.Repeat("x", 1<<20) + `"}`
		req := httptest.NewRequest(http.MethodPost, "/ingest?station_code=S1", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusRequestEntityTooLarge {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusRequestEntityTooLarge)
		}
		if body := decodeBody(t, rec); body["error"] != "payload_too_large" {
			t.Errorf("error = %v; want payload_too_large", body["error"])
		}
		if svc.gotPayload != nil {
			t.Errorf("service called with %v", svc.gotPayload)
		}
	})

	t.Run("rejects GET", func(t *testing.T) {
		mux := newTestMux(&mockService{}, "")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ingest", nil))
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("status = %d; want %d", rec.Code, http.StatusMethodNotAllowed)
		}
	})
}

func TestAuthentication(t *testing.T) {
	const key = "s3cret"
	tests := []struct {
		name   string
		target string
		header string
		status int
		code   string
	}{
		{name: "header", target: "/ingest", header: key, status: http.StatusOK},
		{name: "query", target: "/ingest?api_key=" + key, status: http.StatusOK},
		{name: "path token", target: "/ingest/" + key, status: http.StatusOK},
		{name: "header wins over bad path", target: "/ingest/wrong", header: key, status: http.StatusOK},
		{name: "missing", target: "/ingest", status: http.StatusUnauthorized, code: "missing_api_key"},
		{name: "wrong header", target: "/ingest", header: "nope", status: http.StatusUnauthorized, code: "invalid_api_key"},
		{name: "wrong path", target: "/station-mappings/nope", status: http.StatusUnauthorized, code: "invalid_api_key"},
		{name: "cities missing", target: "/cities", status: http.StatusUnauthorized, code: "missing_api_key"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newTestMux(&mockService{}, key)
			method := http.MethodPost
			if strings.HasPrefix(tt.target, "/cities") {
				method = http.MethodGet
			}
			req := httptest.NewRequest(method, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("X-API-Key", tt.header)
			}
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Fatalf("status = %d; want %d", rec.Code, tt.status)
			}
			if tt.code != "" {
				if body := decodeBody(t, rec); body["error"] != tt.code {
					t.Errorf("error = %v; want %s", body["error"], tt.code)
				}
			}
		})
	}
}

func Test_handleStationMapping(t *testing.T) {
	t.Run("parses form and returns result", func(t *testing.T) {
		svc := &mockService{mappingRes: types.MappingResult{StationCode: "NEW", City: "Irpin", Operation: types.OpRenamed}}
		mux := newTestMux(svc, "")
		form := url.Values{"station_code": {"new"}, "previous_station_code": {"old"}, "city": {"irpin"}}
		req := httptest.NewRequest(http.MethodPost, "/station-mappings", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
		}
		want := types.MappingRequest{StationCode: "new", PreviousStationCode: "old", CityName: "irpin"}
		if svc.gotMapping != want {
			t.Errorf("request = %+v; want %+v", svc.gotMapping, want)
		}
		body := decodeBody(t, rec)
		if body["status"] != "ok" || body["station_code"] != "NEW" || body["city"] != "Irpin" || body["operation"] != "renamed" {
			t.Errorf("body = %v", body)
		}
	})

	t.Run("maps conflicts and missing rows", func(t *testing.T) {
		tests := []struct {
			err    error
			status int
		}{
			{err: types.ErrDuplicateStationCode, status: http.StatusConflict},
			{err: types.ErrStationNotFound, status: http.StatusNotFound},
			{err: types.ErrInvalidCity, status: http.StatusBadRequest},
			{err: types.ErrMissingCity, status: http.StatusBadRequest},
		}
		for _, tt := range tests {
			mux := newTestMux(&mockService{mappingErr: tt.err}, "")
			req := httptest.NewRequest(http.MethodPost, "/station-mappings?station_code=S1", nil)
			rec := httptest.NewRecorder()

			mux.ServeHTTP(rec, req)

			if rec.Code != tt.status {
				t.Errorf("%v: status = %d; want %d", tt.err, rec.Code, tt.status)
			}
		}
	})
}

func Test_handleCities(t *testing.T) {
	svc := &mockService{cities: []cities.City{{ID: 1, Name: "Pereiaslav"}, {ID: 3, Name: "Irpin"}}}
	mux := newTestMux(svc, "k")
	req := httptest.NewRequest(http.MethodGet, "/cities/k", nil)
	rec := httptest.NewRecorder()

	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d; want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q; want application/json", ct)
	}
	var body struct {
		Cities []cities.City `json:"cities"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Cities) != 2 || body.Cities[1] != (cities.City{ID: 3, Name: "Irpin"}) {
		t.Errorf("cities = %+v", body.Cities)
	}
}
