package types

import (
	"net/http"
	"time"
)

// Schema names one of the two reading tables.
type Schema string

const (
	Gas   Schema = "gas"
	Meteo Schema = "meteo"
)

// GasColumns and MeteoColumns list the value columns of each schema in
// insert order.
var (
	GasColumns = []string{
		"co_ppm", "so2_ppb", "no2_ppb", "no_ppb", "h2s_ppb",
		"o3_ppb", "nh3_ppb", "pm2_5_ugm3", "pm10_ugm3",
	}
	MeteoColumns = []string{
		"wd_deg", "temp_c", "rh_pct", "ws_ms", "gst_ms",
		"rain_mm", "uv_index", "lux", "pres_hpa",
	}
)

// Columns returns the value columns for s, or nil for an unknown schema.
func (s Schema) Columns() []string {
	switch s {
	case Gas:
		return GasColumns
	case Meteo:
		return MeteoColumns
	default:
		return nil
	}
}

// Fields maps a column name to its normalized value. nil means no reading.
type Fields map[string]*float64

// HasAny reports whether at least one column holds a value.
func (f Fields) HasAny() bool {
	for _, v := range f {
		if v != nil {
			return true
		}
	}
	return false
}

// Reading is one row about to be written to a reading table.
type Reading struct {
	StationCode string
	City        *string
	Time        time.Time
	Values      Fields
}

type StationMapping struct {
	ID          int64     `json:"id"`
	StationCode string    `json:"station_code"`
	City        string    `json:"city"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type Operation string

const (
	OpCreated Operation = "created"
	OpUpdated Operation = "updated"
	OpRenamed Operation = "renamed"
)

// MappingRequest is a station-mapping upsert as read from a payload.
type MappingRequest struct {
	StationCode         string
	PreviousStationCode string
	CityName            string
	CityID              string
}

type MappingResult struct {
	StationCode string    `json:"station_code"`
	City        string    `json:"city"`
	Operation   Operation `json:"operation"`
}

type IngestResult struct {
	StationCode   string  `json:"-"`
	City          *string `json:"-"`
	GasUpserted   int     `json:"gas_upserted"`
	MeteoUpserted int     `json:"meteo_upserted"`
}

// APIError is a failure that is reported to the client as is.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return e.Code + ": " + e.Message
}

var (
	ErrMissingAPIKey = &APIError{Status: http.StatusUnauthorized, Code: "missing_api_key", Message: "API key is required"}
	ErrInvalidAPIKey = &APIError{Status: http.StatusUnauthorized, Code: "invalid_api_key", Message: "API key is invalid"}

	ErrMissingStationCode = &APIError{Status: http.StatusBadRequest, Code: "missing_station_code", Message: "station_code is required"}
	ErrNoMetrics          = &APIError{Status: http.StatusBadRequest, Code: "no_metrics", Message: "payload has no recognized gas or meteo values"}
	ErrMissingCity        = &APIError{Status: http.StatusBadRequest, Code: "missing_city", Message: "city or city_id is required for a new station"}
	ErrInvalidCity        = &APIError{Status: http.StatusBadRequest, Code: "invalid_city", Message: "city is not a known city name or id"}
	ErrValueOutOfRange    = &APIError{Status: http.StatusBadRequest, Code: "value_out_of_range", Message: "a reading is too large to store"}

	ErrStationNotFound      = &APIError{Status: http.StatusNotFound, Code: "station_not_found", Message: "previous station code has no mapping"}
	ErrStationNotRegistered = &APIError{Status: http.StatusNotFound, Code: "station_not_registered", Message: "station has no city mapping"}

	ErrDuplicateStationCode = &APIError{Status: http.StatusConflict, Code: "duplicate_station_code", Message: "station code already belongs to another mapping"}
)
