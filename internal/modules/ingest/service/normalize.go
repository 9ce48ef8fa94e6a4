package service

import (
	"math"
	"strconv"
	"strings"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/config"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/payload"
)

// sentinel is what stations send when a sensor is absent or failed.
const sentinel = -1.0

type alias struct {
	column string
	keys   []string
}

var gasAliases = []alias{
	{"co_ppm", []string{"CO", "co_ppm"}},
	{"so2_ppb", []string{"SO2", "so2_ppb"}},
	{"no2_ppb", []string{"NO2", "no2_ppb"}},
	{"no_ppb", []string{"NO", "no_ppb"}},
	{"h2s_ppb", []string{"H2S", "h2s_ppb"}},
	{"o3_ppb", []string{"O3", "o3_ppb"}},
	{"nh3_ppb", []string{"NH3", "nh3_ppb"}},
	{"pm2_5_ugm3", []string{"PM2.5", "pm2_5", "pm2_5_ugm3"}},
	{"pm10_ugm3", []string{"PM10", "pm10", "pm10_ugm3"}},
}

var meteoAliases = []alias{
	{"wd_deg", []string{"WD", "wd_deg"}},
	{"temp_c", []string{"TEMP", "temp_c", "temperature", "temp"}},
	{"rh_pct", []string{"RH", "rh_pct", "humidity", "hum"}},
	{"ws_ms", []string{"WS", "ws_ms", "wind", "wind_speed"}},
	{"gst_ms", []string{"GST", "gst_ms"}},
	{"rain_mm", []string{"RAIN", "rain_mm", "rain", "rainfall"}},
	{"uv_index", []string{"UV", "uv_index"}},
	{"lux", []string{"LUX", "lux"}},
	{"pres_hpa", []string{"PRES", "pres_hpa", "pressure"}},
}

// NormalizeValue coerces one raw value. Empty, non-numeric, non-finite and
// sentinel values yield nil. Under NegativeClamp any other negative becomes 0.
func NormalizeValue(raw string, policy config.NegativePolicy) *float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	if v == sentinel {
		return nil
	}
	if v < 0 && policy == config.NegativeClamp {
		v = 0
	}
	return &v
}

// Normalize builds the full column set of schema from p. For each column the
// first alias with a non-empty value is used; later aliases are not tried
// even when that value does not parse.
func Normalize(p payload.Payload, schema types.Schema, policy config.NegativePolicy) types.Fields {
	aliases := gasAliases
	if schema == types.Meteo {
		aliases = meteoAliases
	}
	out := make(types.Fields, len(aliases))
	for _, a := range aliases {
		raw, _ := p.First(a.keys...)
		out[a.column] = NormalizeValue(raw, policy)
	}
	return out
}

// ExtractStation returns the first non-empty station identifier, trimmed
// but not otherwise normalized.
func ExtractStation(p payload.Payload) (string, bool) {
	return p.First(payload.StationKeys...)
}
