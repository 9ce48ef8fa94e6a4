package utils

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Error("failed to write JSON", "error", err)
	}
}

// WriteError writes the {error, message} body. code is a stable machine
// readable identifier such as "missing_station_code".
func WriteError(w http.ResponseWriter, status int, code string, msg string) {
	WriteJSON(w, status, map[string]any{
		"error":   code,
		"message": msg,
	})
}

// WriteInternalError hides err from the client and logs it.
func WriteInternalError(w http.ResponseWriter, r *http.Request, err error) {
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	WriteError(w, http.StatusInternalServerError, "internal_error", "internal server error")
}
