package httpapi

import (
	"database/sql"
	"net/http"
)

// NewMux registers the infrastructure routes. metricsHandler may be nil.
func NewMux(db *sql.DB, metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db)
	registerEcho(mux)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux
}
