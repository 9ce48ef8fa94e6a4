package controller

import (
	"crypto/subtle"
	"log/slog"
	"net/http"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/modules/ingest/types"
)

// providedKey returns the key from the X-API-Key header, the api_key query
// parameter or the {token} path segment, in that order.
func providedKey(r *http.Request) string {
	if k := r.Header.Get("X-API-Key"); k != "" {
		return k
	}
	if k := r.URL.Query().Get("api_key"); k != "" {
		return k
	}
	return r.PathValue("token")
}

func (c *ingestControllerImpl) authenticate(r *http.Request) error {
	if c.apiKey == "" {
		return nil
	}
	provided := providedKey(r)
	if provided == "" {
		slog.Warn("unauthorized request: missing API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		return types.ErrMissingAPIKey
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(c.apiKey)) != 1 {
		slog.Warn("unauthorized request: invalid API key", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
		return types.ErrInvalidAPIKey
	}
	return nil
}
