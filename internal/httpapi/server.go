package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/handlers"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/config"
)

// recoveryLogger adapts slog to the gorilla recovery logger.
type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	slog.Error("panic recovered", "panic", v)
}

// NewServer wraps mux with proxy header handling, request logging and panic
// recovery. observer may be nil.
func NewServer(cfg config.Config, mux *http.ServeMux, observer HTTPObserver) *http.Server {
	recovered := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(cfg.AppEnv == "dev"),
	)(mux)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handlers.ProxyHeaders(requestLogger(recovered, observer)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
