package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/IllyaMarchevskyi/server-sernsor-box/internal/utils"
)

const maxEchoBytes = 1 << 20

func serverTime() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
}

// handleEchoGet returns the query string so firmware can check connectivity.
func handleEchoGet(w http.ResponseWriter, r *http.Request) {
	data := map[string]string{}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			data[k] = v[0]
		}
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"data": data, "server_time": serverTime()})
}

// handleEchoPost returns a JSON object body, a form, or the raw body text.
func handleEchoPost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEchoBytes))
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid_payload", "could not read request body")
		return
	}

	var data any
	var obj map[string]any
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch {
	case json.Unmarshal(body, &obj) == nil && obj != nil:
		data = obj
	case ct == "application/x-www-form-urlencoded" || ct == "multipart/form-data":
		r.Body = io.NopCloser(bytes.NewReader(body))
		if ct == "multipart/form-data" {
			err = r.ParseMultipartForm(maxEchoBytes)
		} else {
			err = r.ParseForm()
		}
		if err == nil && len(r.PostForm) > 0 {
			form := map[string]string{}
			for k, v := range r.PostForm {
				form[k] = v[0]
			}
			data = form
		}
	case len(body) > 0:
		data = string(body)
	}

	if data == nil {
		utils.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "empty_payload",
			"message":     "request carried no data",
			"server_time": serverTime(),
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]any{"data": data, "server_time": serverTime()})
}

func registerEcho(mux *http.ServeMux) {
	mux.HandleFunc("GET /test", handleEchoGet)
	mux.HandleFunc("POST /test", handleEchoPost)
}
