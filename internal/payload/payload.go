// Package payload turns inbound sensor submissions into a flat string map.
// Stations post the same keys as JSON, as a form or as a query string
// depending on firmware, so every source is reduced to one shape.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
)

// Payload is a flattened submission. Keys are kept exactly as sent.
type Payload map[string]string

// StationKeys are the keys a station identifier may arrive under, in
// priority order.
var StationKeys = []string{"station_code", "station", "name", "device", "device_id", "id"}

// maxBodyBytes caps what a single submission may carry.
const maxBodyBytes = 1 << 20

// ErrTooLarge is returned by FromRequest when the body exceeds maxBodyBytes.
var ErrTooLarge = errors.New("payload: request body exceeds 1 MiB")

// Get returns the value for key with surrounding whitespace removed.
func (p Payload) Get(key string) string {
	return strings.TrimSpace(p[key])
}

// First returns the first non-empty value among keys.
func (p Payload) First(keys ...string) (string, bool) {
	for _, k := range keys {
		if v := p.Get(k); v != "" {
			return v, true
		}
	}
	return "", false
}

// FromRequest extracts the payload, trying the JSON body first, then a form
// body, then the query string.
func FromRequest(r *http.Request) (Payload, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
		if err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				return nil, ErrTooLarge
			}
			return nil, err
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	if p, ok := FromJSON(body); ok {
		return p, nil
	}

	if ct := formType(r); ct != "" {
		var err error
		if ct == "multipart/form-data" {
			err = r.ParseMultipartForm(maxBodyBytes)
		} else {
			err = r.ParseForm()
		}
		if err == nil && len(r.PostForm) > 0 {
			p := make(Payload, len(r.PostForm))
			for k, v := range r.PostForm {
				if len(v) > 0 {
					p[k] = v[0]
				}
			}
			return p, nil
		}
	}

	q := r.URL.Query()
	p := make(Payload, len(q))
	for k, v := range q {
		if len(v) > 0 {
			p[k] = v[0]
		}
	}
	return p, nil
}

// FromJSON flattens a JSON object. ok is false when data is not an object.
func FromJSON(data []byte) (Payload, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil || obj == nil {
		return nil, false
	}
	p := make(Payload, len(obj))
	for k, v := range obj {
		if s, ok := stringify(v); ok {
			p[k] = s
		}
	}
	return p, true
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// formType returns the form media type of a body-carrying request, or "".
func formType(r *http.Request) string {
	if r.Method != http.MethodPost && r.Method != http.MethodPut && r.Method != http.MethodPatch {
		return ""
	}
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	switch ct {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		return ct
	default:
		return ""
	}
}
