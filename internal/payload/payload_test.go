package payload

import (
	"bytes"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFromRequest_JSONWins(t *testing.T) {
	body := `{"station_code":" S1 ","CO":12.5,"SO2":"-1","ok":true,"skip":null,"meta":{"fw":"1.2"}}`
	req := httptest.NewRequest(http.MethodPost, "/ingest?station_code=FROM_QUERY", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p, err := FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	want := map[string]string{
		"station_code": " S1 ",
		"CO":           "12.5",
		"SO2":          "-1",
		"ok":           "true",
		"meta":         `{"fw":"1.2"}`,
	}
	for k, v := range want {
		if p[k] != v {
			t.Errorf("p[%q] = %q; want %q", k, p[k], v)
		}
	}
	if _, ok := p["skip"]; ok {
		t.Error("null values must be absent")
	}
	if p.Get("station_code") != "S1" {
		t.Errorf("Get trims: got %q", p.Get("station_code"))
	}
}

func TestFromRequest_Form(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ingest?station_code=FROM_QUERY", strings.NewReader("station_code=S2&TEMP=21.5"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	p, err := FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if p["station_code"] != "S2" || p["TEMP"] != "21.5" {
		t.Errorf("payload = %v", p)
	}
}

func TestFromRequest_MultipartForm(t *testing.T) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("station_code", "S3"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.WriteField("RH", "40"); err != nil {
		t.Fatalf("write field: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/ingest", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	p, err := FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if p["station_code"] != "S3" || p["RH"] != "40" {
		t.Errorf("payload = %v", p)
	}
}

func TestFromRequest_QueryFallback(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ingest?station_code=S4&PM10=7", nil)

	p, err := FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if p["station_code"] != "S4" || p["PM10"] != "7" {
		t.Errorf("payload = %v", p)
	}
}

func TestFromRequest_NonObjectJSONFallsThrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ingest?station_code=S5", strings.NewReader(`[1,2,3]`))
	req.Header.Set("Content-Type", "application/json")

	p, err := FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if p["station_code"] != "S5" {
		t.Errorf("payload = %v", p)
	}
}

func TestFromRequest_OversizedBody(t *testing.T) {
	body := `{"station_code":"S1","note":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest?station_code=FROM_QUERY", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p, err := FromRequest(req)
	if !errors.Is(err, ErrTooLarge) {
		t.Fatalf("FromRequest error = %v; want ErrTooLarge", err)
	}
	if p != nil {
		t.Errorf("payload = %v; want nil", p)
	}
}

func TestFromRequest_BodyAtLimit(t *testing.T) {
	prefix := `{"station_code":"S1","note":"`
	body := prefix + strings.Repeat("x", maxBodyBytes-len(prefix)-2) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	p, err := FromRequest(req)
	if err != nil {
		t.Fatalf("FromRequest: %v", err)
	}
	if p["station_code"] != "S1" {
		t.Errorf("station_code = %q", p["station_code"])
	}
}

func TestFromJSON(t *testing.T) {
	if _, ok := FromJSON([]byte("not json")); ok {
		t.Error("FromJSON accepted garbage")
	}
	if _, ok := FromJSON([]byte(`{"broken":`)); ok {
		t.Error("FromJSON accepted truncated object")
	}
	p, ok := FromJSON([]byte(`  {"big": 1e3, "n": 10}`))
	if !ok {
		t.Fatal("FromJSON rejected a valid object")
	}
	if p["big"] != "1e3" || p["n"] != "10" {
		t.Errorf("numbers should keep their literal form: %v", p)
	}
}

func TestPayload_First(t *testing.T) {
	p := Payload{"station": "  ", "device": " dev-9 ", "id": "7"}
	got, ok := p.First("station_code", "station", "device", "id")
	if !ok || got != "dev-9" {
		t.Errorf("First = %q, %v; want dev-9, true", got, ok)
	}
	if _, ok := p.First("missing"); ok {
		t.Error("First should report false when no key matches")
	}
}
