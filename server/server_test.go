package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sambeau/fillin/config"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) (*Server, *bytes.Buffer) {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.Compression.Enabled = false
	if mutate != nil {
		mutate(cfg)
	}
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))
	s, err := New(cfg, nil, logger, "test")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, &logs
}

func post(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON response %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body["status"] != "ok" || body["version"] != "test" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestRender(t *testing.T) {
	s, _ := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"single", `{"pattern": "Hello [Name]", "data": {"Name": "Ada"}}`, "Hello Ada"},
		{"no data", `{"pattern": "[X:none]"}`, "none"},
		{"nested", `{"pattern": "[Address.City|upper]", "data": {"Address": {"City": "London"}}}`, "LONDON"},
		{"offset", `{"pattern": "[N(+1)]", "data": {"N": 41}}`, "42"},
		{"culture", `{"pattern": "[Total|N2]", "data": {"Total": 1234.5}, "culture": "de-DE"}`, "1.234,50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s.Handler(), "/render", tt.body)
			if rec.Code != http.StatusOK {
				t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
			}
			if got := decode(t, rec)["result"]; got != tt.want {
				t.Errorf("expected %q, got %v", tt.want, got)
			}
		})
	}
}

func TestRenderRecords(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(t, s.Handler(), "/render", `{"pattern": "#[No]", "data": [{"No": 1}, {"No": 2}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	results, _ := decode(t, rec)["results"].([]any)
	if len(results) != 2 || results[0] != "#1" || results[1] != "#2" {
		t.Errorf("unexpected results %v", results)
	}
}

func TestRenderErrors(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) { c.Server.MaxBody = "64B" })

	tests := []struct {
		name   string
		body   string
		status int
		code   string
	}{
		{"missing key", `{"pattern": "[Nope]"}`, http.StatusUnprocessableEntity, "EVAL-0001"},
		{"unmatched close", `{"pattern": "a]"}`, http.StatusUnprocessableEntity, "PARSE-0005"},
		{"bad json", `{"pattern": `, http.StatusBadRequest, ""},
		{"unknown field", `{"template": "x"}`, http.StatusBadRequest, ""},
		{"bad culture", `{"pattern": "x", "culture": "not a tag"}`, http.StatusBadRequest, ""},
		{"scalar data", `{"pattern": "x", "data": 5}`, http.StatusBadRequest, ""},
		{"too large", `{"pattern": "` + strings.Repeat("x", 100) + `"}`, http.StatusRequestEntityTooLarge, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, s.Handler(), "/render", tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d: %s", tt.status, rec.Code, rec.Body.String())
			}
			errBody, ok := decode(t, rec)["error"].(map[string]any)
			if !ok {
				t.Fatalf("expected error object, got %s", rec.Body.String())
			}
			if tt.code != "" && errBody["code"] != tt.code {
				t.Errorf("expected code %s, got %v", tt.code, errBody["code"])
			}
			if errBody["message"] == "" {
				t.Error("expected a message")
			}
		})
	}
}

func TestUnsupportedMediaType(t *testing.T) {
	s, _ := newTestServer(t, nil)
	req := httptest.NewRequest(http.MethodPost, "/render", strings.NewReader("pattern"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestCheck(t *testing.T) {
	s, _ := newTestServer(t, nil)
	rec := post(t, s.Handler(), "/check", `{"pattern": "Hi [Name|upper]\n[N(-1)]"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		Terms []struct {
			Raw  string `json:"raw"`
			Line int    `json:"line"`
			Term struct {
				Key    string `json:"key"`
				Offset *struct {
					Sign      string  `json:"sign"`
					Magnitude float64 `json:"magnitude"`
				} `json:"offset"`
			} `json:"term"`
		} `json:"terms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Terms) != 2 {
		t.Fatalf("expected 2 terms, got %d", len(body.Terms))
	}
	if body.Terms[0].Term.Key != "Name" || body.Terms[1].Line != 2 {
		t.Errorf("unexpected terms %+v", body.Terms)
	}
	if off := body.Terms[1].Term.Offset; off == nil || off.Sign != "less" || off.Magnitude != 1 {
		t.Errorf("unexpected offset %+v", off)
	}

	rec = post(t, s.Handler(), "/check", `{"pattern": "plain"}`)
	if !strings.Contains(rec.Body.String(), `"terms":[]`) {
		t.Errorf("expected empty term list, got %s", rec.Body.String())
	}
}

func TestCheckCulture(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := post(t, s.Handler(), "/check", `{"pattern": "[N(+1,5)]", "culture": "de-DE"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Terms []struct {
			Term struct {
				Offset *struct {
					Magnitude float64 `json:"magnitude"`
				} `json:"offset"`
			} `json:"term"`
		} `json:"terms"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Terms) != 1 || body.Terms[0].Term.Offset == nil || body.Terms[0].Term.Offset.Magnitude != 1.5 {
		t.Errorf("expected magnitude 1.5, got %s", rec.Body.String())
	}

	// The same offset is not a number under the server culture.
	if rec := post(t, s.Handler(), "/check", `{"pattern": "[N(+1,5)]"}`); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422 without culture, got %d", rec.Code)
	}
	if rec := post(t, s.Handler(), "/check", `{"pattern": "[N]", "culture": "not a tag!"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a bad culture, got %d", rec.Code)
	}
}

func TestNotFoundAndMethod(t *testing.T) {
	s, _ := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/render", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rec.Code)
	}
}

func TestNewRejectsBadMaxBody(t *testing.T) {
	cfg := config.Defaults()
	cfg.Server.MaxBody = "lots"
	if _, err := New(cfg, nil, slog.New(slog.NewTextHandler(io.Discard, nil)), ""); err == nil {
		t.Error("expected error for invalid max_body")
	}
}

func TestAddr(t *testing.T) {
	s, _ := newTestServer(t, func(c *config.Config) {
		c.Server.Host = "127.0.0.1"
		c.Server.Port = 9090
	})
	if got := s.Addr(); got != "127.0.0.1:9090" {
		t.Errorf("unexpected addr %q", got)
	}
}
