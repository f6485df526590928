package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wisbric/sellowl/internal/config"
	"github.com/wisbric/sellowl/pkg/runtime"
)

type fakeBots struct {
	secrets   map[string]string // tenantID -> secret, presence means active
	records   map[string]runtime.Record
	handleErr error

	handled [][2]string // tenantID, body
}

func (f *fakeBots) ActiveIDs() []string {
	var out []string
	for id := range f.secrets {
		out = append(out, id)
	}
	return out
}

func (f *fakeBots) Records() map[string]runtime.Record { return f.records }

func (f *fakeBots) WebhookSecret(tenantID string) (string, bool) {
	s, ok := f.secrets[tenantID]
	return s, ok
}

func (f *fakeBots) HandleUpdate(_ context.Context, tenantID string, body []byte) error {
	if f.handleErr != nil {
		return f.handleErr
	}
	f.handled = append(f.handled, [2]string{tenantID, string(body)})
	return nil
}

func newTestServer(bots *fakeBots) *Server {
	cfg := &config.Config{CORSAllowedOrigins: []string{"*"}}
	return NewServer(cfg, slog.Default(), bots, prometheus.NewRegistry())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return m
}

func postWebhook(srv *Server, tenantID, body, secret string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhook/"+tenantID, strings.NewReader(body))
	if secret != "" {
		req.Header.Set(secretTokenHeader, secret)
	}
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func TestWebhook_UnknownTenant(t *testing.T) {
	srv := newTestServer(&fakeBots{secrets: map[string]string{}})

	rec := postWebhook(srv, "ghost", `{"update_id":1}`, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decode(t, rec)["error"]; got != "unknown or inactive brand" {
		t.Errorf("error = %v", got)
	}
}

func TestWebhook_SecretToken(t *testing.T) {
	bots := &fakeBots{secrets: map[string]string{"alpha": "s3cret"}}
	srv := newTestServer(bots)

	tests := []struct {
		name   string
		secret string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"correct", "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postWebhook(srv, "alpha", `{"update_id":1}`, tt.secret)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestWebhook_NoSecretConfigured(t *testing.T) {
	bots := &fakeBots{secrets: map[string]string{"alpha": ""}}
	srv := newTestServer(bots)

	rec := postWebhook(srv, "alpha", `{"update_id":1}`, "")
	if rec.Code != http.StatusOK {
		t.Errorf("tenant without a secret should accept unauthenticated posts, got %d", rec.Code)
	}
}

func TestWebhook_BadJSON(t *testing.T) {
	bots := &fakeBots{secrets: map[string]string{"alpha": ""}}
	srv := newTestServer(bots)

	for _, body := range []string{"", "{", "not json"} {
		rec := postWebhook(srv, "alpha", body, "")
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
			continue
		}
		m := decode(t, rec)
		if m["ok"] != false || m["error"] != "bad_json" {
			t.Errorf("body %q: response = %v", body, m)
		}
	}
	if len(bots.handled) != 0 {
		t.Error("malformed bodies should not reach the runtime")
	}
}

func TestWebhook_ProcessingErrorAnswers200(t *testing.T) {
	bots := &fakeBots{
		secrets:   map[string]string{"alpha": ""},
		handleErr: errors.New("flow blew up"),
	}
	srv := newTestServer(bots)

	rec := postWebhook(srv, "alpha", `{"update_id":1}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 so the provider does not retry", rec.Code)
	}
	m := decode(t, rec)
	if m["ok"] != false || m["error"] != "update_processing_error" {
		t.Errorf("response = %v", m)
	}
}

func TestWebhook_RuntimeUnknownTenantAnswers404(t *testing.T) {
	bots := &fakeBots{
		secrets:   map[string]string{"alpha": ""},
		handleErr: runtime.ErrUnknownTenant,
	}
	srv := newTestServer(bots)

	rec := postWebhook(srv, "alpha", `{"update_id":1}`, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWebhook_Success(t *testing.T) {
	bots := &fakeBots{secrets: map[string]string{"alpha": ""}}
	srv := newTestServer(bots)

	rec := postWebhook(srv, "alpha", `{"update_id":7}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if m := decode(t, rec); m["ok"] != true {
		t.Errorf("response = %v", m)
	}
	if len(bots.handled) != 1 || bots.handled[0][0] != "alpha" {
		t.Fatalf("handled = %v", bots.handled)
	}
	if bots.handled[0][1] != `{"update_id":7}` {
		t.Errorf("body passed through = %q", bots.handled[0][1])
	}
}

func TestRoot_ListsBots(t *testing.T) {
	bots := &fakeBots{secrets: map[string]string{"alpha": ""}}
	srv := newTestServer(bots)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	m := decode(t, rec)
	if m["status"] != "ok" {
		t.Errorf("status field = %v", m["status"])
	}
	list, ok := m["bots"].([]any)
	if !ok || len(list) != 1 || list[0] != "alpha" {
		t.Errorf("bots = %v", m["bots"])
	}
}

func TestRoot_EmptyBotListIsArray(t *testing.T) {
	srv := newTestServer(&fakeBots{secrets: map[string]string{}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !strings.Contains(rec.Body.String(), `"bots":[]`) {
		t.Errorf("empty bot list should serialize as [], got %s", rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(&fakeBots{secrets: map[string]string{}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestUptime(t *testing.T) {
	srv := newTestServer(&fakeBots{secrets: map[string]string{}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uptime", nil))
	m := decode(t, rec)
	if m["status"] != "online" {
		t.Errorf("status = %v", m["status"])
	}
	if _, ok := m["uptime_seconds"].(float64); !ok {
		t.Errorf("uptime_seconds = %v", m["uptime_seconds"])
	}

	head := httptest.NewRecorder()
	srv.ServeHTTP(head, httptest.NewRequest(http.MethodHead, "/uptime", nil))
	if head.Code != http.StatusOK {
		t.Errorf("HEAD status = %d", head.Code)
	}
}

func TestStatus_ReportsStartupRecords(t *testing.T) {
	bots := &fakeBots{
		secrets: map[string]string{"alpha": ""},
		records: map[string]runtime.Record{
			"alpha": {Status: runtime.StatusOK},
			"beta":  {Status: runtime.StatusInitError, Detail: "401 unauthorized"},
		},
	}
	srv := newTestServer(bots)

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	m := decode(t, rec)

	results, ok := m["startup_results"].(map[string]any)
	if !ok {
		t.Fatalf("startup_results = %v", m["startup_results"])
	}
	beta, _ := results["beta"].(map[string]any)
	if beta["status"] != "init-error" || beta["detail"] != "401 unauthorized" {
		t.Errorf("beta record = %v", beta)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&fakeBots{secrets: map[string]string{}})

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("responses should carry a request id")
	}
}
