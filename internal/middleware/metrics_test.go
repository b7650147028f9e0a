package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// =============================================================================
// Basic Auth Middleware Tests
// =============================================================================

func metricsHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("metrics data"))
	})
}

func TestBasicAuthMiddleware_AllowsValidCredentials(t *testing.T) {
	mw := NewBasicAuthMiddleware("metrics", "admin", "secret123")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("admin", "secret123")
	rec := httptest.NewRecorder()
	mw.Handler(metricsHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Body.String() != "metrics data" {
		t.Errorf("expected body 'metrics data', got %q", rec.Body.String())
	}
}

func TestBasicAuthMiddleware_Rejects(t *testing.T) {
	mw := NewBasicAuthMiddleware("metrics", "admin", "secret123")

	testCases := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"no credentials", func(r *http.Request) {}},
		{"wrong username", func(r *http.Request) { r.SetBasicAuth("root", "secret123") }},
		{"wrong password", func(r *http.Request) { r.SetBasicAuth("admin", "wrong") }},
		{"empty credentials", func(r *http.Request) { r.SetBasicAuth("", "") }},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Basic !!!notbase64") }},
		{"bearer scheme", func(r *http.Request) { r.Header.Set("Authorization", "Bearer secret123") }},
		{"header injection", func(r *http.Request) {
			malicious := base64.StdEncoding.EncodeToString([]byte("admin:secret123\r\nX-Injected: header"))
			r.Header.Set("Authorization", "Basic "+malicious)
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
			tc.setup(req)
			rec := httptest.NewRecorder()
			mw.Handler(metricsHandler()).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
			if got := rec.Header().Get("WWW-Authenticate"); got != `Basic realm="metrics"` {
				t.Errorf("unexpected WWW-Authenticate %q", got)
			}
			if !strings.Contains(rec.Body.String(), `"code":"unauthorized"`) {
				t.Errorf("expected JSON error body, got %q", rec.Body.String())
			}
		})
	}
}

func TestBasicAuthMiddleware_DisabledWhenNoCredentials(t *testing.T) {
	mw := NewBasicAuthMiddleware("metrics", "", "")
	if mw.Enabled() {
		t.Fatal("expected auth to be disabled")
	}

	rec := httptest.NewRecorder()
	mw.Handler(metricsHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 when auth is disabled, got %d", rec.Code)
	}
}
