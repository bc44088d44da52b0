package handler

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"fetch-proxy/internal/config"
	"fetch-proxy/internal/metrics"
)

func TestRegisterRoutes_Wiring(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer upstream.Close()

	cfg := &config.Config{Rewrite: config.RewriteConfig{Engine: config.EngineRegex}}
	proxy := newTestProxyHandler(config.EngineRegex)
	health := NewHealthHandler(cfg, "test")

	e := echo.New()
	RegisterRoutes(e, proxy, health)

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
	}{
		{"GET /", http.MethodGet, "/", http.StatusOK},
		{"GET /healthz", http.MethodGet, "/healthz", http.StatusOK},
		{"GET /status", http.MethodGet, "/status", http.StatusOK},
		{"GET /proxy", http.MethodGet, "/proxy?url=" + upstream.URL, http.StatusOK},
		{"GET /proxy without url", http.MethodGet, "/proxy", http.StatusBadRequest},
		{"OPTIONS /proxy", http.MethodOptions, "/proxy", http.StatusNoContent},
		{"GET /unknown returns 404", http.MethodGet, "/unknown", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, http.NoBody)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRegisterMetrics(t *testing.T) {
	m := metrics.New()
	m.RequestsTotal.WithLabelValues("GET", "200", "/proxy").Inc()

	t.Run("enabled", func(t *testing.T) {
		e := echo.New()
		RegisterMetrics(e, &config.Config{Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"}}, m)

		req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
		}
		if !strings.Contains(rec.Body.String(), "fetch_proxy_http_requests_total") {
			t.Error("expected fetch_proxy_http_requests_total in exposition")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		e := echo.New()
		RegisterMetrics(e, &config.Config{Metrics: config.MetricsConfig{Enabled: false, Path: "/metrics"}}, m)

		req := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
		}
	})
}
