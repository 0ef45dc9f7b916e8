package httpserver

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mcnannay/peptrackr/internal/core/service"
	"github.com/mcnannay/peptrackr/internal/storage/memory"
	"github.com/mcnannay/peptrackr/internal/telemetry/logger"
	"github.com/mcnannay/peptrackr/internal/telemetry/metric"
)

func testRouter(t *testing.T, mutate func(*RouterConfig)) (http.Handler, *metric.Registry) {
	t.Helper()
	repo := memory.New()
	t.Cleanup(func() { repo.Close() })

	reg := metric.NewRegistry()
	svc := service.NewStoreService(repo,
		service.WithLogger(logger.Discard()),
		service.WithObserver(reg),
	)

	cfg := &RouterConfig{
		Store:              svc,
		Logger:             logger.Discard(),
		APIPrefix:          "/api/v1",
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
		Observer:           reg,
		MetricsHandler:     reg.Handler(),
		EnableAudit:        true,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return NewRouter(cfg), reg
}

func send(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNewRouter_StoreFlow(t *testing.T) {
	h, _ := testRouter(t, nil)

	if rec := send(h, "PUT", "/api/v1/store/theme", `"dark"`); rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, body = %s", rec.Code, rec.Body)
	}

	rec := send(h, "GET", "/api/v1/store/theme", "")
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `"dark"` {
		t.Fatalf("GET = %d %s", rec.Code, rec.Body)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestNewRouter_ErrorHasRequestID(t *testing.T) {
	h, _ := testRouter(t, nil)

	req := httptest.NewRequest("GET", "/api/v1/store/missing", nil)
	req.Header.Set("X-Request-ID", "trace-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"request_id":"trace-42"`) {
		t.Errorf("body = %s", rec.Body)
	}
}

func TestNewRouter_Probes(t *testing.T) {
	h, _ := testRouter(t, nil)

	for _, path := range []string{"/health", "/ready"} {
		if rec := send(h, "GET", path, ""); rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d", path, rec.Code)
		}
	}
}

func TestNewRouter_Metrics(t *testing.T) {
	h, reg := testRouter(t, nil)

	send(h, "PUT", "/api/v1/store/a", `1`)
	send(h, "GET", "/api/v1/store/a", "")
	send(h, "GET", "/api/v1/store/b", "")

	if got := testutil.ToFloat64(reg.HTTPRequests.WithLabelValues("GET", "GET /api/v1/store/{key...}", "404")); got != 1 {
		t.Errorf("404 GET count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(reg.StoreOps.WithLabelValues("put", "created")); got != 1 {
		t.Errorf("put created count = %v, want 1", got)
	}

	rec := send(h, "GET", "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /metrics = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "peptrackr_http_requests_total") {
		t.Error("metrics exposition missing request counter")
	}
}

func TestNewRouter_NoMetricsRoute(t *testing.T) {
	h, _ := testRouter(t, func(c *RouterConfig) { c.MetricsHandler = nil })

	if rec := send(h, "GET", "/metrics", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET /metrics without handler = %d, want 404", rec.Code)
	}
}

func TestNewRouter_BodyLimit(t *testing.T) {
	h, _ := testRouter(t, func(c *RouterConfig) { c.MaxBodyBytes = 16 })

	rec := send(h, "PUT", "/api/v1/store/big", `"`+strings.Repeat("x", 64)+`"`)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestNewRouter_RateLimit(t *testing.T) {
	h, _ := testRouter(t, func(c *RouterConfig) {
		c.RateLimiter = service.NewRateLimiterRegistry(0.001, 1)
	})

	if rec := send(h, "GET", "/api/v1/store", ""); rec.Code != http.StatusOK {
		t.Fatalf("first request = %d", rec.Code)
	}
	if rec := send(h, "GET", "/api/v1/store", ""); rec.Code != http.StatusTooManyRequests {
		t.Errorf("second request = %d, want 429", rec.Code)
	}

	// Probes are not rate limited.
	if rec := send(h, "GET", "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("GET /health = %d", rec.Code)
	}
}

func TestNewRouter_Preflight(t *testing.T) {
	h, _ := testRouter(t, func(c *RouterConfig) { c.CORSAllowedOrigins = []string{"https://app.example"} })

	req := httptest.NewRequest("OPTIONS", "/api/v1/store/theme", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", "PUT")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "https://app.example" {
		t.Error("missing Access-Control-Allow-Origin")
	}
}

func TestNewRouter_MethodNotAllowed(t *testing.T) {
	h, _ := testRouter(t, nil)

	if rec := send(h, "POST", "/api/v1/store/theme", `1`); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestServer_ServeAndShutdown(t *testing.T) {
	h, _ := testRouter(t, nil)
	s := New(Config{ReadTimeout: time.Second, WriteTimeout: time.Second}, h, logger.Discard())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}

	errChan := make(chan error, 1)
	go func() { errChan <- s.Serve(ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Errorf("GET /health = %d %s", resp.StatusCode, body)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown error: %v", err)
	}

	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Serve returned unexpected error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for Serve to return")
	}
}

func TestServer_TLS(t *testing.T) {
	s := New(Config{TLSCertFile: "cert.pem"}, http.NotFoundHandler(), nil)
	if s.TLS() {
		t.Error("TLS() should need both cert and key")
	}
	s = New(Config{TLSCertFile: "cert.pem", TLSKeyFile: "key.pem"}, http.NotFoundHandler(), nil)
	if !s.TLS() {
		t.Error("TLS() = false with cert and key")
	}
}
