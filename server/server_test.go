package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rxcatalog/medications-catalog/config"
)

type recordingHandler struct {
	mu    sync.Mutex
	calls []string
}

func (h *recordingHandler) record(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.mu.Lock()
		h.calls = append(h.calls, name)
		h.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (h *recordingHandler) Search(w http.ResponseWriter, r *http.Request) { h.record("search")(w, r) }
func (h *recordingHandler) Save(w http.ResponseWriter, r *http.Request)   { h.record("save")(w, r) }
func (h *recordingHandler) SaveMultiple(w http.ResponseWriter, r *http.Request) {
	h.record("save_multiple")(w, r)
}
func (h *recordingHandler) ListSaved(w http.ResponseWriter, r *http.Request) { h.record("saved")(w, r) }
func (h *recordingHandler) Delete(w http.ResponseWriter, r *http.Request)    { h.record("delete")(w, r) }
func (h *recordingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	h.record("health")(w, r)
}

func (h *recordingHandler) last() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.calls) == 0 {
		return ""
	}
	return h.calls[len(h.calls)-1]
}

func testConfig() *config.Config {
	return &config.Config{
		Address:        "127.0.0.1",
		Port:           "8000",
		MaxRequestBody: 1024,
		MaxHeaderSize:  1024,
	}
}

func TestRoutes(t *testing.T) {
	h := &recordingHandler{}
	srv := NewServer(testConfig(), h)

	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/search", "search"},
		{http.MethodPost, "/save", "save"},
		{http.MethodPost, "/save_multiple", "save_multiple"},
		{http.MethodGet, "/saved", "saved"},
		{http.MethodGet, "/saved?page=2&limit=5", "saved"},
		{http.MethodPost, "/delete/12", "delete"},
		{http.MethodDelete, "/medications/12", "delete"},
		{http.MethodGet, "/health", "health"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.RemoteAddr = "198.51.100.1:5000"
			rr := httptest.NewRecorder()
			srv.Router().ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rr.Code)
			}
			if got := h.last(); got != tt.want {
				t.Errorf("handler = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUnknownRouteAndMethod(t *testing.T) {
	srv := NewServer(testConfig(), &recordingHandler{})

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown route status = %d, want 404", rr.Code)
	}

	rr = httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/search", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET /search status = %d, want 405", rr.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv := NewServer(testConfig(), &recordingHandler{})

	// one request so the http counters have a sample
	srv.Router().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "http_request_total") {
		t.Error("expected http_request_total in the exposition")
	}
	if rr.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("metrics scrapes should not be rate limited")
	}
}

func TestProxyMiddlewareOnlyWhenTrusted(t *testing.T) {
	cfg := testConfig()
	cfg.TrustProxy = true
	srv := NewServer(cfg, &recordingHandler{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rr := httptest.NewRecorder()
	srv.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Errorf("direct access status = %d, want 403", rr.Code)
	}

	open := NewServer(testConfig(), &recordingHandler{})
	rr = httptest.NewRecorder()
	open.Router().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Errorf("untrusted proxy config status = %d, want 200", rr.Code)
	}
}

func TestStartAndShutdown(t *testing.T) {
	cfg := testConfig()
	cfg.Port = "0"
	srv := NewServer(cfg, &recordingHandler{})

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	// give ListenAndServe a moment to bind
	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start returned %v after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after shutdown")
	}
}

func TestShutdownWithoutStart(t *testing.T) {
	srv := NewServer(testConfig(), &recordingHandler{})
	if err := srv.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown: %v", err)
	}
}

func TestRequestBodyCappedWhileReading(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBody = 16

	var readErr error
	handler := RequestSizeMiddleware(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
	}))

	req := httptest.NewRequest(http.MethodPost, "/save", strings.NewReader(strings.Repeat("x", 64)))
	req.ContentLength = -1
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if readErr == nil {
		t.Error("expected an error reading past the body limit")
	}
}
