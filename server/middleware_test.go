package server

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rxcatalog/medications-catalog/metrics"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestRealIPMiddleware(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"no headers", nil, "192.0.2.1:1234"},
		{"single forwarded", map[string]string{"X-Forwarded-For": "203.0.113.5"}, "203.0.113.5"},
		{"forwarded chain", map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"}, "203.0.113.5"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.7 "}, "203.0.113.7"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "203.0.113.7"}, "203.0.113.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := RealIPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = r.RemoteAddr
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.1:1234"
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("RemoteAddr = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBlockDirectAccessMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		header     string
		want       int
	}{
		{"external direct", "203.0.113.9:4000", "", http.StatusForbidden},
		{"loopback v4", "127.0.0.1:4000", "", http.StatusOK},
		{"loopback v6", "[::1]:4000", "", http.StatusOK},
		{"bare host", "localhost", "", http.StatusOK},
		{"through proxy", "10.0.0.2:4000", "203.0.113.9", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/saved", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.header != "" {
				req.Header.Set("X-Forwarded-For", tt.header)
			}
			rr := httptest.NewRecorder()
			BlockDirectAccessMiddleware(okHandler).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}

func TestRequestSizeMiddleware(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBody = 32
	cfg.MaxHeaderSize = 64

	tests := []struct {
		name   string
		body   string
		header string
		want   int
	}{
		{"within limits", `{"medicationName":"x"}`, "", http.StatusOK},
		{"body too large", strings.Repeat("a", 33), "", http.StatusRequestEntityTooLarge},
		{"headers too large", "", strings.Repeat("h", 80), http.StatusRequestHeaderFieldsTooLarge},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(tt.body))
			if tt.header != "" {
				req.Header.Set("X-Padding", tt.header)
			}
			rr := httptest.NewRecorder()
			RequestSizeMiddleware(cfg)(okHandler).ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
			if tt.want != http.StatusOK && !strings.Contains(rr.Body.String(), "too large") {
				t.Errorf("unexpected error body %q", rr.Body.String())
			}
		})
	}
}

func TestGetTokenCost(t *testing.T) {
	tests := map[string]int64{
		"/metrics":       0,
		"/health":        5,
		"/search":        100,
		"/save_multiple": 50,
		"/saved":         10,
		"/save":          20,
		"/delete/4":      20,
	}

	for path, want := range tests {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		if got := getTokenCost(req); got != want {
			t.Errorf("getTokenCost(%s) = %d, want %d", path, got, want)
		}
	}
}

func TestRateLimiterExhaustion(t *testing.T) {
	rl := NewRateLimiter(0.001, 150)
	defer rl.Stop()
	handler := rl.Handler(okHandler)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/search", nil)
		req.RemoteAddr = addr
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr
	}

	first := send("192.0.2.10:1")
	if first.Code != http.StatusOK {
		t.Fatalf("first search status = %d, want 200", first.Code)
	}
	if first.Header().Get("X-RateLimit-Remaining") != "50" {
		t.Errorf("remaining = %q, want 50", first.Header().Get("X-RateLimit-Remaining"))
	}
	if first.Header().Get("X-RateLimit-Limit") != "150" {
		t.Errorf("limit header = %q, want 150", first.Header().Get("X-RateLimit-Limit"))
	}

	second := send("192.0.2.10:1")
	if second.Code != http.StatusTooManyRequests {
		t.Errorf("second search status = %d, want 429", second.Code)
	}
	if second.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After on a limited response")
	}

	// another connection from the same host shares the bucket
	if again := send("192.0.2.10:2"); again.Code != http.StatusTooManyRequests {
		t.Errorf("same host status = %d, want 429", again.Code)
	}

	// buckets are per client
	if other := send("192.0.2.11:1"); other.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", other.Code)
	}
}

func TestRateLimiterSweep(t *testing.T) {
	rl := NewRateLimiter(1000, 10)
	defer rl.Stop()

	rl.getBucket("a").TakeAvailable(10)
	rl.getBucket("b")
	if got := testutil.ToFloat64(metrics.RateLimiterBucketsTotal); got != 2 {
		t.Errorf("bucket gauge = %v, want 2", got)
	}

	// "b" is full; "a" is drained and may have partially refilled
	removed := rl.sweep()
	if removed < 1 {
		t.Errorf("expected at least the idle client to be swept, removed %d", removed)
	}
	if _, ok := rl.clients["b"]; ok {
		t.Error("full bucket should have been removed")
	}
}

func TestClientKey(t *testing.T) {
	tests := map[string]string{
		"192.0.2.1:443": "192.0.2.1",
		"[::1]:8000":    "::1",
		"203.0.113.5":   "203.0.113.5",
	}
	for in, want := range tests {
		if got := clientKey(in); got != want {
			t.Errorf("clientKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRateLimiterStopIdempotent(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	rl.StartCleanup(time.Hour)
	rl.Stop()
	rl.Stop()
}
