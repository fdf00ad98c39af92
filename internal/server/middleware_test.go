package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pavanpakhare/javanotes/internal/config"
	"github.com/pavanpakhare/javanotes/internal/logging"
)

// newMiddlewareServer builds just enough server for addMiddleware: no corpus,
// no listener.
func newMiddlewareServer(cfg *config.Config) *AuthoringServer {
	return &AuthoringServer{
		config:  cfg,
		logger:  logging.NewDiscardLogger(),
		limiter: newRateLimiter(),
	}
}

func okHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func TestMiddlewareCORS(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		allowed     []string
		origin      string
		want        string
	}{
		{
			name:        "development wildcard",
			environment: "development",
			origin:      "http://anywhere.example.com",
			want:        "*",
		},
		{
			name:        "development without origin",
			environment: "development",
			want:        "*",
		},
		{
			name:        "allowed origin echoed",
			environment: "production",
			allowed:     []string{"http://editor.example.com:3000"},
			origin:      "http://editor.example.com:3000",
			want:        "http://editor.example.com:3000",
		},
		{
			name:        "production blocks unknown origins",
			environment: "production",
			origin:      "http://anywhere.example.com",
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMiddlewareServer(&config.Config{Server: config.ServerConfig{
				Host:           "localhost",
				Port:           8080,
				Environment:    tt.environment,
				AllowedOrigins: tt.allowed,
			}})

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rec := httptest.NewRecorder()
			s.addMiddleware(okHandler()).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.want, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestMiddlewarePreflight(t *testing.T) {
	s := newMiddlewareServer(&config.Config{Server: config.ServerConfig{Environment: "development"}})

	handlerCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/documents", nil)
	req.Header.Set("Origin", "http://anywhere.example.com")
	rec := httptest.NewRecorder()
	s.addMiddleware(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, handlerCalled, "preflight must not reach handlers")
	assert.Equal(t, "GET, POST, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))
}

func TestRateLimiterAllowsBurstThenThrottles(t *testing.T) {
	rl := newRateLimiter()

	for i := 0; i < apiRequestBurst; i++ {
		require.True(t, rl.allow("10.0.0.1"), "request %d should pass", i)
	}
	assert.False(t, rl.allow("10.0.0.1"))
	assert.True(t, rl.allow("10.0.0.2"), "hosts are limited independently")
}

func TestRateLimiterEvictsIdleHosts(t *testing.T) {
	rl := newRateLimiter()
	rl.allow("stale.host")
	rl.allow("fresh.host")

	rl.mutex.Lock()
	rl.hosts["stale.host"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	rl.evictIdle()
	rl.mutex.Unlock()

	rl.mutex.Lock()
	defer rl.mutex.Unlock()
	assert.NotContains(t, rl.hosts, "stale.host")
	assert.Contains(t, rl.hosts, "fresh.host")
}

func TestMiddlewareRateLimitsAPIRoutes(t *testing.T) {
	s := newMiddlewareServer(&config.Config{Server: config.ServerConfig{Environment: "development"}})
	handler := s.addMiddleware(okHandler())

	// httptest requests all arrive from 192.0.2.1; exhaust its burst.
	for i := 0; i < apiRequestBurst; i++ {
		s.limiter.allow("192.0.2.1")
	}

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Page and asset routes are never limited.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/view/guide.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusRecorder(t *testing.T) {
	underlying := httptest.NewRecorder()
	rec := &statusRecorder{ResponseWriter: underlying, status: http.StatusOK}

	rec.WriteHeader(http.StatusNotFound)
	assert.Equal(t, http.StatusNotFound, rec.status)
	assert.Equal(t, http.StatusNotFound, underlying.Code)
	assert.Same(t, underlying, rec.Unwrap())
}

func TestRequestHost(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/search", nil)
	r.RemoteAddr = "203.0.113.9:51423"
	assert.Equal(t, "203.0.113.9", requestHost(r))

	r.RemoteAddr = "no-port-here"
	assert.Equal(t, "no-port-here", requestHost(r))
}
