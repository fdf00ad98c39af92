package server

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/pavanpakhare/javanotes/internal/metrics"
)

const (
	// API routes allow a short burst, then settle to a steady per-host rate.
	apiRequestRate  rate.Limit = 10
	apiRequestBurst            = 30

	// maxLimiterHosts bounds the per-host limiter map; idle entries are
	// evicted when it fills.
	maxLimiterHosts = 1024
	limiterIdleTTL  = 5 * time.Minute
)

// hostLimiter is one remote host's token bucket.
type hostLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter applies a token bucket per remote host.
type rateLimiter struct {
	mutex sync.Mutex
	hosts map[string]*hostLimiter
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{hosts: make(map[string]*hostLimiter)}
}

func (rl *rateLimiter) allow(host string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	hl, ok := rl.hosts[host]
	if !ok {
		if len(rl.hosts) >= maxLimiterHosts {
			rl.evictIdle()
		}
		hl = &hostLimiter{limiter: rate.NewLimiter(apiRequestRate, apiRequestBurst)}
		rl.hosts[host] = hl
	}
	hl.lastSeen = time.Now()
	return hl.limiter.Allow()
}

// evictIdle drops hosts not seen within the TTL. Callers hold the mutex.
func (rl *rateLimiter) evictIdle() {
	cutoff := time.Now().Add(-limiterIdleTTL)
	for host, hl := range rl.hosts {
		if hl.lastSeen.Before(cutoff) {
			delete(rl.hosts, host)
		}
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// addMiddleware wraps the mux with CORS, per-host API rate limiting, and
// request logging with metrics.
func (s *AuthoringServer) addMiddleware(next http.Handler) http.Handler {
	// Request.Pattern needs Go 1.23; ask the mux for the matched pattern.
	mux, _ := next.(*http.ServeMux)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if s.isAllowedOrigin(origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if s.config.Server.Environment == "development" {
			// Only allow wildcard in development.
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}
		// Production default: no CORS header, cross-origin requests blocked.

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		if strings.HasPrefix(r.URL.Path, "/api/") && !s.limiter.allow(requestHost(r)) {
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}

		// The websocket upgrade hijacks the connection; serve it unwrapped.
		if r.URL.Path == "/ws" {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		duration := time.Since(start)

		route := ""
		if mux != nil {
			_, route = mux.Handler(r)
		}
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), duration)
		s.logger.Debug(r.Context(), "request served",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", duration.String(),
		)
	})
}

// isAllowedOrigin checks the origin against server.allowed_origins.
func (s *AuthoringServer) isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	for _, allowed := range s.config.Server.AllowedOrigins {
		if origin == allowed {
			return true
		}
	}
	return false
}

// requestHost extracts the remote host for rate limiting. RemoteAddr comes
// from the connection, so it cannot be spoofed by headers.
func requestHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
