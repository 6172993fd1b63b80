package handlers

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// UserIDHeader identifies the calling user for rate limiting and usage rows
const UserIDHeader = "X-User-ID"

// RateLimiter enforces a fixed-window request budget per key
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int) (bool, int, error)
}

type Middleware struct {
	limiter RateLimiter
	limit   int
	logger  zerolog.Logger
}

func NewMiddleware(limiter RateLimiter, limit int, logger zerolog.Logger) *Middleware {
	if limit <= 0 {
		limit = 100
	}
	return &Middleware{
		limiter: limiter,
		limit:   limit,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// RateLimitMiddleware enforces the per-caller limit. Every request counts
// against its remote address; requests carrying X-User-ID also count against
// that user, so rotating the header does not lift the address budget.
func (m *Middleware) RateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exceeded, remaining := false, m.limit
		for _, key := range callerKeys(r) {
			over, left, err := m.limiter.CheckRateLimit(r.Context(), "caller:"+key, m.limit)
			if err != nil {
				m.logger.Warn().Err(err).Str("caller", key).Msg("rate limit check failed, allowing request")
				continue
			}
			if left < remaining {
				remaining = left
			}
			if over {
				exceeded = true
				break
			}
		}

		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", m.limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", remaining))

		if exceeded {
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limit exceeded"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// CORSMiddleware handles CORS
func (m *Middleware) CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+UserIDHeader)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// LoggerMiddleware writes one structured access log line per request
func (m *Middleware) LoggerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		m.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("chi_request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// callerKeys returns the rate limit buckets for r, address first
func callerKeys(r *http.Request) []string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	keys := []string{"addr:" + host}
	if id := r.Header.Get(UserIDHeader); id != "" {
		keys = append(keys, "user:"+id)
	}
	return keys
}
