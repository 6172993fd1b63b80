package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RequestTimeout bounds a whole HTTP request
const RequestTimeout = 60 * time.Second

type routerOptions struct {
	trustProxyHeaders bool
}

// RouterOption configures NewRouter
type RouterOption func(*routerOptions)

// WithTrustedProxy takes the client address from X-Forwarded-For / X-Real-IP.
// Only enable it behind a proxy that overwrites those headers, since the
// per-caller rate limit is keyed on that address.
func WithTrustedProxy() RouterOption {
	return func(o *routerOptions) {
		o.trustProxyHeaders = true
	}
}

// NewRouter wires the gateway routes
func NewRouter(h *GatewayHandler, m *Middleware, opts ...RouterOption) http.Handler {
	var o routerOptions
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	if o.trustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(m.LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(RequestTimeout))
	r.Use(m.CORSMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// API routes (rate limited per caller)
	r.Route("/v1", func(r chi.Router) {
		r.Use(m.RateLimitMiddleware)

		r.Post("/generate", h.HandleGenerate)
		r.Post("/translate", h.HandleTranslate)
		r.Post("/sentiment", h.HandleSentiment)
		r.Get("/services", h.HandleServices)
	})

	return r
}
