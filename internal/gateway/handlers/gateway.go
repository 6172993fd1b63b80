package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/guidelines"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/pipeline"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/providers"
	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/registry"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// Operations is the gateway surface exposed over HTTP
type Operations interface {
	GenerateText(ctx context.Context, req pipeline.AIRequest) pipeline.AIResponse
	TranslateText(ctx context.Context, req pipeline.TranslateRequest) pipeline.AIResponse
	AnalyzeSentiment(ctx context.Context, text, language, userID string) pipeline.AIResponse
}

// ServiceLister exposes the cached service configurations
type ServiceLister interface {
	Snapshot() []models.ServiceConfig
}

type GatewayHandler struct {
	gateway  Operations
	services ServiceLister
	logger   zerolog.Logger
}

func NewGatewayHandler(gateway Operations, services ServiceLister, logger zerolog.Logger) *GatewayHandler {
	return &GatewayHandler{
		gateway:  gateway,
		services: services,
		logger:   logger.With().Str("component", "handlers").Logger(),
	}
}

// HandleGenerate handles POST /v1/generate
func (h *GatewayHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.AIRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get(UserIDHeader)
	}

	h.writeResponse(w, h.gateway.GenerateText(r.Context(), req))
}

// HandleTranslate handles POST /v1/translate
func (h *GatewayHandler) HandleTranslate(w http.ResponseWriter, r *http.Request) {
	var req pipeline.TranslateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get(UserIDHeader)
	}

	h.writeResponse(w, h.gateway.TranslateText(r.Context(), req))
}

// HandleSentiment handles POST /v1/sentiment
func (h *GatewayHandler) HandleSentiment(w http.ResponseWriter, r *http.Request) {
	var req pipeline.SentimentRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.UserID == "" {
		req.UserID = r.Header.Get(UserIDHeader)
	}

	h.writeResponse(w, h.gateway.AnalyzeSentiment(r.Context(), req.Text, req.Language, req.UserID))
}

// serviceView is the public projection of a ServiceConfig. The opaque
// configuration map is withheld since it may carry endpoints and deployment ids.
type serviceView struct {
	ServiceName    string            `json:"service_name"`
	ServiceType    string            `json:"service_type"`
	Capabilities   []string          `json:"capabilities"`
	RateLimits     models.RateLimits `json:"rate_limits"`
	CostPerRequest decimal.Decimal   `json:"cost_per_request"`
	IsPrimary      bool              `json:"is_primary"`
}

// HandleServices handles GET /v1/services
func (h *GatewayHandler) HandleServices(w http.ResponseWriter, r *http.Request) {
	configs := h.services.Snapshot()
	views := make([]serviceView, 0, len(configs))
	for _, c := range configs {
		views = append(views, serviceView{
			ServiceName:    c.ServiceName,
			ServiceType:    c.ServiceType,
			Capabilities:   c.Capabilities,
			RateLimits:     c.RateLimits,
			CostPerRequest: c.CostPerRequest,
			IsPrimary:      c.IsPrimary,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{"services": views})
}

func (h *GatewayHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return false
	}
	return true
}

func (h *GatewayHandler) writeResponse(w http.ResponseWriter, resp pipeline.AIResponse) {
	w.Header().Set("X-Request-ID", resp.RequestID)
	w.Header().Set("X-Usage-ID", resp.UsageID)
	w.Header().Set("X-Provider", resp.ServiceUsed)
	w.Header().Set("X-Cache-Hit", fmt.Sprintf("%v", resp.CacheHit))
	w.Header().Set("X-Cost", resp.Cost.String())
	w.Header().Set("X-Latency-Ms", fmt.Sprintf("%d", resp.ResponseTimeMs))

	status := statusFor(resp)
	if status >= http.StatusInternalServerError {
		h.logger.Error().Err(resp.Err).
			Str("request_id", resp.RequestID).
			Str("service", resp.ServiceUsed).
			Int("status", status).
			Msg("gateway request failed")
	}

	writeJSON(w, status, resp)
}

// statusFor maps the typed failure behind a response to an HTTP status
func statusFor(resp pipeline.AIResponse) int {
	if resp.Success {
		return http.StatusOK
	}

	var violation *guidelines.ViolationError
	var unsupported *providers.UnsupportedProviderError
	switch {
	case errors.Is(resp.Err, pipeline.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.As(resp.Err, &violation):
		return http.StatusUnprocessableEntity
	case errors.Is(resp.Err, registry.ErrNoServiceAvailable):
		return http.StatusServiceUnavailable
	case errors.As(resp.Err, &unsupported):
		return http.StatusInternalServerError
	case errors.Is(resp.Err, providers.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(resp.Err, providers.ErrTimeout):
		return http.StatusGatewayTimeout
	}

	var providerErr *providers.ProviderError
	if errors.As(resp.Err, &providerErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
