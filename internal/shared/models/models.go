package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Capabilities a provider can be registered for
const (
	CapabilityLLM         = "llm"
	CapabilityTranslation = "translation"
	CapabilitySentiment   = "sentiment_analysis"
)

// RateLimits holds the per-service limits stored in ai_service_configs.rate_limits
type RateLimits struct {
	RequestsPerMinute int `json:"requests_per_minute,omitempty"`
	TimeoutMs         int `json:"timeout_ms,omitempty"`
}

// Timeout returns the configured call timeout, or zero if none is set
func (r RateLimits) Timeout() time.Duration {
	if r.TimeoutMs <= 0 {
		return 0
	}
	return time.Duration(r.TimeoutMs) * time.Millisecond
}

// ServiceConfig represents a registered AI provider instance
type ServiceConfig struct {
	ID             string          `json:"id"`
	ServiceName    string          `json:"service_name"`
	ServiceType    string          `json:"service_type"`
	Configuration  map[string]any  `json:"configuration"`
	Capabilities   []string        `json:"capabilities"`
	RateLimits     RateLimits      `json:"rate_limits"`
	CostPerRequest decimal.Decimal `json:"cost_per_request"`
	IsActive       bool            `json:"is_active"`
	IsPrimary      bool            `json:"is_primary"`
}

// ConfigString returns a string value from the opaque configuration map
func (c ServiceConfig) ConfigString(key, defaultValue string) string {
	if v, ok := c.Configuration[key].(string); ok && v != "" {
		return v
	}
	return defaultValue
}

// CulturalGuideline represents a content rule. Rule is opaque to the gateway
// and compiled by the guideline validator.
type CulturalGuideline struct {
	ID                          string          `json:"id"`
	Title                       string          `json:"title"`
	Category                    string          `json:"category"`
	IsActive                    bool            `json:"is_active"`
	PortugueseRegionsApplicable []string        `json:"portuguese_regions_applicable"`
	Rule                        json.RawMessage `json:"rule"`
}

// UsageRecord represents one attempted AI call
type UsageRecord struct {
	ID              string
	ServiceName     string
	OperationType   string
	UserID          *string
	RequestTokens   int
	ResponseTokens  int
	LatencyMs       int64
	Success         bool
	ErrorMessage    *string
	CulturalContext *string
	CreatedAt       time.Time
}
