// Package metrics holds the Prometheus collectors shared by the gateway.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luso_gateway_requests_total",
			Help: "Gateway operations by operation, service and outcome",
		},
		[]string{"operation", "service", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "luso_gateway_request_duration_seconds",
			Help:    "End to end gateway operation latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "luso_gateway_provider_calls_total",
			Help: "External provider attempts by service, operation and outcome",
		},
		[]string{"service", "operation", "status"},
	)

	// GuidelineFailOpen counts validations that passed only because the
	// guideline store could not be reached.
	GuidelineFailOpen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luso_gateway_guideline_fail_open_total",
		Help: "Guideline validations that failed open because guidelines could not be fetched",
	})

	GuidelineRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luso_gateway_guideline_rejections_total",
		Help: "Requests rejected by cultural guidelines before dispatch",
	})

	UsageTrackingFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luso_gateway_usage_tracking_failures_total",
		Help: "Usage records that could not be written",
	})

	RegistryRefreshFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luso_gateway_registry_refresh_failures_total",
		Help: "Failed service registry refreshes",
	})

	TranslationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "luso_gateway_translation_cache_hits_total",
		Help: "Translations served from the result cache",
	})
)
