// Package usage records one append-only usage row per attempted AI call.
package usage

import (
	"context"
	"time"

	"github.com/mrmushfiq/luso-ai-gateway/internal/gateway/metrics"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
	"github.com/rs/zerolog"
)

// UnknownID is returned when the usage row could not be written
const UnknownID = "unknown"

// DefaultWriteTimeout bounds a single usage insert
const DefaultWriteTimeout = 2 * time.Second

// Store is the write side of the config store used by the meter
type Store interface {
	InsertUsage(ctx context.Context, rec *models.UsageRecord) (string, error)
}

// Entry describes one attempted call
type Entry struct {
	ServiceName     string
	OperationType   string
	UserID          string
	RequestTokens   int
	ResponseTokens  int
	Latency         time.Duration
	Success         bool
	ErrorMessage    string
	CulturalContext string
}

// Meter writes usage rows. Write failures never reach the caller.
type Meter struct {
	store   Store
	timeout time.Duration
	logger  zerolog.Logger
}

// Option configures the meter
type Option func(*Meter)

// WithWriteTimeout bounds how long Record waits for the store
func WithWriteTimeout(d time.Duration) Option {
	return func(m *Meter) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the meter logger
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Meter) {
		m.logger = logger
	}
}

// NewMeter creates a usage meter
func NewMeter(store Store, opts ...Option) *Meter {
	m := &Meter{
		store:   store,
		timeout: DefaultWriteTimeout,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With().Str("component", "usage").Logger()
	return m
}

// Record writes entry and returns the usage id, or UnknownID when the write
// fails or exceeds the write timeout. The write is detached from ctx
// cancellation so a caller hanging up does not lose the row.
func (m *Meter) Record(ctx context.Context, entry Entry) string {
	rec := &models.UsageRecord{
		ServiceName:     entry.ServiceName,
		OperationType:   entry.OperationType,
		UserID:          nullString(entry.UserID),
		RequestTokens:   entry.RequestTokens,
		ResponseTokens:  entry.ResponseTokens,
		LatencyMs:       entry.Latency.Milliseconds(),
		Success:         entry.Success,
		ErrorMessage:    nullString(entry.ErrorMessage),
		CulturalContext: nullString(entry.CulturalContext),
	}

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	type result struct {
		id  string
		err error
	}
	done := make(chan result, 1)
	go func() {
		id, err := m.store.InsertUsage(writeCtx, rec)
		done <- result{id: id, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil || res.id == "" {
			m.trackingFailed(entry, res.err)
			return UnknownID
		}
		return res.id
	case <-writeCtx.Done():
		m.trackingFailed(entry, writeCtx.Err())
		return UnknownID
	}
}

func (m *Meter) trackingFailed(entry Entry, err error) {
	metrics.UsageTrackingFailures.Inc()
	m.logger.Error().Err(err).
		Str("event", "usage_tracking_failed").
		Str("service", entry.ServiceName).
		Str("operation", entry.OperationType).
		Bool("success", entry.Success).
		Msg("failed to track AI usage")
}

// nullString converts an empty string to NULL for database insertion
func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
