package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/models"
)

// DB is the PostgreSQL-backed config store. It serves the three logical
// tables the gateway reads and writes: ai_service_configs,
// ai_cultural_guidelines and ai_service_usage.
type DB struct {
	conn *sql.DB
}

// New creates a new database connection
func New(databaseURL string) (*DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := conn.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return &DB{conn: conn}, nil
}

// NewWithConn wraps an existing connection
func NewWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// ListActiveServiceConfigs returns every active provider configuration.
// Rows are ordered so that "first seen" is stable across refreshes.
func (db *DB) ListActiveServiceConfigs(ctx context.Context) ([]models.ServiceConfig, error) {
	query := `
		SELECT id, service_name, service_type, configuration, capabilities,
		       rate_limits, cost_per_request, is_active, is_primary
		FROM ai_service_configs
		WHERE is_active = true
		ORDER BY created_at, service_name
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list service configs: %w", err)
	}
	defer rows.Close()

	var configs []models.ServiceConfig
	for rows.Next() {
		var cfg models.ServiceConfig
		var configurationJSON, capabilitiesJSON, rateLimitsJSON []byte

		if err := rows.Scan(
			&cfg.ID,
			&cfg.ServiceName,
			&cfg.ServiceType,
			&configurationJSON,
			&capabilitiesJSON,
			&rateLimitsJSON,
			&cfg.CostPerRequest,
			&cfg.IsActive,
			&cfg.IsPrimary,
		); err != nil {
			return nil, fmt.Errorf("failed to scan service config: %w", err)
		}

		cfg.Configuration = make(map[string]any)
		if len(configurationJSON) > 0 {
			if err := json.Unmarshal(configurationJSON, &cfg.Configuration); err != nil {
				return nil, fmt.Errorf("invalid configuration for %s: %w", cfg.ServiceName, err)
			}
		}
		if len(capabilitiesJSON) > 0 {
			if err := json.Unmarshal(capabilitiesJSON, &cfg.Capabilities); err != nil {
				return nil, fmt.Errorf("invalid capabilities for %s: %w", cfg.ServiceName, err)
			}
		}
		if len(rateLimitsJSON) > 0 {
			if err := json.Unmarshal(rateLimitsJSON, &cfg.RateLimits); err != nil {
				return nil, fmt.Errorf("invalid rate_limits for %s: %w", cfg.ServiceName, err)
			}
		}

		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating service configs: %w", err)
	}

	return configs, nil
}

// ListActiveGuidelines returns every active cultural guideline
func (db *DB) ListActiveGuidelines(ctx context.Context) ([]models.CulturalGuideline, error) {
	query := `
		SELECT id, title, category, is_active, portuguese_regions_applicable, rule
		FROM ai_cultural_guidelines
		WHERE is_active = true
		ORDER BY id
	`

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list guidelines: %w", err)
	}
	defer rows.Close()

	var guidelines []models.CulturalGuideline
	for rows.Next() {
		var g models.CulturalGuideline
		var title, category sql.NullString
		var rule []byte

		if err := rows.Scan(
			&g.ID,
			&title,
			&category,
			&g.IsActive,
			pq.Array(&g.PortugueseRegionsApplicable),
			&rule,
		); err != nil {
			return nil, fmt.Errorf("failed to scan guideline: %w", err)
		}

		g.Title = title.String
		g.Category = category.String
		g.Rule = json.RawMessage(rule)
		guidelines = append(guidelines, g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guidelines: %w", err)
	}

	return guidelines, nil
}

// InsertUsage appends a usage row and returns its generated id
func (db *DB) InsertUsage(ctx context.Context, rec *models.UsageRecord) (string, error) {
	query := `
		INSERT INTO ai_service_usage (
			service_name, operation_type, user_id, request_tokens, response_tokens,
			latency_ms, success, error_message, cultural_context
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	var id string
	err := db.conn.QueryRowContext(ctx, query,
		rec.ServiceName,
		rec.OperationType,
		rec.UserID,
		rec.RequestTokens,
		rec.ResponseTokens,
		rec.LatencyMs,
		rec.Success,
		rec.ErrorMessage,
		rec.CulturalContext,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("failed to insert usage: %w", err)
	}

	return id, nil
}

// ListRecentUsage returns the most recent usage rows, newest first
func (db *DB) ListRecentUsage(ctx context.Context, limit int) ([]models.UsageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, service_name, operation_type, user_id, request_tokens, response_tokens,
		       latency_ms, success, error_message, cultural_context, created_at
		FROM ai_service_usage
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := db.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}
	defer rows.Close()

	var records []models.UsageRecord
	for rows.Next() {
		var rec models.UsageRecord
		var userID, errMsg, culturalContext sql.NullString

		if err := rows.Scan(
			&rec.ID,
			&rec.ServiceName,
			&rec.OperationType,
			&userID,
			&rec.RequestTokens,
			&rec.ResponseTokens,
			&rec.LatencyMs,
			&rec.Success,
			&errMsg,
			&culturalContext,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan usage: %w", err)
		}

		rec.UserID = nullableString(userID)
		rec.ErrorMessage = nullableString(errMsg)
		rec.CulturalContext = nullableString(culturalContext)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating usage: %w", err)
	}

	return records, nil
}

func nullableString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
