// Package cache stores finished translations in Redis so identical requests
// skip the provider.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mrmushfiq/luso-ai-gateway/internal/shared/redis"
)

// ErrMiss is returned by Get when no translation is stored for the key
var ErrMiss = redis.ErrNotFound

// DefaultTTL is used when Set is called with a zero ttl
const DefaultTTL = time.Hour

// Store is the key-value subset of the Redis client used by the cache
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
}

// Key identifies one translation. ServiceName is part of the key so a switch
// of primary provider does not serve another vendor's output.
type Key struct {
	ServiceName    string
	Text           string
	SourceLanguage string
	TargetLanguage string
	Dialect        string
}

// Entry is a cached, already dialect-adapted translation
type Entry struct {
	TranslatedText      string    `json:"translated_text"`
	Model               string    `json:"model,omitempty"`
	Confidence          float64   `json:"confidence"`
	CulturalAdaptations []string  `json:"cultural_adaptations"`
	CachedAt            time.Time `json:"cached_at"`
}

type Cache struct {
	store Store
}

// New creates a new cache instance
func New(store Store) *Cache {
	return &Cache{store: store}
}

// generateCacheKey generates a hash of the request for caching
func (c *Cache) generateCacheKey(k Key) string {
	keyData := fmt.Sprintf("%s\x00%s\x00%s\x00%s\x00%s",
		k.ServiceName,
		k.SourceLanguage,
		k.TargetLanguage,
		k.Dialect,
		k.Text,
	)

	hash := sha256.Sum256([]byte(keyData))
	return "cache:translation:" + hex.EncodeToString(hash[:])
}

// Get retrieves a cached translation. A miss returns the store's not-found error.
func (c *Cache) Get(ctx context.Context, k Key) (*Entry, error) {
	val, err := c.store.Get(ctx, c.generateCacheKey(k))
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal([]byte(val), &entry); err != nil {
		return nil, fmt.Errorf("failed to deserialize cached translation: %w", err)
	}

	return &entry, nil
}

// Set stores a translation
func (c *Cache) Set(ctx context.Context, k Key, entry *Entry, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if entry.CachedAt.IsZero() {
		entry.CachedAt = time.Now().UTC()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to serialize translation: %w", err)
	}

	return c.store.Set(ctx, c.generateCacheKey(k), string(data), ttl)
}
