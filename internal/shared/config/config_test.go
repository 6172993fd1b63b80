package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	for _, key := range []string{
		"OPENAI_API_KEY", "AZURE_OPENAI_API_KEY", "AZURE_OPENAI_ENDPOINT", "ANTHROPIC_API_KEY",
		"GEMINI_API_KEY", "GOOGLE_CLOUD_API_KEY", "AZURE_COGNITIVE_KEY",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/luso?sslmode=disable")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("REGISTRY_CACHE_TTL", "")
	t.Setenv("PORT", "")
	t.Setenv("TRUST_PROXY_HEADERS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 5*time.Minute, cfg.RegistryCacheTTL)
	assert.Equal(t, 30*time.Second, cfg.ProviderTimeout)
	assert.Equal(t, 2*time.Second, cfg.UsageWriteTimeout)
	assert.True(t, cfg.TranslationCacheEnabled)
	assert.False(t, cfg.TrustProxyHeaders)
}

func TestLoad_Overrides(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/luso")
	t.Setenv("GOOGLE_CLOUD_API_KEY", "g-key")
	t.Setenv("REGISTRY_CACHE_TTL", "90s")
	t.Setenv("DEFAULT_RATE_LIMIT", "7")
	t.Setenv("TRANSLATION_CACHE_ENABLED", "false")
	t.Setenv("TRUST_PROXY_HEADERS", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.RegistryCacheTTL)
	assert.Equal(t, 7, cfg.DefaultRateLimit)
	assert.False(t, cfg.TranslationCacheEnabled)
	assert.True(t, cfg.TrustProxyHeaders)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing database", Config{OpenAIAPIKey: "k"}, "DATABASE_URL"},
		{"no providers", Config{DatabaseURL: "postgres://"}, "at least one provider"},
		{"azure without endpoint", Config{DatabaseURL: "postgres://", AzureOpenAIAPIKey: "k"}, "AZURE_OPENAI_ENDPOINT"},
		{"valid", Config{DatabaseURL: "postgres://", AzureCognitiveKey: "k"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetEnvDuration_InvalidFallsBack(t *testing.T) {
	t.Setenv("SOME_DURATION", "not-a-duration")
	assert.Equal(t, time.Second, getEnvDuration("SOME_DURATION", time.Second))
}
