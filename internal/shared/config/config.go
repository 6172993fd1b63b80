package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the gateway
type Config struct {
	// Server
	Port string
	Env  string

	// Logging
	LogLevel  string
	LogFormat string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// LLM provider credentials
	OpenAIAPIKey       string
	AzureOpenAIAPIKey  string
	AzureOpenAIBaseURL string
	AnthropicAPIKey    string
	GeminiAPIKey       string

	// Translation / sentiment provider credentials
	GoogleCloudAPIKey      string
	AzureCognitiveKey      string
	AzureCognitiveRegion   string
	AzureCognitiveEndpoint string

	// Registry
	RegistryCacheTTL time.Duration

	// Timeouts
	ProviderTimeout   time.Duration
	UsageWriteTimeout time.Duration

	// Rate Limiting
	DefaultRateLimit  int
	TrustProxyHeaders bool

	// Translation cache
	TranslationCacheEnabled bool
	TranslationCacheTTL     time.Duration

	// Emotion lexicon override
	EmotionLexiconPath string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Port:                    getEnv("PORT", "8080"),
		Env:                     getEnv("ENV", "development"),
		LogLevel:                getEnv("LOG_LEVEL", "info"),
		LogFormat:               getEnv("LOG_FORMAT", "json"),
		DatabaseURL:             getEnv("DATABASE_URL", ""),
		RedisURL:                getEnv("REDIS_URL", "redis://localhost:6379"),
		OpenAIAPIKey:            getEnv("OPENAI_API_KEY", ""),
		AzureOpenAIAPIKey:       getEnv("AZURE_OPENAI_API_KEY", ""),
		AzureOpenAIBaseURL:      getEnv("AZURE_OPENAI_ENDPOINT", ""),
		AnthropicAPIKey:         getEnv("ANTHROPIC_API_KEY", ""),
		GeminiAPIKey:            getEnv("GEMINI_API_KEY", ""),
		GoogleCloudAPIKey:       getEnv("GOOGLE_CLOUD_API_KEY", ""),
		AzureCognitiveKey:       getEnv("AZURE_COGNITIVE_KEY", ""),
		AzureCognitiveRegion:    getEnv("AZURE_COGNITIVE_REGION", ""),
		AzureCognitiveEndpoint:  getEnv("AZURE_COGNITIVE_ENDPOINT", ""),
		RegistryCacheTTL:        getEnvDuration("REGISTRY_CACHE_TTL", 5*time.Minute),
		ProviderTimeout:         getEnvDuration("PROVIDER_TIMEOUT", 30*time.Second),
		UsageWriteTimeout:       getEnvDuration("USAGE_WRITE_TIMEOUT", 2*time.Second),
		DefaultRateLimit:        getEnvInt("DEFAULT_RATE_LIMIT", 100),
		TrustProxyHeaders:       getEnvBool("TRUST_PROXY_HEADERS", false),
		TranslationCacheEnabled: getEnvBool("TRANSLATION_CACHE_ENABLED", true),
		TranslationCacheTTL:     getEnvDuration("TRANSLATION_CACHE_TTL", time.Hour),
		EmotionLexiconPath:      getEnv("EMOTION_LEXICON_PATH", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks required fields
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if !c.HasAnyProvider() {
		return fmt.Errorf("at least one provider credential is required (OPENAI_API_KEY, AZURE_OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY, GOOGLE_CLOUD_API_KEY or AZURE_COGNITIVE_KEY)")
	}

	if c.AzureOpenAIAPIKey != "" && c.AzureOpenAIBaseURL == "" {
		return fmt.Errorf("AZURE_OPENAI_ENDPOINT is required when AZURE_OPENAI_API_KEY is set")
	}

	return nil
}

// HasAnyProvider reports whether any vendor credential is configured
func (c *Config) HasAnyProvider() bool {
	return c.OpenAIAPIKey != "" ||
		c.AzureOpenAIAPIKey != "" ||
		c.AnthropicAPIKey != "" ||
		c.GeminiAPIKey != "" ||
		c.GoogleCloudAPIKey != "" ||
		c.AzureCognitiveKey != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
