package config

import (
	"log/slog"

	"github.com/caarlos0/env/v10"
)

// Config holds runtime configuration read from the environment.
type Config struct {
	// Server
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Upload limits
	MaxImageSize int64 `env:"MAX_IMAGE_SIZE" envDefault:"10485760"` // 10MiB
	MaxPDFSize   int64 `env:"MAX_PDF_SIZE" envDefault:"52428800"`   // 50MiB
	MaxTextSize  int64 `env:"MAX_TEXT_SIZE" envDefault:"1048576"`   // 1MiB of pasted text

	// LLM
	LLMProvider     string `env:"LLM_PROVIDER" envDefault:"openai"` // "openai" (any OpenAI-compatible endpoint)
	APIKey          string `env:"OPENAI_API_KEY"`
	BaseURL         string `env:"OPENAI_BASE_URL"` // empty means api.openai.com
	FastModel       string `env:"FAST_MODEL" envDefault:"gpt-4o-mini"`
	ReasoningModel  string `env:"REASONING_MODEL" envDefault:"o4-mini"`
	ReasoningEffort string `env:"REASONING_EFFORT" envDefault:"high"` // low, medium, high

	// Cache
	CacheProvider string `env:"CACHE_PROVIDER" envDefault:"none"` // "none" or "redis"
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	CacheTTL      int    `env:"CACHE_TTL" envDefault:"3600"` // seconds
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		slog.Warn("failed to parse env; using defaults where set", "err", err)
	}
	return cfg
}
