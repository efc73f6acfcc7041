package app

import (
	"fmt"
	"log/slog"

	"github.com/joho/godotenv"

	"insight-agents/internal/cache"
	"insight-agents/internal/config"
	"insight-agents/internal/llm"
	"insight-agents/internal/logger"
)

// Deps bundles common runtime dependencies for the server.
type Deps struct {
	Config config.Config
	Log    *slog.Logger
	LLM    llm.Client
	Cache  cache.Cache
}

// Build loads env, config, and shared components. A missing credential fails
// here, before any model call can happen.
func Build() (Deps, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize LLM: %w", err)
	}
	c, err := buildCache(cfg, log)
	if err != nil {
		return Deps{}, fmt.Errorf("failed to initialize cache: %w", err)
	}
	return Deps{
		Config: cfg,
		Log:    log,
		LLM:    llmClient,
		Cache:  c,
	}, nil
}

func buildLLM(cfg config.Config, log *slog.Logger) (llm.Client, error) {
	switch cfg.LLMProvider {
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required before any analysis can run; set it in the environment or a .env file")
		}
		client, err := llm.NewOpenAIClient(llm.Options{
			APIKey:          cfg.APIKey,
			BaseURL:         cfg.BaseURL,
			FastModel:       cfg.FastModel,
			ReasoningModel:  cfg.ReasoningModel,
			ReasoningEffort: cfg.ReasoningEffort,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
		}
		log.Info("using OpenAI-compatible LLM client",
			"fast_model", cfg.FastModel,
			"reasoning_model", cfg.ReasoningModel,
			"reasoning_effort", cfg.ReasoningEffort,
		)
		return client, nil
	default:
		return nil, fmt.Errorf("invalid LLM_PROVIDER: %s (valid option: openai)", cfg.LLMProvider)
	}
}

func buildCache(cfg config.Config, log *slog.Logger) (cache.Cache, error) {
	switch cfg.CacheProvider {
	case "redis":
		c, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Redis cache: %w", err)
		}
		log.Info("using Redis result cache", "addr", cfg.RedisAddr)
		return c, nil
	case "none":
		return cache.NewNoOpCache(), nil
	default:
		return nil, fmt.Errorf("invalid CACHE_PROVIDER: %s (valid options: none, redis)", cfg.CacheProvider)
	}
}
