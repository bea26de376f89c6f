package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/chatcompletion"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/gemini"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/ollama"

	"go.uber.org/zap"
)

// ProviderType represents the type of LLM provider
type ProviderType string

const (
	ProviderGemini     ProviderType = "gemini"
	ProviderGroq       ProviderType = "groq"
	ProviderOpenRouter ProviderType = "openrouter"
	ProviderOllama     ProviderType = "ollama"
)

// ProviderConfig holds configuration for a single provider instance
type ProviderConfig struct {
	Type        ProviderType  `yaml:"type"`
	APIKey      string        `yaml:"api_key"`
	ModelName   string        `yaml:"model_name"`
	BaseURL     string        `yaml:"base_url"`
	MaxRetries  int           `yaml:"max_retries"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
	Temperature float32       `yaml:"temperature"`
	// Rate limiting per provider, 0 means unlimited
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// Provider is a text completion backend. One call is one model invocation
// unless the provider was configured with retries.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Close() error
	GetModelInfo() map[string]interface{}
}

// NewProvider builds the client for cfg.Type
func NewProvider(cfg ProviderConfig, logger *zap.Logger) (Provider, error) {
	switch cfg.Type {
	case ProviderGemini:
		return gemini.NewClient(gemini.Config{
			APIKey:      cfg.APIKey,
			ModelName:   cfg.ModelName,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
			Temperature: cfg.Temperature,
		}, logger)
	case ProviderGroq, ProviderOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = chatcompletion.GroqBaseURL
			if cfg.Type == ProviderOpenRouter {
				baseURL = chatcompletion.OpenRouterBaseURL
			}
		}
		return chatcompletion.NewClient(chatcompletion.Config{
			Provider:    string(cfg.Type),
			APIKey:      cfg.APIKey,
			BaseURL:     baseURL,
			ModelName:   cfg.ModelName,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
			Temperature: cfg.Temperature,
		}, logger)
	case ProviderOllama:
		return ollama.NewClient(ollama.Config{
			ServerURL:   cfg.BaseURL,
			ModelName:   cfg.ModelName,
			MaxRetries:  cfg.MaxRetries,
			RetryDelay:  cfg.RetryDelay,
			Temperature: cfg.Temperature,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
