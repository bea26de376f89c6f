package ollama

import (
	"context"
	"fmt"
	"time"

	"github.com/avast/retry-go"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"go.uber.org/zap"
)

// DefaultServerURL is the address of a local Ollama daemon
const DefaultServerURL = "http://localhost:11434"

// Client runs completions against a self-hosted Ollama model
type Client struct {
	llm        llms.Model
	logger     *zap.Logger
	serverURL  string
	modelName  string
	maxRetries int
	retryDelay time.Duration
	temp       float64
}

// Config for Ollama client
type Config struct {
	ServerURL   string
	ModelName   string
	MaxRetries  int
	RetryDelay  time.Duration
	Temperature float32
}

// NewClient creates a new Ollama client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("ollama model name is required")
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultServerURL
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}

	llm, err := ollama.New(
		ollama.WithModel(cfg.ModelName),
		ollama.WithServerURL(cfg.ServerURL),
		ollama.WithFormat("json"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create ollama client: %w", err)
	}

	logger.Info("Ollama client initialized",
		zap.String("server", cfg.ServerURL),
		zap.String("model", cfg.ModelName))

	return &Client{
		llm:        llm,
		logger:     logger,
		serverURL:  cfg.ServerURL,
		modelName:  cfg.ModelName,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		temp:       float64(cfg.Temperature),
	}, nil
}

// Complete sends prompt to the model and returns its reply
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var text string
	attempt := 0

	err := retry.Do(
		func() error {
			attempt++
			out, err := llms.GenerateFromSinglePrompt(ctx, c.llm, prompt, llms.WithTemperature(c.temp))
			if err != nil {
				c.logger.Warn("Ollama completion attempt failed",
					zap.Int("attempt", attempt),
					zap.Error(err))
				return err
			}
			text = out
			return nil
		},
		retry.Attempts(uint(c.maxRetries)),
		retry.Delay(c.retryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(error) bool { return ctx.Err() == nil }),
	)
	if err != nil {
		return "", fmt.Errorf("ollama completion failed after %d attempt(s): %w", attempt, err)
	}

	return text, nil
}

// Close is a no-op, the langchaingo client holds no resources
func (c *Client) Close() error {
	return nil
}

// GetModelInfo returns model information
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    "ollama",
		"model":       c.modelName,
		"base_url":    c.serverURL,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
