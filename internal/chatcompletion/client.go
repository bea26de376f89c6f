// Package chatcompletion talks to OpenAI-compatible /chat/completions
// endpoints. Groq and OpenRouter both speak this dialect.
package chatcompletion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	GroqBaseURL       = "https://api.groq.com/openai/v1"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"
)

// Client represents an OpenAI-compatible chat completion client.
type Client struct {
	provider   string
	baseURL    string
	modelName  string
	http       *resty.Client
	logger     *zap.Logger
	maxRetries int
	retryDelay time.Duration
	temp       float32
	maxTokens  int
}

// Config holds configuration for the client.
type Config struct {
	Provider    string // "groq", "openrouter", ...; used for logs and model info
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxRetries  int
	RetryDelay  time.Duration
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Stream      bool          `json:"stream"`
	Temperature float32       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`

	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// NewClient creates a new chat completion client.
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%s API key is required", cfg.Provider)
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%s base URL is required", cfg.Provider)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%s model name is required", cfg.Provider)
	}

	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 1
	}

	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 2 * time.Second
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(cfg.Timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	logger.Info("Chat completion client initialized",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.ModelName),
		zap.Int("max_retries", cfg.MaxRetries))

	return &Client{
		provider:   cfg.Provider,
		baseURL:    baseURL,
		modelName:  cfg.ModelName,
		http:       httpClient,
		logger:     logger,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		temp:       cfg.Temperature,
		maxTokens:  cfg.MaxTokens,
	}, nil
}

// Complete sends prompt as a single user message and returns the reply text.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	var text string
	attempt := 0

	err := retry.Do(
		func() error {
			attempt++
			out, err := c.completeOnce(ctx, prompt)
			if err != nil {
				c.logger.Warn("Chat completion attempt failed",
					zap.String("provider", c.provider),
					zap.Int("attempt", attempt),
					zap.Int("max_retries", c.maxRetries),
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
		return "", fmt.Errorf("%s completion failed after %d attempt(s): %w", c.provider, attempt, err)
	}

	return text, nil
}

func (c *Client) completeOnce(ctx context.Context, prompt string) (string, error) {
	var result chatResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       c.modelName,
			Messages:    []chatMessage{{Role: "user", Content: prompt}},
			Temperature: c.temp,
			MaxTokens:   c.maxTokens,

			// Both pipeline prompts ask for a single JSON object
			ResponseFormat: &responseFormat{Type: "json_object"},
		}).
		SetResult(&result).
		SetError(&result).
		Post("/chat/completions")
	if err != nil {
		return "", fmt.Errorf("%s API request failed: %w", c.provider, err)
	}

	if resp.IsError() {
		if result.Error != nil && result.Error.Message != "" {
			return "", fmt.Errorf("%s API returned status %d: %s", c.provider, resp.StatusCode(), result.Error.Message)
		}
		return "", fmt.Errorf("%s API returned status %d: %s", c.provider, resp.StatusCode(), resp.String())
	}

	if result.Error != nil {
		return "", fmt.Errorf("%s API error: %s", c.provider, result.Error.Message)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in %s response", c.provider)
	}

	return result.Choices[0].Message.Content, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.GetClient().CloseIdleConnections()
	return nil
}

// GetModelInfo returns information about the model being used.
func (c *Client) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"provider":    c.provider,
		"model":       c.modelName,
		"base_url":    c.baseURL,
		"max_retries": c.maxRetries,
		"retry_delay": c.retryDelay.String(),
	}
}
