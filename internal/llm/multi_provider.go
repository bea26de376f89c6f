package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// MultiProviderClient manages multiple LLM providers with fallback
type MultiProviderClient struct {
	providers    []Provider
	currentIndex int
	mu           sync.RWMutex
	logger       *zap.Logger
	failureCount map[int]int
	maxFailures  int
}

// MultiProviderConfig holds configuration for multiple providers
type MultiProviderConfig struct {
	Providers   []ProviderConfig
	MaxFailures int // Max consecutive failures before switching provider
}

// NewMultiProviderClient creates a new multi-provider client. Providers that
// fail to initialise are logged and skipped.
func NewMultiProviderClient(cfg MultiProviderConfig, logger *zap.Logger) (*MultiProviderClient, error) {
	if len(cfg.Providers) == 0 {
		return nil, fmt.Errorf("at least one provider is required")
	}

	providers := make([]Provider, 0, len(cfg.Providers))

	for i, providerCfg := range cfg.Providers {
		provider, err := NewProvider(providerCfg, logger)
		if err != nil {
			logger.Error("Failed to create provider",
				zap.String("type", string(providerCfg.Type)),
				zap.Int("index", i),
				zap.Error(err))
			continue
		}

		providers = append(providers, NewRateLimitedProvider(provider, providerCfg.RequestsPerMinute, logger))

		logger.Info("Provider initialized",
			zap.String("type", string(providerCfg.Type)),
			zap.String("model", providerCfg.ModelName),
			zap.Int("rate_limit", providerCfg.RequestsPerMinute),
			zap.Int("index", i))
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no providers could be initialized")
	}

	return NewMultiProviderClientFrom(providers, cfg.MaxFailures, logger), nil
}

// NewMultiProviderClientFrom builds the failover client over ready providers
func NewMultiProviderClientFrom(providers []Provider, maxFailures int, logger *zap.Logger) *MultiProviderClient {
	if maxFailures <= 0 {
		maxFailures = 3
	}

	return &MultiProviderClient{
		providers:    providers,
		logger:       logger,
		failureCount: make(map[int]int),
		maxFailures:  maxFailures,
	}
}

// getCurrentProvider returns the current provider and its index
func (c *MultiProviderClient) getCurrentProvider() (Provider, int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.providers[c.currentIndex], c.currentIndex
}

// switchToNextProvider switches to the next available provider
func (c *MultiProviderClient) switchToNextProvider() {
	c.mu.Lock()
	defer c.mu.Unlock()

	oldIndex := c.currentIndex
	c.currentIndex = (c.currentIndex + 1) % len(c.providers)

	c.logger.Info("Switching provider",
		zap.Int("from_index", oldIndex),
		zap.Int("to_index", c.currentIndex),
		zap.Int("total_providers", len(c.providers)))
}

// recordFailure records a failure and reports whether the provider is exhausted
func (c *MultiProviderClient) recordFailure(providerIndex int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.failureCount[providerIndex]++

	if c.failureCount[providerIndex] >= c.maxFailures {
		c.logger.Warn("Provider reached max failures",
			zap.Int("provider_index", providerIndex),
			zap.Int("failures", c.failureCount[providerIndex]))
		c.failureCount[providerIndex] = 0
		return true
	}

	return false
}

func (c *MultiProviderClient) resetFailureCount(providerIndex int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failureCount[providerIndex] = 0
}

// Complete runs prompt on the current provider. A failed call is returned to
// the caller as is; the provider is rotated after repeated failures or a rate
// limit so the next call lands elsewhere.
func (c *MultiProviderClient) Complete(ctx context.Context, prompt string) (string, error) {
	provider, providerIndex := c.getCurrentProvider()

	c.logger.Debug("Requesting completion", zap.Int("provider_index", providerIndex))

	result, err := provider.Complete(ctx, prompt)
	if err == nil {
		c.resetFailureCount(providerIndex)
		return result, nil
	}

	c.logger.Error("Provider failed",
		zap.Int("provider_index", providerIndex),
		zap.Error(err))

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "", err
	}

	shouldSwitch := c.recordFailure(providerIndex)
	if len(c.providers) > 1 && (shouldSwitch || isRateLimitError(err)) {
		c.switchToNextProvider()
	}

	return "", err
}

// isRateLimitError checks if error is a rate limit error
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "quota") ||
		strings.Contains(errStr, "rate limit")
}

// Close closes all providers
func (c *MultiProviderClient) Close() error {
	var lastErr error
	for i, provider := range c.providers {
		if err := provider.Close(); err != nil {
			c.logger.Error("Failed to close provider",
				zap.Int("index", i),
				zap.Error(err))
			lastErr = err
		}
	}
	return lastErr
}

// GetModelInfo returns information about the current provider
func (c *MultiProviderClient) GetModelInfo() map[string]interface{} {
	provider, index := c.getCurrentProvider()
	info := provider.GetModelInfo()

	c.mu.RLock()
	defer c.mu.RUnlock()
	info["is_current"] = true
	info["provider_index"] = index
	info["total_providers"] = len(c.providers)
	info["failure_count"] = c.failureCount[index]
	return info
}

// ProviderCount returns how many providers started successfully
func (c *MultiProviderClient) ProviderCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.providers)
}

// GetProvidersInfo returns information about all providers
func (c *MultiProviderClient) GetProvidersInfo() []map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	info := make([]map[string]interface{}, len(c.providers))
	for i, provider := range c.providers {
		providerInfo := provider.GetModelInfo()
		providerInfo["is_current"] = (i == c.currentIndex)
		providerInfo["failure_count"] = c.failureCount[i]
		info[i] = providerInfo
	}
	return info
}
