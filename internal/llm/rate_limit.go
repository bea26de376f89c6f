package llm

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedProvider wraps a provider with a requests-per-minute cap
type RateLimitedProvider struct {
	provider Provider
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// NewRateLimitedProvider wraps a provider with rate limiting. A non-positive
// requestsPerMinute disables the cap.
func NewRateLimitedProvider(provider Provider, requestsPerMinute int, logger *zap.Logger) *RateLimitedProvider {
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}

	return &RateLimitedProvider{
		provider: provider,
		limiter:  rate.NewLimiter(limit, 1),
		logger:   logger,
	}
}

func (p *RateLimitedProvider) Complete(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	return p.provider.Complete(ctx, prompt)
}

func (p *RateLimitedProvider) Close() error {
	return p.provider.Close()
}

func (p *RateLimitedProvider) GetModelInfo() map[string]interface{} {
	info := p.provider.GetModelInfo()
	if p.limiter.Limit() != rate.Inf {
		info["requests_per_minute"] = int(math.Round(float64(p.limiter.Limit()) * 60))
	}
	return info
}
