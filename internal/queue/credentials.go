package queue

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// TokenProvider hands out an orchestrator access token, reusing the cached
// one until it expires.
type TokenProvider struct {
	cfg    *clientcredentials.Config
	logger *zap.Logger

	mu    sync.Mutex
	token *oauth2.Token
}

// NewTokenProvider builds a client-credentials token provider against
// {identityURL}/connect/token. Scopes are space separated.
func NewTokenProvider(identityURL, clientID, clientSecret, scopes string, logger *zap.Logger) *TokenProvider {
	return &TokenProvider{
		cfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     strings.TrimRight(identityURL, "/") + "/connect/token",
			Scopes:       strings.Fields(scopes),
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		logger: logger,
	}
}

// GetValid returns a token that has not expired, refreshing it when needed
func (p *TokenProvider) GetValid(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.token.Valid() {
		p.logger.Debug("Using cached orchestrator access token")
		return p.token.AccessToken, nil
	}

	p.logger.Info("Refreshing orchestrator access token")

	token, err := p.cfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh orchestrator access token: %w", err)
	}

	p.token = token
	p.logger.Info("Orchestrator access token refreshed", zap.Time("expiry", token.Expiry))

	return token.AccessToken, nil
}

// Invalidate drops the cached token so the next GetValid fetches a new one
func (p *TokenProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.token = nil
}
