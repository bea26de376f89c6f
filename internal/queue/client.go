// Package queue is the client for the orchestrator that owns the article
// work-item queue and the follow-up job.
package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"github.com/avast/retry-go"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const startJobsPath = "/Jobs/UiPath.Server.Configuration.OData.StartJobs"

// Config for the orchestrator client
type Config struct {
	URL        string
	QueueID    string
	FolderID   string
	ReleaseKey string
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// Client reads pending queue items and starts the follow-up job
type Client struct {
	http   *resty.Client
	tokens *TokenProvider
	cfg    Config
	logger *zap.Logger
}

// NewClient creates a new orchestrator client
func NewClient(cfg Config, tokens *TokenProvider, logger *zap.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("orchestrator URL is required")
	}

	if cfg.QueueID == "" {
		return nil, fmt.Errorf("orchestrator queue id is required")
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 1
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.URL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.FolderID != "" {
		httpClient.SetHeader("X-UIPATH-OrganizationUnitId", cfg.FolderID)
	}

	return &Client{
		http:   httpClient,
		tokens: tokens,
		cfg:    cfg,
		logger: logger,
	}, nil
}

type queueItemsResponse struct {
	Value []queueItem `json:"value"`
}

type queueItem struct {
	ID              looseString `json:"Id"`
	SpecificContent struct {
		Title          looseString `json:"Title"`
		ArticleContent looseString `json:"ArticleContent"`
	} `json:"SpecificContent"`
}

// looseString accepts a JSON string, number or bool. Upstream ids arrive as
// numbers and content fields are not always strings.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}

	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return fmt.Errorf("unexpected JSON %s for string field", data[:1])
	}

	*s = looseString(data)
	return nil
}

type statusError struct {
	op     string
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.op, e.status, e.body)
}

// FetchPending returns every queue item in status New. Items are returned as
// the queue holds them, blank ones included.
func (c *Client) FetchPending(ctx context.Context) ([]models.QueueItem, error) {
	var items []models.QueueItem
	attempt := 0

	err := retry.Do(
		func() error {
			attempt++
			out, err := c.fetchOnce(ctx)
			if err != nil {
				c.logger.Warn("Fetching queue items failed",
					zap.Int("attempt", attempt),
					zap.Int("max_retries", c.cfg.MaxRetries),
					zap.Error(err))
				return err
			}
			items = out
			return nil
		},
		retry.Attempts(uint(c.cfg.MaxRetries)),
		retry.Delay(c.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return ctx.Err() == nil && retryable(err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queue items: %w", err)
	}

	c.logger.Info("Queue items fetched",
		zap.String("queue_id", c.cfg.QueueID),
		zap.Int("count", len(items)))

	return items, nil
}

func (c *Client) fetchOnce(ctx context.Context) ([]models.QueueItem, error) {
	token, err := c.tokens.GetValid(ctx)
	if err != nil {
		return nil, err
	}

	var result queueItemsResponse

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetQueryParam("$filter", fmt.Sprintf("QueueDefinitionId eq %s and Status eq 'New'", c.cfg.QueueID)).
		SetResult(&result).
		Get("/QueueItems")
	if err != nil {
		return nil, fmt.Errorf("queue request failed: %w", err)
	}

	if resp.IsError() {
		if resp.StatusCode() == http.StatusUnauthorized {
			c.tokens.Invalidate()
		}
		return nil, &statusError{op: "QueueItems", status: resp.StatusCode(), body: resp.String()}
	}

	items := make([]models.QueueItem, 0, len(result.Value))
	for _, v := range result.Value {
		items = append(items, models.QueueItem{
			ID:             string(v.ID),
			Title:          string(v.SpecificContent.Title),
			ArticleContent: string(v.SpecificContent.ArticleContent),
		})
	}

	return items, nil
}

type startJobsRequest struct {
	StartInfo startInfo `json:"startInfo"`
}

type startInfo struct {
	ReleaseKey     string `json:"ReleaseKey"`
	Strategy       string `json:"Strategy"`
	JobsCount      int    `json:"JobsCount"`
	RuntimeType    string `json:"RuntimeType"`
	InputArguments string `json:"InputArguments"`
	JobPriority    string `json:"JobPriority"`
}

// SignalJobComplete starts the follow-up job once. It is never retried since
// a repeated start would launch a second job.
func (c *Client) SignalJobComplete(ctx context.Context) error {
	token, err := c.tokens.GetValid(ctx)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(startJobsRequest{StartInfo: startInfo{
			ReleaseKey:     c.cfg.ReleaseKey,
			Strategy:       "ModernJobsCount",
			JobsCount:      1,
			RuntimeType:    "Unattended",
			InputArguments: "{}",
			JobPriority:    "Normal",
		}}).
		Post(startJobsPath)
	if err != nil {
		return fmt.Errorf("start job request failed: %w", err)
	}

	if resp.IsError() {
		return &statusError{op: "StartJobs", status: resp.StatusCode(), body: resp.String()}
	}

	c.logger.Info("Orchestrator job started", zap.String("release_key", c.cfg.ReleaseKey))

	return nil
}

// retryable reports whether a failed read is worth another attempt.
// Client errors other than 401 and 429 will not change on retry.
func retryable(err error) bool {
	var se *statusError
	if !errors.As(err, &se) {
		return true
	}
	switch {
	case se.status == http.StatusUnauthorized, se.status == http.StatusTooManyRequests:
		return true
	case se.status >= 400 && se.status < 500:
		return false
	}
	return true
}
