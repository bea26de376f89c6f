package service

import (
	"context"
	"strings"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"go.uber.org/zap"
)

// QueueClient is the upstream work-item queue and job trigger
type QueueClient interface {
	FetchPending(ctx context.Context) ([]models.QueueItem, error)
	SignalJobComplete(ctx context.Context) error
}

// WorkItemSource yields pending articles that have both a title and content
type WorkItemSource struct {
	queue  QueueClient
	logger *zap.Logger
}

// NewWorkItemSource creates a new work-item source
func NewWorkItemSource(queue QueueClient, logger *zap.Logger) *WorkItemSource {
	return &WorkItemSource{queue: queue, logger: logger}
}

// FetchPendingArticles returns pending items in queue order. Items missing a
// title or content are dropped. An empty queue gives an empty slice and no
// error; a queue failure is a *models.FetchError.
func (s *WorkItemSource) FetchPendingArticles(ctx context.Context) ([]models.WorkItem, error) {
	items, err := s.queue.FetchPending(ctx)
	if err != nil {
		return nil, &models.FetchError{Err: err}
	}

	articles := make([]models.WorkItem, 0, len(items))
	for _, item := range items {
		if strings.TrimSpace(item.Title) == "" || strings.TrimSpace(item.ArticleContent) == "" {
			s.logger.Debug("Skipping queue item without title or content", zap.String("item_id", item.ID))
			continue
		}
		articles = append(articles, models.WorkItem{
			ID:             item.ID,
			Title:          item.Title,
			ArticleContent: item.ArticleContent,
		})
	}

	s.logger.Info("Pending articles fetched",
		zap.Int("queue_items", len(items)),
		zap.Int("articles", len(articles)))

	return articles, nil
}
