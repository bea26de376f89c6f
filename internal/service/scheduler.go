package service

import (
	"context"
	"errors"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"go.uber.org/zap"
)

// BatchRunner runs one extraction batch
type BatchRunner interface {
	RunExtractionBatch(ctx context.Context) (*models.BatchResult, error)
}

// Scheduler triggers a batch on a fixed interval
type Scheduler struct {
	runner   BatchRunner
	interval time.Duration
	logger   *zap.Logger
}

// NewScheduler creates a new scheduler
func NewScheduler(runner BatchRunner, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		runner:   runner,
		interval: interval,
		logger:   logger,
	}
}

// Run triggers batches until ctx is done. A tick that finds a batch already
// running is skipped.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Extraction scheduler started", zap.Duration("interval", s.interval))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Extraction scheduler stopped")
			return
		case <-ticker.C:
			result, err := s.runner.RunExtractionBatch(ctx)
			switch {
			case errors.Is(err, models.ErrBatchInProgress):
				s.logger.Info("Extraction batch already running, skipping tick")
			case err != nil:
				s.logger.Error("Scheduled extraction batch failed",
					zap.String("kind", models.ErrorKind(err)),
					zap.Error(err))
			default:
				s.logger.Info("Scheduled extraction batch finished",
					zap.String("batch_id", result.BatchID),
					zap.Int("processed", result.ProcessedCount),
					zap.Int("saved", result.SavedCount))
			}
		}
	}
}
