package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const snippetLength = 50

// OrchestratorConfig tunes the extraction pipeline
type OrchestratorConfig struct {
	CallDelay        time.Duration
	MaxArticleTokens int
}

// Orchestrator drives pending articles through classification, extraction,
// normalisation and persistence, one at a time
type Orchestrator struct {
	source     *WorkItemSource
	classifier *Classifier
	extractor  *Extractor
	gate       *Gate
	queue      QueueClient
	truncator  *Truncator
	logger     *zap.Logger

	running sync.Mutex
}

// NewOrchestrator wires the pipeline stages. Every model call made by the
// classifier and extractor shares one pacer.
func NewOrchestrator(
	cfg OrchestratorConfig,
	llm Completer,
	queue QueueClient,
	gate *Gate,
	logger *zap.Logger,
) *Orchestrator {
	paced := &pacedCompleter{llm: llm, pacer: NewPacer(cfg.CallDelay)}

	return &Orchestrator{
		source:     NewWorkItemSource(queue, logger),
		classifier: NewClassifier(paced, logger),
		extractor:  NewExtractor(paced),
		gate:       gate,
		queue:      queue,
		truncator:  NewTruncator(cfg.MaxArticleTokens, logger),
		logger:     logger,
	}
}

// RunExtractionBatch processes every pending article and then signals job
// completion exactly once. Only a *models.FetchError or *models.SignalError
// fails the batch; per-item failures are logged and counted. Cancellation is
// checked before each item, and a cancelled batch does not signal.
func (o *Orchestrator) RunExtractionBatch(ctx context.Context) (*models.BatchResult, error) {
	if !o.running.TryLock() {
		return nil, models.ErrBatchInProgress
	}
	defer o.running.Unlock()

	result := &models.BatchResult{
		BatchID:   uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger := o.logger.With(zap.String("batch_id", result.BatchID))

	logger.Info("Extraction batch started")

	items, err := o.source.FetchPendingArticles(ctx)
	if err != nil {
		logger.Error("Failed to fetch pending articles", zap.Error(err))
		return result, err
	}

	if len(items) == 0 {
		logger.Info("No pending articles")
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			logger.Warn("Extraction batch cancelled",
				zap.Int("processed", result.ProcessedCount),
				zap.Int("remaining", len(items)-result.ProcessedCount))
			return result, err
		}

		result.ProcessedCount++
		o.processItem(ctx, logger, item, result)
	}

	if err := o.queue.SignalJobComplete(ctx); err != nil {
		logger.Error("Failed to signal job completion", zap.Error(err))
		return result, &models.SignalError{Err: err}
	}

	finished := time.Now().UTC()
	result.FinishedAt = &finished

	logger.Info("Extraction batch completed",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("saved", result.SavedCount),
		zap.Int("skipped_not_threat", result.SkippedNotThreat),
		zap.Int("skipped_classification", result.SkippedClassification),
		zap.Int("skipped_extraction", result.SkippedExtraction),
		zap.Int("skipped_format", result.SkippedFormat),
		zap.Int("skipped_validation", result.SkippedValidation),
		zap.Int("skipped_duplicate", result.SkippedDuplicate),
		zap.Int("skipped_persistence", result.SkippedPersistence),
		zap.Duration("duration", finished.Sub(result.StartedAt)))

	return result, nil
}

func (o *Orchestrator) processItem(ctx context.Context, logger *zap.Logger, item models.WorkItem, result *models.BatchResult) {
	text := o.truncator.Truncate(item.Text())
	logger = logger.With(
		zap.String("item_id", item.ID),
		zap.String("title", item.Title),
		zap.String("snippet", snippet(text)))

	isThreat, err := o.classifier.Classify(ctx, text)
	if err != nil {
		fields := []zap.Field{zap.String("kind", models.ErrorKind(err)), zap.Error(err)}
		var classErr *models.ClassificationError
		if errors.As(err, &classErr) && classErr.Raw != "" {
			fields = append(fields, zap.String("raw", classErr.Raw))
		}
		logger.Error("Classification failed, skipping article", fields...)
		result.SkippedClassification++
		return
	}

	if !isThreat {
		logger.Info("Article is not a cybersecurity threat, skipping extraction")
		result.SkippedNotThreat++
		return
	}

	logger.Info("Article is a cybersecurity threat, extracting")

	raw, err := o.extractor.Extract(ctx, text)
	if err != nil {
		logger.Error("Extraction failed, skipping article",
			zap.String("kind", models.ErrorKind(err)),
			zap.Error(err))
		result.SkippedExtraction++
		return
	}

	candidate, err := Normalize(raw)
	if err != nil {
		logger.Error("Model output is not valid JSON, skipping article",
			zap.String("kind", models.ErrorKind(err)),
			zap.String("raw", raw),
			zap.Error(err))
		result.SkippedFormat++
		return
	}

	saved, err := o.gate.Persist(ctx, candidate)

	var (
		validationErr *models.ValidationError
		duplicateErr  *models.DuplicateError
	)
	switch {
	case err == nil:
		logger.Info("Threat extracted and saved",
			zap.String("threat_id", saved.ID),
			zap.String("threat_title", saved.Title))
		result.SavedCount++
	case errors.As(err, &duplicateErr):
		logger.Warn("Threat already exists, skipping save",
			zap.String("kind", models.ErrorKind(err)),
			zap.String("threat_title", duplicateErr.Title))
		result.SkippedDuplicate++
	case errors.As(err, &validationErr):
		logger.Error("Extracted threat is invalid, skipping article",
			zap.String("kind", models.ErrorKind(err)),
			zap.Strings("violations", validationErr.Violations),
			zap.String("raw", raw))
		result.SkippedValidation++
	default:
		logger.Error("Failed to save threat, skipping article",
			zap.String("kind", models.ErrorKind(err)),
			zap.Error(err))
		result.SkippedPersistence++
	}
}

// snippet is the first runes of text on a single line, for logs
func snippet(text string) string {
	flat := strings.ReplaceAll(text, "\n", " ")
	runes := []rune(flat)
	if len(runes) <= snippetLength {
		return flat
	}
	return string(runes[:snippetLength]) + "..."
}
