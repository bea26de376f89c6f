package service

import (
	"context"
	"fmt"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"go.uber.org/zap"
)

// Completer is the language-model capability the pipeline consumes
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Classifier decides whether an article is about a cybersecurity threat
type Classifier struct {
	llm    Completer
	logger *zap.Logger
}

// NewClassifier creates a new classifier
func NewClassifier(llm Completer, logger *zap.Logger) *Classifier {
	return &Classifier{llm: llm, logger: logger}
}

// Classify returns true only when the model answers with a JSON object whose
// isCybersecurityThreat is the boolean true. Every failure yields false
// together with a *models.ClassificationError for the caller to log.
func (c *Classifier) Classify(ctx context.Context, articleText string) (bool, error) {
	raw, err := c.llm.Complete(ctx, ClassificationPrompt(articleText))
	if err != nil {
		return false, &models.ClassificationError{Err: err}
	}

	value, err := Normalize(raw)
	if err != nil {
		return false, &models.ClassificationError{Raw: raw, Err: err}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return false, &models.ClassificationError{Raw: raw, Err: fmt.Errorf("expected a JSON object, got %T", value)}
	}

	field, ok := obj["isCybersecurityThreat"]
	if !ok {
		return false, &models.ClassificationError{Raw: raw, Err: fmt.Errorf("missing isCybersecurityThreat")}
	}

	verdict, ok := field.(bool)
	if !ok {
		return false, &models.ClassificationError{Raw: raw, Err: fmt.Errorf("isCybersecurityThreat is %T, not a boolean", field)}
	}

	c.logger.Debug("Article classified", zap.Bool("is_threat", verdict))

	return verdict, nil
}
