package service

import (
	"context"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"
)

// Extractor asks the model to turn an article into a threat record
type Extractor struct {
	llm Completer
}

// NewExtractor creates a new extractor
func NewExtractor(llm Completer) *Extractor {
	return &Extractor{llm: llm}
}

// Extract returns the model's raw reply, unparsed
func (e *Extractor) Extract(ctx context.Context, articleText string) (string, error) {
	raw, err := e.llm.Complete(ctx, ExtractionPrompt(articleText))
	if err != nil {
		return "", &models.ExtractionError{Err: err}
	}
	return raw, nil
}
