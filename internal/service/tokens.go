package service

import (
	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

const tokenEncoding = "cl100k_base"

// Truncator caps article text at a token budget before it reaches the model
type Truncator struct {
	maxTokens int
	enc       *tiktoken.Tiktoken
}

// NewTruncator creates a truncator. maxTokens <= 0 disables truncation. When
// the encoding cannot be loaded the budget is applied to runes instead.
func NewTruncator(maxTokens int, logger *zap.Logger) *Truncator {
	t := &Truncator{maxTokens: maxTokens}
	if maxTokens <= 0 {
		return t
	}

	enc, err := tiktoken.GetEncoding(tokenEncoding)
	if err != nil {
		logger.Warn("Token encoding unavailable, truncating by characters",
			zap.String("encoding", tokenEncoding),
			zap.Error(err))
		return t
	}

	t.enc = enc
	return t
}

// Truncate returns text cut to the token budget
func (t *Truncator) Truncate(text string) string {
	if t == nil || t.maxTokens <= 0 {
		return text
	}

	if t.enc == nil {
		runes := []rune(text)
		if len(runes) <= t.maxTokens {
			return text
		}
		return string(runes[:t.maxTokens])
	}

	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= t.maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:t.maxTokens])
}
