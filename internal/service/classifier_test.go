package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		llmErr  error
		want    bool
		wantErr bool
	}{
		{name: "threat", reply: `{"isCybersecurityThreat": true}`, want: true},
		{name: "fenced threat", reply: "```json\n{\"isCybersecurityThreat\": true}\n```", want: true},
		{name: "not a threat", reply: `{"isCybersecurityThreat": false}`, want: false},
		{name: "string true", reply: `{"isCybersecurityThreat": "true"}`, wantErr: true},
		{name: "number", reply: `{"isCybersecurityThreat": 1}`, wantErr: true},
		{name: "missing key", reply: `{"threat": true}`, wantErr: true},
		{name: "array", reply: `[true]`, wantErr: true},
		{name: "prose", reply: `Yes, this is a threat.`, wantErr: true},
		{name: "model failure", llmErr: errors.New("503 service unavailable"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &stubLLM{reply: tt.reply, err: tt.llmErr}
			c := NewClassifier(llm, zap.NewNop())

			got, err := c.Classify(context.Background(), "Title: x\nArticleContent: y")
			if got != tt.want {
				t.Errorf("Classify = %v, want %v", got, tt.want)
			}
			if tt.wantErr {
				var classErr *models.ClassificationError
				if !errors.As(err, &classErr) {
					t.Fatalf("err = %v, want *ClassificationError", err)
				}
				if classErr.Raw != tt.reply {
					t.Errorf("Raw = %q, want %q", classErr.Raw, tt.reply)
				}
			} else if err != nil {
				t.Fatalf("Classify: %v", err)
			}
			if llm.calls != 1 {
				t.Errorf("model calls = %d, want 1", llm.calls)
			}
		})
	}
}

func TestClassificationPromptEmbedsArticle(t *testing.T) {
	prompt := ClassificationPrompt("Title: Breach\nArticleContent: Data leaked")
	if !strings.Contains(prompt, "Title: Breach\nArticleContent: Data leaked") {
		t.Errorf("prompt does not contain article text:\n%s", prompt)
	}
	if !strings.Contains(prompt, `{"isCybersecurityThreat": true}`) {
		t.Error("prompt does not describe the reply shape")
	}
}

func TestExtract(t *testing.T) {
	llm := &stubLLM{reply: "```json\n{}\n```"}
	e := NewExtractor(llm)

	raw, err := e.Extract(context.Background(), "Title: x\nArticleContent: y")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if raw != llm.reply {
		t.Errorf("Extract = %q, want raw reply %q", raw, llm.reply)
	}
}

func TestExtractFailure(t *testing.T) {
	e := NewExtractor(&stubLLM{err: errors.New("quota exceeded")})

	raw, err := e.Extract(context.Background(), "text")
	var extractErr *models.ExtractionError
	if !errors.As(err, &extractErr) {
		t.Fatalf("err = %v, want *ExtractionError", err)
	}
	if raw != "" {
		t.Errorf("raw = %q, want empty", raw)
	}
}

func TestExtractionPromptListsEnums(t *testing.T) {
	prompt := ExtractionPrompt("article")
	for _, want := range []string{"low", "critical", "Ransomware", "SupplyChain", "affectedSystems"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}
