package chatcompletion

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	c, err := NewClient(Config{
		Provider:   "groq",
		APIKey:     "gsk-mock",
		BaseURL:    baseURL,
		ModelName:  "llama-3.3-70b-versatile",
		MaxRetries: retries,
		RetryDelay: time.Millisecond,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKeyAndModel(t *testing.T) {
	if _, err := NewClient(Config{Provider: "groq", BaseURL: GroqBaseURL, ModelName: "m"}, zap.NewNop()); err == nil {
		t.Error("expected error without API key")
	}
	if _, err := NewClient(Config{Provider: "groq", APIKey: "k", BaseURL: GroqBaseURL}, zap.NewNop()); err == nil {
		t.Error("expected error without model name")
	}
	if _, err := NewClient(Config{Provider: "custom", APIKey: "k", ModelName: "m"}, zap.NewNop()); err == nil {
		t.Error("expected error without base URL")
	}
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer gsk-mock" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer gsk-mock")
		}

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "llama-3.3-70b-versatile" {
			t.Errorf("model = %q", req.Model)
		}
		if req.ResponseFormat == nil || req.ResponseFormat.Type != "json_object" {
			t.Errorf("response_format = %+v, want json_object", req.ResponseFormat)
		}
		if req.MaxTokens != 2048 {
			t.Errorf("max_tokens = %d, want 2048", req.MaxTokens)
		}
		if len(req.Messages) != 1 || req.Messages[0].Role != "user" || !strings.Contains(req.Messages[0].Content, "ransomware") {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"c1","choices":[{"message":{"role":"assistant","content":"{\"isCybersecurityThreat\": true}"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL+"/", 1)
	got, err := c.Complete(context.Background(), "is this about ransomware?")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != `{"isCybersecurityThreat": true}` {
		t.Errorf("Complete = %q", got)
	}
}

func TestCompleteHTTPErrorIsReturned(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"rate limit reached","type":"tokens"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	_, err := c.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limit reached") {
		t.Errorf("error = %v, want status and message", err)
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1 (no retry by default)", calls.Load())
	}
}

func TestCompleteRetriesWhenConfigured(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	got, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "ok" {
		t.Errorf("Complete = %q, want ok", got)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	if _, err := c.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestGetModelInfo(t *testing.T) {
	c := newTestClient(t, OpenRouterBaseURL, 1)
	info := c.GetModelInfo()
	if info["provider"] != "groq" || info["model"] != "llama-3.3-70b-versatile" || info["base_url"] != OpenRouterBaseURL {
		t.Errorf("unexpected model info: %v", info)
	}
}
