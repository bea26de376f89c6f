package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"github.com/google/uuid"
)

// stubLLM answers every prompt with the same reply
type stubLLM struct {
	reply string
	err   error
	calls int
}

func (s *stubLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.calls++
	return s.reply, s.err
}

type articleReplies struct {
	classify string
	extract  string
}

// scriptedLLM answers by article title and records when each call starts
type scriptedLLM struct {
	mu      sync.Mutex
	replies map[string]articleReplies
	starts  []time.Time
	prompts []string
	block   chan struct{}
	entered chan struct{}
}

func (s *scriptedLLM) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	s.starts = append(s.starts, time.Now())
	s.prompts = append(s.prompts, prompt)
	s.mu.Unlock()

	if s.entered != nil {
		select {
		case s.entered <- struct{}{}:
		default:
		}
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	classify := strings.Contains(prompt, "isCybersecurityThreat")
	for title, r := range s.replies {
		if !strings.Contains(prompt, "Title: "+title+"\n") {
			continue
		}
		if classify {
			return r.classify, nil
		}
		return r.extract, nil
	}
	return `{"isCybersecurityThreat": false}`, nil
}

func (s *scriptedLLM) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.starts)
}

// fakeQueue is an in-memory QueueClient
type fakeQueue struct {
	mu        sync.Mutex
	items     []models.QueueItem
	fetchErr  error
	signalErr error
	fetches   int
	signals   int
	onSignal  func()
}

func (q *fakeQueue) FetchPending(ctx context.Context) ([]models.QueueItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fetches++
	if q.fetchErr != nil {
		return nil, q.fetchErr
	}
	return append([]models.QueueItem(nil), q.items...), nil
}

func (q *fakeQueue) SignalJobComplete(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.signals++
	if q.onSignal != nil {
		q.onSignal()
	}
	return q.signalErr
}

func (q *fakeQueue) signalCount() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.signals
}

// memStore is an in-memory ThreatStore keyed by title
type memStore struct {
	mu      sync.Mutex
	byTitle map[string]*models.ThreatRecord
	err     error
}

func newMemStore() *memStore {
	return &memStore{byTitle: make(map[string]*models.ThreatRecord)}
}

func (m *memStore) InsertIfAbsent(ctx context.Context, rec *models.ThreatRecord) (*models.ThreatRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if _, ok := m.byTitle[rec.Title]; ok {
		return nil, &models.DuplicateError{Title: rec.Title}
	}
	saved := *rec
	saved.ID = uuid.NewString()
	saved.CreatedAt = time.Now().UTC()
	saved.UpdatedAt = saved.CreatedAt
	m.byTitle[rec.Title] = &saved
	return &saved, nil
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byTitle)
}

const validExtraction = `{
  "id": "ignored",
  "title": "Hospital ransomware",
  "description": "Ransomware encrypted patient records at a regional hospital.",
  "severity": "high",
  "location": {"lat": 51.5, "lng": -0.12, "country": "UK", "city": "London"},
  "timestamp": "2024-05-01T10:00:00Z",
  "affectedSystems": ["EHR", "Email"],
  "attackType": "Ransomware",
  "source": "news"
}`

func validCandidate() map[string]any {
	return map[string]any{
		"title":       "Hospital ransomware",
		"description": "Ransomware encrypted patient records at a regional hospital.",
		"severity":    "high",
		"location": map[string]any{
			"lat":     51.5,
			"lng":     -0.12,
			"country": "UK",
			"city":    "London",
		},
		"timestamp":       "2024-05-01T10:00:00Z",
		"affectedSystems": []any{"EHR", "Email"},
		"attackType":      "Ransomware",
		"source":          "news",
	}
}
