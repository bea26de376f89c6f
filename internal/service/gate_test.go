package service

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"go.uber.org/zap"
)

func newTestGate(store ThreatStore) *Gate {
	g := NewGate(store, zap.NewNop())
	g.now = func() time.Time { return time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC) }
	return g
}

func TestGateBuildValid(t *testing.T) {
	g := newTestGate(newMemStore())

	rec, err := g.Build(validCandidate())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	want := &models.ThreatRecord{
		Title:       "Hospital ransomware",
		Description: "Ransomware encrypted patient records at a regional hospital.",
		Severity:    models.SeverityHigh,
		Location: models.Location{
			Lat:     51.5,
			Lng:     -0.12,
			Country: "UK",
			City:    "London",
		},
		Timestamp:       time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		AffectedSystems: []string{"EHR", "Email"},
		AttackType:      models.AttackRansomware,
		Source:          "news",
	}
	if !reflect.DeepEqual(rec, want) {
		t.Errorf("Build =\n%+v\nwant\n%+v", rec, want)
	}
}

func TestGateBuildAcceptsRawJSON(t *testing.T) {
	g := newTestGate(newMemStore())

	rec, err := g.Build([]byte(validExtraction))
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rec.ID != "" {
		t.Errorf("ID = %q, model ids must be ignored", rec.ID)
	}
	if rec.Title != "Hospital ransomware" {
		t.Errorf("Title = %q", rec.Title)
	}
}

func TestGateBuildDefaults(t *testing.T) {
	g := newTestGate(newMemStore())

	c := validCandidate()
	delete(c, "timestamp")
	delete(c, "affectedSystems")
	c["location"] = map[string]any{"country": "UK", "city": "London"}

	rec, err := g.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if want := g.now(); !rec.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, want)
	}
	if rec.AffectedSystems == nil || len(rec.AffectedSystems) != 0 {
		t.Errorf("AffectedSystems = %#v, want empty slice", rec.AffectedSystems)
	}
	if rec.Location.Lat != 0 || rec.Location.Lng != 0 {
		t.Errorf("coordinates = %v,%v, want 0,0", rec.Location.Lat, rec.Location.Lng)
	}
}

func TestGateBuildNormalisesFields(t *testing.T) {
	g := newTestGate(newMemStore())

	c := validCandidate()
	c["title"] = "  Hospital ransomware \n"
	c["timestamp"] = "2024-05-01"
	c["affectedSystems"] = []any{" EHR ", "", "  "}
	c["location"] = map[string]any{"lat": "48.85", "lng": 2.35, "country": " France ", "city": "Paris"}

	rec, err := g.Build(c)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if rec.Title != "Hospital ransomware" {
		t.Errorf("Title = %q", rec.Title)
	}
	if !reflect.DeepEqual(rec.AffectedSystems, []string{"EHR"}) {
		t.Errorf("AffectedSystems = %#v", rec.AffectedSystems)
	}
	if rec.Location.Lat != 48.85 || rec.Location.Country != "France" {
		t.Errorf("Location = %+v", rec.Location)
	}
	if want := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC); !rec.Timestamp.Equal(want) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, want)
	}
}

func TestGateBuildViolations(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c map[string]any)
		want   []string
	}{
		{
			name:   "missing title",
			mutate: func(c map[string]any) { delete(c, "title") },
			want:   []string{"title: is required"},
		},
		{
			name:   "blank title",
			mutate: func(c map[string]any) { c["title"] = "   " },
			want:   []string{"title: is required"},
		},
		{
			name:   "short description",
			mutate: func(c map[string]any) { c["description"] = "too short" },
			want:   []string{"description: must be at least 10 characters"},
		},
		{
			name:   "uppercase severity",
			mutate: func(c map[string]any) { c["severity"] = "High" },
			want:   []string{"severity: must be one of: low, medium, high, critical"},
		},
		{
			name:   "unknown attack type",
			mutate: func(c map[string]any) { c["attackType"] = "ransomware" },
			want:   []string{"attackType: must be one of:"},
		},
		{
			name:   "missing location",
			mutate: func(c map[string]any) { delete(c, "location") },
			want:   []string{"location.country: is required", "location.city: is required"},
		},
		{
			name:   "missing source",
			mutate: func(c map[string]any) { c["source"] = "" },
			want:   []string{"source: is required"},
		},
		{
			name:   "bad timestamp",
			mutate: func(c map[string]any) { c["timestamp"] = "yesterday" },
			want:   []string{"timestamp: must be an ISO 8601 date-time"},
		},
		{
			name: "non numeric latitude",
			mutate: func(c map[string]any) {
				c["location"] = map[string]any{"lat": "north", "country": "UK", "city": "London"}
			},
			want: []string{"location.lat: must be a number"},
		},
		{
			name:   "title is a number",
			mutate: func(c map[string]any) { c["title"] = 42 },
			want:   []string{"title: must be a string"},
		},
		{
			name:   "systems not an array",
			mutate: func(c map[string]any) { c["affectedSystems"] = "EHR" },
			want:   []string{"affectedSystems: must be an array"},
		},
		{
			name: "several at once",
			mutate: func(c map[string]any) {
				delete(c, "title")
				c["severity"] = "urgent"
			},
			want: []string{"title: is required", "severity: must be one of"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			g := newTestGate(store)
			c := validCandidate()
			tt.mutate(c)

			_, err := g.Persist(context.Background(), c)
			var validationErr *models.ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if len(validationErr.Violations) != len(tt.want) {
				t.Fatalf("violations = %q, want %d entries", validationErr.Violations, len(tt.want))
			}
			for i, want := range tt.want {
				if !strings.HasPrefix(validationErr.Violations[i], want) {
					t.Errorf("violation[%d] = %q, want prefix %q", i, validationErr.Violations[i], want)
				}
			}
			if store.count() != 0 {
				t.Error("invalid record was stored")
			}
		})
	}
}

func TestGateRejectsNonObjects(t *testing.T) {
	g := newTestGate(newMemStore())

	for _, candidate := range []any{nil, []any{"a"}, "text", 3.5} {
		_, err := g.Build(candidate)
		var validationErr *models.ValidationError
		if !errors.As(err, &validationErr) {
			t.Errorf("Build(%#v) err = %v, want *ValidationError", candidate, err)
		}
	}
}

func TestGatePersistDuplicate(t *testing.T) {
	store := newMemStore()
	g := newTestGate(store)

	first, err := g.Persist(context.Background(), validCandidate())
	if err != nil {
		t.Fatalf("first Persist: %v", err)
	}
	if first.ID == "" {
		t.Error("saved record has no id")
	}

	c := validCandidate()
	c["description"] = "A different description of the same incident."
	_, err = g.Persist(context.Background(), c)

	var duplicateErr *models.DuplicateError
	if !errors.As(err, &duplicateErr) {
		t.Fatalf("err = %v, want *DuplicateError", err)
	}
	if duplicateErr.Title != "Hospital ransomware" {
		t.Errorf("duplicate title = %q", duplicateErr.Title)
	}
	if store.count() != 1 {
		t.Errorf("stored = %d, want 1", store.count())
	}
	if got := store.byTitle["Hospital ransomware"].Description; got != first.Description {
		t.Errorf("existing record modified: description = %q", got)
	}
}

func TestGatePersistStoreFailure(t *testing.T) {
	store := newMemStore()
	store.err = errors.New("disk full")
	g := newTestGate(store)

	_, err := g.Persist(context.Background(), validCandidate())
	if err == nil || models.ErrorKind(err) != "internal" {
		t.Fatalf("err = %v, want internal error", err)
	}
}
