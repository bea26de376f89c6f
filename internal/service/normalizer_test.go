package service

import (
	"errors"
	"reflect"
	"testing"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"fenced", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json {\"a\":1} ```\n ", `{"a":1}`},
		{"trailing fence only", "{\"a\":1}\n```", `{"a":1}`},
		{"bare fence kept", "```\n{\"a\":1}\n```", "```\n{\"a\":1}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.raw); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    any
		wantErr bool
	}{
		{name: "object", raw: `{"isCybersecurityThreat": true}`, want: map[string]any{"isCybersecurityThreat": true}},
		{name: "fenced object", raw: "```json\n{\"a\": \"b\"}\n```", want: map[string]any{"a": "b"}},
		{name: "array", raw: `[1, 2]`, want: []any{float64(1), float64(2)}},
		{name: "scalar", raw: `true`, want: true},
		{name: "empty", raw: "", wantErr: true},
		{name: "only fences", raw: "```json\n```", wantErr: true},
		{name: "prose", raw: "Sure! Here is the JSON you asked for.", wantErr: true},
		{name: "truncated", raw: `{"a": `, wantErr: true},
		{name: "trailing data", raw: `{"a": 1} {"b": 2}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.raw)
			if tt.wantErr {
				var formatErr *models.FormatError
				if !errors.As(err, &formatErr) {
					t.Fatalf("err = %v, want *FormatError", err)
				}
				if formatErr.Raw != tt.raw {
					t.Errorf("Raw = %q, want %q", formatErr.Raw, tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Normalize = %#v, want %#v", got, tt.want)
			}
		})
	}
}
