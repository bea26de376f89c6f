package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"
)

const jsonFenceOpen = fence + "json"

// StripFences trims raw and removes a leading ```json and a trailing ```
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, jsonFenceOpen)
	text = strings.TrimSuffix(text, fence)
	return strings.TrimSpace(text)
}

// Normalize parses model output as a single JSON value after stripping
// markdown fences. Any failure is a *models.FormatError carrying raw.
func Normalize(raw string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(StripFences(raw)))

	var value any
	if err := dec.Decode(&value); err != nil {
		if errors.Is(err, io.EOF) {
			err = errors.New("empty response")
		}
		return nil, &models.FormatError{Raw: raw, Err: err}
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &models.FormatError{Raw: raw, Err: fmt.Errorf("unexpected data after JSON value")}
	}

	return value, nil
}
