package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a threat id does not exist
	ErrNotFound = errors.New("threat not found")

	// ErrBatchInProgress is returned when a batch is triggered while another runs
	ErrBatchInProgress = errors.New("extraction batch already in progress")
)

// FetchError means the work-item queue could not be read. Fatal to a batch.
type FetchError struct {
	Err error
}

func (e *FetchError) Error() string { return "fetch pending articles: " + e.Err.Error() }
func (e *FetchError) Unwrap() error { return e.Err }

// ClassificationError means the model could not give a usable verdict. The
// item is treated as not a threat.
type ClassificationError struct {
	Raw string
	Err error
}

func (e *ClassificationError) Error() string { return "classification failed: " + e.Err.Error() }
func (e *ClassificationError) Unwrap() error { return e.Err }

// ExtractionError means the extraction call itself failed
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return "extraction failed: " + e.Err.Error() }
func (e *ExtractionError) Unwrap() error { return e.Err }

// FormatError means model output was not parseable as JSON. Raw keeps the
// untouched model output for diagnostics.
type FormatError struct {
	Raw string
	Err error
}

func (e *FormatError) Error() string { return "malformed model output: " + e.Err.Error() }
func (e *FormatError) Unwrap() error { return e.Err }

// ValidationError lists every rule a candidate record broke
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid threat record: " + strings.Join(e.Violations, "; ")
}

// DuplicateError means a record with the same title is already stored
type DuplicateError struct {
	Title string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("threat with title %q already exists", e.Title)
}

// SignalError means the job-completion call to the queue failed. Fatal to a batch.
type SignalError struct {
	Err error
}

func (e *SignalError) Error() string { return "signal job completion: " + e.Err.Error() }
func (e *SignalError) Unwrap() error { return e.Err }

// ErrorKind names the failure kind of err for logs
func ErrorKind(err error) string {
	var (
		fetchErr      *FetchError
		classErr      *ClassificationError
		extractErr    *ExtractionError
		formatErr     *FormatError
		validationErr *ValidationError
		duplicateErr  *DuplicateError
		signalErr     *SignalError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &fetchErr):
		return "fetch"
	case errors.As(err, &classErr):
		return "classification"
	case errors.As(err, &extractErr):
		return "extraction"
	case errors.As(err, &formatErr):
		return "format"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &duplicateErr):
		return "duplicate"
	case errors.As(err, &signalErr):
		return "signal"
	default:
		return "internal"
	}
}
