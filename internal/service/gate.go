package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// ThreatStore is the commit side of the gate
type ThreatStore interface {
	InsertIfAbsent(ctx context.Context, rec *models.ThreatRecord) (*models.ThreatRecord, error)
}

// Gate turns a loosely-typed candidate into a valid ThreatRecord and commits
// it, keyed by title
type Gate struct {
	store    ThreatStore
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewGate creates a new persistence gate
func NewGate(store ThreatStore, logger *zap.Logger) *Gate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Gate{
		store:    store,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}
}

// Persist validates candidate and stores it. It fails with
// *models.ValidationError or *models.DuplicateError; nothing is stored in
// either case.
func (g *Gate) Persist(ctx context.Context, candidate any) (*models.ThreatRecord, error) {
	rec, err := g.Build(candidate)
	if err != nil {
		return nil, err
	}

	saved, err := g.store.InsertIfAbsent(ctx, rec)
	if err != nil {
		return nil, err
	}

	g.logger.Info("Threat saved",
		zap.String("id", saved.ID),
		zap.String("title", saved.Title))

	return saved, nil
}

// Build constructs a ThreatRecord from candidate and checks every field
// rule. Candidate may be a decoded JSON value, a ThreatCandidate or raw
// JSON bytes. Any id in the candidate is ignored; the store assigns ids.
func (g *Gate) Build(candidate any) (*models.ThreatRecord, error) {
	c, err := decodeCandidate(candidate)
	if err != nil {
		return nil, err
	}

	var violations []string

	rec := &models.ThreatRecord{
		Title:           trimmed(c.Title),
		Description:     deref(c.Description),
		Severity:        models.Severity(deref(c.Severity)),
		AttackType:      models.AttackType(deref(c.AttackType)),
		Source:          trimmed(c.Source),
		AffectedSystems: make([]string, 0, len(c.AffectedSystems)),
	}

	if c.Location != nil {
		if rec.Location.Lat, err = coordinate(c.Location.Lat); err != nil {
			violations = append(violations, "location.lat: must be a number")
		}
		if rec.Location.Lng, err = coordinate(c.Location.Lng); err != nil {
			violations = append(violations, "location.lng: must be a number")
		}
		rec.Location.Country = trimmed(c.Location.Country)
		rec.Location.City = trimmed(c.Location.City)
	}

	for _, s := range c.AffectedSystems {
		if s = strings.TrimSpace(s); s != "" {
			rec.AffectedSystems = append(rec.AffectedSystems, s)
		}
	}

	if ts := strings.TrimSpace(deref(c.Timestamp)); ts == "" {
		rec.Timestamp = g.now().UTC()
	} else if rec.Timestamp, err = parseTimestamp(ts); err != nil {
		violations = append(violations, "timestamp: must be an ISO 8601 date-time")
	}

	if err := g.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return nil, fmt.Errorf("failed to validate threat: %w", err)
		}
		for _, fe := range fieldErrs {
			violations = append(violations, describeFieldError(fe))
		}
	}

	if len(violations) > 0 {
		return nil, &models.ValidationError{Violations: violations}
	}

	return rec, nil
}

func decodeCandidate(candidate any) (*models.ThreatCandidate, error) {
	switch v := candidate.(type) {
	case nil:
		return nil, &models.ValidationError{Violations: []string{"record: is required"}}
	case *models.ThreatCandidate:
		if v == nil {
			return nil, &models.ValidationError{Violations: []string{"record: is required"}}
		}
		return v, nil
	case models.ThreatCandidate:
		return &v, nil
	}

	raw, ok := candidate.([]byte)
	if !ok {
		var err error
		if raw, err = json.Marshal(candidate); err != nil {
			return nil, fmt.Errorf("failed to encode candidate: %w", err)
		}
	}

	var c models.ThreatCandidate
	if err := json.Unmarshal(raw, &c); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &models.ValidationError{Violations: []string{describeTypeError(typeErr)}}
		}
		return nil, &models.ValidationError{Violations: []string{"record: " + err.Error()}}
	}

	return &c, nil
}

func describeTypeError(err *json.UnmarshalTypeError) string {
	if err.Field == "" {
		return "record: must be a JSON object"
	}

	t := err.Type
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return fmt.Sprintf("%s: must be %s", err.Field, describeKind(t.Kind()))
}

func describeKind(k reflect.Kind) string {
	switch k {
	case reflect.String:
		return "a string"
	case reflect.Float32, reflect.Float64, reflect.Int, reflect.Int64:
		return "a number"
	case reflect.Slice:
		return "an array"
	case reflect.Struct, reflect.Map:
		return "an object"
	default:
		return "a " + k.String()
	}
}

func describeFieldError(fe validator.FieldError) string {
	// Namespace is "ThreatRecord.location.country"; drop the type name
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		return field + ": is required"
	case "min":
		return fmt.Sprintf("%s: must be at least %s characters", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", field, strings.Join(strings.Fields(fe.Param()), ", "))
	default:
		return fmt.Sprintf("%s: failed %s validation", field, fe.Tag())
	}
}

var timestampLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// coordinate reads an optional coordinate given as a number or a numeric
// string, defaulting to 0
func coordinate(v any) (float64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		return n, nil
	case json.Number:
		return n.Float64()
	case string:
		if n = strings.TrimSpace(n); n == "" {
			return 0, nil
		}
		return strconv.ParseFloat(n, 64)
	default:
		return 0, fmt.Errorf("unsupported coordinate type %T", v)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func trimmed(s *string) string {
	return strings.TrimSpace(deref(s))
}
