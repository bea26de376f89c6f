package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"
	"github.com/varsharma-code/AI-Challenge-Backend/internal/repository"

	"go.uber.org/zap"
)

// ThreatService is the catalogue behind the REST API. Writes go through the
// same gate as the pipeline.
type ThreatService struct {
	repo   repository.ThreatRepository
	gate   *Gate
	logger *zap.Logger
}

// NewThreatService creates a new threat service
func NewThreatService(repo repository.ThreatRepository, gate *Gate, logger *zap.Logger) *ThreatService {
	return &ThreatService{
		repo:   repo,
		gate:   gate,
		logger: logger,
	}
}

// Create validates and stores a new threat
func (s *ThreatService) Create(ctx context.Context, candidate any) (*models.ThreatRecord, error) {
	return s.gate.Persist(ctx, candidate)
}

// Update validates candidate and replaces the threat with the given id
func (s *ThreatService) Update(ctx context.Context, id string, candidate any) (*models.ThreatRecord, error) {
	rec, err := s.gate.Build(candidate)
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.Update(ctx, id, rec)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Threat updated",
		zap.String("id", updated.ID),
		zap.String("title", updated.Title))

	return updated, nil
}

// Get returns one threat
func (s *ThreatService) Get(ctx context.Context, id string) (*models.ThreatRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns threats matching filter
func (s *ThreatService) List(ctx context.Context, filter models.ThreatFilter) ([]models.ThreatRecord, error) {
	var violations []string
	if filter.Severity != "" && !filter.Severity.Valid() {
		violations = append(violations, fmt.Sprintf("severity: must be one of: %s", joinValues(models.Severities)))
	}
	if filter.AttackType != "" && !filter.AttackType.Valid() {
		violations = append(violations, fmt.Sprintf("attackType: must be one of: %s", joinValues(models.AttackTypes)))
	}
	if filter.Limit < 0 {
		violations = append(violations, "limit: must not be negative")
	}
	if len(violations) > 0 {
		return nil, &models.ValidationError{Violations: violations}
	}

	return s.repo.List(ctx, filter)
}

// Delete removes a threat
func (s *ThreatService) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("Threat deleted", zap.String("id", id))
	return nil
}

// Stats summarises stored threats
func (s *ThreatService) Stats(ctx context.Context) (*models.ThreatStats, error) {
	return s.repo.Stats(ctx)
}

func joinValues[T ~string](values []T) string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = string(v)
	}
	return strings.Join(out, ", ")
}
