package repository

import (
	"context"
	"fmt"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"go.uber.org/zap"
)

// ThreatRepository stores threat records keyed by a unique title. The store
// assigns the id and the createdAt/updatedAt timestamps.
type ThreatRepository interface {
	// InsertIfAbsent stores rec unless its title is taken, in which case it
	// returns a *models.DuplicateError and leaves the existing record alone.
	InsertIfAbsent(ctx context.Context, rec *models.ThreatRecord) (*models.ThreatRecord, error)
	Update(ctx context.Context, id string, rec *models.ThreatRecord) (*models.ThreatRecord, error)
	GetByID(ctx context.Context, id string) (*models.ThreatRecord, error)
	List(ctx context.Context, filter models.ThreatFilter) ([]models.ThreatRecord, error)
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (*models.ThreatStats, error)
	Close() error
}

// Config selects and configures a store
type Config struct {
	Type       string // "mongo" or "sqlite"
	URI        string
	Name       string
	Collection string
	Path       string
}

// New opens the store named by cfg.Type
func New(ctx context.Context, cfg Config, logger *zap.Logger) (ThreatRepository, error) {
	switch cfg.Type {
	case "mongo", "mongodb":
		return NewMongoRepository(ctx, cfg.URI, cfg.Name, cfg.Collection, logger)
	case "sqlite", "":
		return NewSQLiteRepository(cfg.Path, logger)
	default:
		return nil, fmt.Errorf("unknown database type %q", cfg.Type)
	}
}

func newStats() *models.ThreatStats {
	return &models.ThreatStats{
		BySeverity:   make(map[string]int),
		ByAttackType: make(map[string]int),
	}
}
