package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Fixed-width so stored timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteRepository is the embedded threat store
type SQLiteRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

type threatRow struct {
	ID              string  `db:"id"`
	Title           string  `db:"title"`
	Description     string  `db:"description"`
	Severity        string  `db:"severity"`
	Lat             float64 `db:"lat"`
	Lng             float64 `db:"lng"`
	Country         string  `db:"country"`
	City            string  `db:"city"`
	Timestamp       string  `db:"timestamp"`
	AffectedSystems string  `db:"affected_systems"`
	AttackType      string  `db:"attack_type"`
	Source          string  `db:"source"`
	CreatedAt       string  `db:"created_at"`
	UpdatedAt       string  `db:"updated_at"`
}

const threatColumns = `id, title, description, severity, lat, lng, country, city,
	timestamp, affected_systems, attack_type, source, created_at, updated_at`

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies migrations
func NewSQLiteRepository(dbPath string, logger *zap.Logger) (*SQLiteRepository, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One writer at a time keeps SQLITE_BUSY out of the picture
	db.SetMaxOpenConns(1)

	if err := MigrateSQLite(db.DB, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("Threat repository initialized", zap.String("db_path", dbPath))

	return &SQLiteRepository{
		db:     db,
		logger: logger,
	}, nil
}

func toRow(rec *models.ThreatRecord) (*threatRow, error) {
	systems := rec.AffectedSystems
	if systems == nil {
		systems = []string{}
	}
	raw, err := json.Marshal(systems)
	if err != nil {
		return nil, fmt.Errorf("failed to encode affected systems: %w", err)
	}

	return &threatRow{
		ID:              rec.ID,
		Title:           rec.Title,
		Description:     rec.Description,
		Severity:        string(rec.Severity),
		Lat:             rec.Location.Lat,
		Lng:             rec.Location.Lng,
		Country:         rec.Location.Country,
		City:            rec.Location.City,
		Timestamp:       rec.Timestamp.UTC().Format(timeLayout),
		AffectedSystems: string(raw),
		AttackType:      string(rec.AttackType),
		Source:          rec.Source,
		CreatedAt:       rec.CreatedAt.UTC().Format(timeLayout),
		UpdatedAt:       rec.UpdatedAt.UTC().Format(timeLayout),
	}, nil
}

func (r *threatRow) toRecord() (*models.ThreatRecord, error) {
	rec := &models.ThreatRecord{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Severity:    models.Severity(r.Severity),
		Location: models.Location{
			Lat:     r.Lat,
			Lng:     r.Lng,
			Country: r.Country,
			City:    r.City,
		},
		AttackType: models.AttackType(r.AttackType),
		Source:     r.Source,
	}

	if err := json.Unmarshal([]byte(r.AffectedSystems), &rec.AffectedSystems); err != nil {
		return nil, fmt.Errorf("failed to decode affected systems: %w", err)
	}

	var err error
	if rec.Timestamp, err = time.Parse(timeLayout, r.Timestamp); err != nil {
		return nil, fmt.Errorf("failed to parse timestamp: %w", err)
	}
	if rec.CreatedAt, err = time.Parse(timeLayout, r.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	if rec.UpdatedAt, err = time.Parse(timeLayout, r.UpdatedAt); err != nil {
		return nil, fmt.Errorf("failed to parse updated_at: %w", err)
	}

	return rec, nil
}

// InsertIfAbsent saves a threat unless one with the same title exists
func (r *SQLiteRepository) InsertIfAbsent(ctx context.Context, rec *models.ThreatRecord) (*models.ThreatRecord, error) {
	stored := *rec
	now := time.Now().UTC()
	stored.ID = uuid.NewString()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	if stored.Timestamp.IsZero() {
		stored.Timestamp = now
	}
	if stored.AffectedSystems == nil {
		stored.AffectedSystems = []string{}
	}

	row, err := toRow(&stored)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO threats (` + threatColumns + `)
		VALUES (:id, :title, :description, :severity, :lat, :lng, :country, :city,
			:timestamp, :affected_systems, :attack_type, :source, :created_at, :updated_at)
		ON CONFLICT(title) DO NOTHING
	`

	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return nil, fmt.Errorf("failed to save threat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if affected == 0 {
		return nil, &models.DuplicateError{Title: rec.Title}
	}

	return &stored, nil
}

// Update replaces the editable fields of the threat with the given id
func (r *SQLiteRepository) Update(ctx context.Context, id string, rec *models.ThreatRecord) (*models.ThreatRecord, error) {
	existing, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stored := *rec
	stored.ID = existing.ID
	stored.CreatedAt = existing.CreatedAt
	stored.UpdatedAt = time.Now().UTC()
	if stored.Timestamp.IsZero() {
		stored.Timestamp = existing.Timestamp
	}
	if stored.AffectedSystems == nil {
		stored.AffectedSystems = []string{}
	}

	row, err := toRow(&stored)
	if err != nil {
		return nil, err
	}

	query := `
		UPDATE threats
		SET title = :title, description = :description, severity = :severity,
			lat = :lat, lng = :lng, country = :country, city = :city,
			timestamp = :timestamp, affected_systems = :affected_systems,
			attack_type = :attack_type, source = :source, updated_at = :updated_at
		WHERE id = :id
	`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		if isUniqueViolation(err) {
			return nil, &models.DuplicateError{Title: rec.Title}
		}
		return nil, fmt.Errorf("failed to update threat: %w", err)
	}

	return &stored, nil
}

// GetByID retrieves a threat by id
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.ThreatRecord, error) {
	var row threatRow
	err := r.db.GetContext(ctx, &row, `SELECT `+threatColumns+` FROM threats WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get threat: %w", err)
	}

	return row.toRecord()
}

// List returns threats matching filter, newest incident first
func (r *SQLiteRepository) List(ctx context.Context, filter models.ThreatFilter) ([]models.ThreatRecord, error) {
	var (
		where []string
		args  []interface{}
	)

	if filter.Severity != "" {
		where = append(where, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.AttackType != "" {
		where = append(where, "attack_type = ?")
		args = append(args, string(filter.AttackType))
	}
	if filter.Country != "" {
		where = append(where, "country = ? COLLATE NOCASE")
		args = append(args, filter.Country)
	}

	query := `SELECT ` + threatColumns + ` FROM threats`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY timestamp DESC, created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var rows []threatRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query threats: %w", err)
	}

	threats := make([]models.ThreatRecord, 0, len(rows))
	for i := range rows {
		rec, err := rows[i].toRecord()
		if err != nil {
			r.logger.Error("Failed to scan threat", zap.String("id", rows[i].ID), zap.Error(err))
			continue
		}
		threats = append(threats, *rec)
	}

	return threats, nil
}

// Delete removes the threat with the given id
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM threats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete threat: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return models.ErrNotFound
	}

	return nil
}

// Stats returns statistics about stored threats
func (r *SQLiteRepository) Stats(ctx context.Context) (*models.ThreatStats, error) {
	stats := newStats()

	if err := r.db.GetContext(ctx, &stats.Total, `SELECT COUNT(*) FROM threats`); err != nil {
		return nil, fmt.Errorf("failed to count threats: %w", err)
	}

	type bucket struct {
		Name  string `db:"name"`
		Total int    `db:"total"`
	}

	var bySeverity []bucket
	if err := r.db.SelectContext(ctx, &bySeverity,
		`SELECT severity AS name, COUNT(*) AS total FROM threats GROUP BY severity`); err != nil {
		return nil, fmt.Errorf("failed to group threats by severity: %w", err)
	}
	for _, b := range bySeverity {
		stats.BySeverity[b.Name] = b.Total
	}

	var byAttackType []bucket
	if err := r.db.SelectContext(ctx, &byAttackType,
		`SELECT attack_type AS name, COUNT(*) AS total FROM threats GROUP BY attack_type`); err != nil {
		return nil, fmt.Errorf("failed to group threats by attack type: %w", err)
	}
	for _, b := range byAttackType {
		stats.ByAttackType[b.Name] = b.Total
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
