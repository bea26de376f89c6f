package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/varsharma-code/AI-Challenge-Backend/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoRepository stores threats in a MongoDB collection with a unique
// index on title
type MongoRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewMongoRepository connects to uri and prepares the threats collection
func NewMongoRepository(ctx context.Context, uri, database, collection string, logger *zap.Logger) (*MongoRepository, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo URI is required")
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	repo := newMongoRepository(client, client.Database(database).Collection(collection), logger)

	if err := repo.ensureIndexes(ctx); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	logger.Info("Threat repository initialized",
		zap.String("database", database),
		zap.String("collection", collection))

	return repo, nil
}

func newMongoRepository(client *mongo.Client, collection *mongo.Collection, logger *zap.Logger) *MongoRepository {
	return &MongoRepository{
		client:     client,
		collection: collection,
		logger:     logger,
	}
}

func (r *MongoRepository) ensureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("title_unique"),
		},
		{Keys: bson.D{{Key: "severity", Value: 1}}},
		{Keys: bson.D{{Key: "attackType", Value: 1}}},
		{Keys: bson.D{{Key: "timestamp", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

// InsertIfAbsent saves a threat unless one with the same title exists
func (r *MongoRepository) InsertIfAbsent(ctx context.Context, rec *models.ThreatRecord) (*models.ThreatRecord, error) {
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

	if _, err := r.collection.InsertOne(ctx, &stored); err != nil {
		return nil, mapWriteError(err, rec.Title, "failed to save threat")
	}

	return &stored, nil
}

// Update replaces the threat with the given id, keeping its creation time
func (r *MongoRepository) Update(ctx context.Context, id string, rec *models.ThreatRecord) (*models.ThreatRecord, error) {
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

	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": id}, &stored)
	if err != nil {
		return nil, mapWriteError(err, rec.Title, "failed to update threat")
	}
	if res.MatchedCount == 0 {
		return nil, models.ErrNotFound
	}

	return &stored, nil
}

// GetByID retrieves a threat by id
func (r *MongoRepository) GetByID(ctx context.Context, id string) (*models.ThreatRecord, error) {
	var rec models.ThreatRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get threat: %w", err)
	}
	return &rec, nil
}

// List returns threats matching filter, newest incident first
func (r *MongoRepository) List(ctx context.Context, filter models.ThreatFilter) ([]models.ThreatRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "createdAt", Value: -1}})
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}

	cursor, err := r.collection.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query threats: %w", err)
	}
	defer cursor.Close(ctx)

	threats := make([]models.ThreatRecord, 0)
	if err := cursor.All(ctx, &threats); err != nil {
		return nil, fmt.Errorf("failed to decode threats: %w", err)
	}

	return threats, nil
}

// Delete removes the threat with the given id
func (r *MongoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete threat: %w", err)
	}
	if res.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Stats returns statistics about stored threats
func (r *MongoRepository) Stats(ctx context.Context) (*models.ThreatStats, error) {
	stats := newStats()

	total, err := r.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to count threats: %w", err)
	}
	stats.Total = int(total)

	if err := r.groupCount(ctx, "$severity", stats.BySeverity); err != nil {
		return nil, fmt.Errorf("failed to group threats by severity: %w", err)
	}
	if err := r.groupCount(ctx, "$attackType", stats.ByAttackType); err != nil {
		return nil, fmt.Errorf("failed to group threats by attack type: %w", err)
	}

	return stats, nil
}

func (r *MongoRepository) groupCount(ctx context.Context, field string, into map[string]int) error {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: field},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var buckets []struct {
		Key   string `bson:"_id"`
		Count int    `bson:"count"`
	}
	if err := cursor.All(ctx, &buckets); err != nil {
		return err
	}

	for _, b := range buckets {
		into[b.Key] = b.Count
	}
	return nil
}

// Close disconnects from mongo
func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func mongoFilter(filter models.ThreatFilter) bson.M {
	q := bson.M{}
	if filter.Severity != "" {
		q["severity"] = string(filter.Severity)
	}
	if filter.AttackType != "" {
		q["attackType"] = string(filter.AttackType)
	}
	if filter.Country != "" {
		q["location.country"] = bson.M{
			"$regex":   "^" + regexp.QuoteMeta(filter.Country) + "$",
			"$options": "i",
		}
	}
	return q
}

func mapWriteError(err error, title, msg string) error {
	if mongo.IsDuplicateKeyError(err) {
		return &models.DuplicateError{Title: title}
	}
	return fmt.Errorf("%s: %w", msg, err)
}
