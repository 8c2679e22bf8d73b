package repository

import (
	"context"
	"fmt"

	"flight-aggregator-service/internal/domain/entity"
	"flight-aggregator-service/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRunRepository stores aggregation run summaries
type MongoRunRepository struct {
	collection *mongo.Collection
}

// NewMongoRunRepository creates a new run history repository
func NewMongoRunRepository(db *mongo.Database) *MongoRunRepository {
	return &MongoRunRepository{
		collection: db.Collection("aggregation_runs"),
	}
}

var _ repository.RunRepository = (*MongoRunRepository)(nil)

// EnsureIndexes creates the runId and startedAt indexes
func (r *MongoRunRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"runId": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.M{"startedAt": -1},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create run indexes: %w", err)
	}
	return nil
}

// Save inserts a finished run
func (r *MongoRunRepository) Save(ctx context.Context, summary *entity.RunSummary) error {
	if summary.ID == "" {
		summary.ID = primitive.NewObjectID().Hex()
	}

	if _, err := r.collection.InsertOne(ctx, summary); err != nil {
		return fmt.Errorf("failed to save run %s: %w", summary.RunID, err)
	}
	return nil
}

// FindRecent returns the latest runs, newest first
func (r *MongoRunRepository) FindRecent(ctx context.Context, limit int) ([]*entity.RunSummary, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "startedAt", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find runs: %w", err)
	}
	defer cursor.Close(ctx)

	var runs []*entity.RunSummary
	if err := cursor.All(ctx, &runs); err != nil {
		return nil, fmt.Errorf("failed to decode runs: %w", err)
	}

	return runs, nil
}
