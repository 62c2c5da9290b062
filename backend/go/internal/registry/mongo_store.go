package registry

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore is an implementation of Store using MongoDB.
type MongoStore struct {
	collection *mongo.Collection
}

// NewMongoStore creates a new MongoStore on the given collection.
func NewMongoStore(db *mongo.Database, collectionName string) *MongoStore {
	return &MongoStore{
		collection: db.Collection(collectionName),
	}
}

// Lookup retrieves the accumulated report for an entity by exact match.
func (s *MongoStore) Lookup(ctx context.Context, kind models.EntityKind, normalizedValue string) (*Report, error) {
	var report Report
	filter := bson.M{"entity_kind": kind, "normalized_value": normalizedValue}
	err := s.collection.FindOne(ctx, filter).Decode(&report)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &report, nil
}

// Record appends one report atomically. The whole operation is a single
// upsert round-trip ($inc + $push), so concurrent reports of the same entity
// from different tasks can never lose an increment.
func (s *MongoStore) Record(ctx context.Context, kind models.EntityKind, normalizedValue, citation string) error {
	now := time.Now()
	filter := bson.M{"entity_kind": kind, "normalized_value": normalizedValue}
	update := bson.M{
		"$inc":         bson.M{"report_count": 1},
		"$set":         bson.M{"last_reported_at": now},
		"$setOnInsert": bson.M{"first_reported_at": now},
	}
	if citation != "" {
		update["$push"] = bson.M{"citations": citation}
	}
	opts := options.Update().SetUpsert(true)
	_, err := s.collection.UpdateOne(ctx, filter, update, opts)
	return err
}
