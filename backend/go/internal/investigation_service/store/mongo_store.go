package store

import (
	"ScamSentinel/backend/go/internal/models"
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskStore defines the interface for investigation task persistence.
//
// Update 带终态保护：一旦任务进入终态，任何后续更新都会被过滤条件拒绝，
// 这是"终态不可变"约束在存储层的兜底。
type TaskStore interface {
	Create(ctx context.Context, task *models.InvestigationTask) error
	GetByID(ctx context.Context, id string) (*models.InvestigationTask, error)
	GetBySessionID(ctx context.Context, sessionID string, page, limit int) ([]*models.InvestigationTask, error)
	Update(ctx context.Context, task *models.InvestigationTask) error
}

// terminalStatuses 是 Update 过滤条件使用的终态列表。
var terminalStatuses = []models.TaskStatus{
	models.TaskStatusSuccess,
	models.TaskStatusFailed,
	models.TaskStatusTimedOut,
}

// MongoTaskStore is an implementation of TaskStore using MongoDB.
type MongoTaskStore struct {
	collection *mongo.Collection
}

// NewMongoTaskStore creates a new MongoTaskStore.
func NewMongoTaskStore(db *mongo.Database, collectionName string) *MongoTaskStore {
	return &MongoTaskStore{
		collection: db.Collection(collectionName),
	}
}

// Create inserts a new task record into the database.
func (s *MongoTaskStore) Create(ctx context.Context, task *models.InvestigationTask) error {
	_, err := s.collection.InsertOne(ctx, task)
	return err
}

// GetByID retrieves a task by its ID.
func (s *MongoTaskStore) GetByID(ctx context.Context, id string) (*models.InvestigationTask, error) {
	var task models.InvestigationTask
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &task, nil
}

// GetBySessionID retrieves a paginated list of tasks for a client session.
func (s *MongoTaskStore) GetBySessionID(ctx context.Context, sessionID string, page, limit int) ([]*models.InvestigationTask, error) {
	var tasks []*models.InvestigationTask
	opts := options.Find()
	opts.SetSort(bson.D{{Key: "submitted_at", Value: -1}})
	opts.SetSkip(int64((page - 1) * limit))
	opts.SetLimit(int64(limit))

	cursor, err := s.collection.Find(ctx, bson.M{"session_id": sessionID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Update persists task progress and results. The filter excludes documents
// that already reached a terminal status, so a late or duplicate update can
// never overwrite a finished task.
func (s *MongoTaskStore) Update(ctx context.Context, task *models.InvestigationTask) error {
	filter := bson.M{
		"_id":    task.ID,
		"status": bson.M{"$nin": terminalStatuses},
	}
	update := bson.M{
		"$set": bson.M{
			"status":       task.Status,
			"entities":     task.Entities,
			"evidence":     task.Evidence,
			"verdict":      task.Verdict,
			"error":        task.Error,
			"attempt":      task.Attempt,
			"completed_at": task.CompletedAt,
		},
	}
	_, err := s.collection.UpdateOne(ctx, filter, update)
	return err
}
