package service

import (
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/investigation_service/store"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/segmentio/kafka-go"
)

// TaskPublisher defines the interface for publishing tasks to the queue.
type TaskPublisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
	Close() error
}

// InvestigationService 是提交与查询两条路径的业务层。
//
// 提交路径上它先做一次本地实体提取：没有可调查对象的文本直接以
// 最小结论落终态，不占用队列和 worker（廉价出口）。
type InvestigationService struct {
	store       store.TaskStore
	extractor   *extractor.Extractor
	connManager *ConnectionManager
	publisher   TaskPublisher
	logger      *logger.Logger
}

// NewInvestigationService creates a new InvestigationService.
func NewInvestigationService(taskStore store.TaskStore, x *extractor.Extractor, connManager *ConnectionManager, publisher TaskPublisher, logger *logger.Logger) *InvestigationService {
	return &InvestigationService{
		store:       taskStore,
		extractor:   x,
		connManager: connManager,
		publisher:   publisher,
		logger:      logger,
	}
}

// AddConnection adds a new WebSocket connection for a session.
func (s *InvestigationService) AddConnection(sessionID string, conn *websocket.Conn) {
	s.connManager.Add(sessionID, conn)
	s.logger.Info("WebSocket connection added for session: " + sessionID)
}

// RemoveConnection removes a WebSocket connection for a session.
func (s *InvestigationService) RemoveConnection(sessionID string) {
	s.connManager.Remove(sessionID)
	s.logger.Info("WebSocket connection removed for session: " + sessionID)
}

// Submit 创建一个调查任务。提交是同步且廉价的：持久化加一次入队，
// 实际执行由 worker 异步完成。返回的任务可能已是终态（廉价出口）。
func (s *InvestigationService) Submit(ctx context.Context, sessionID, text string) (*models.InvestigationTask, error) {
	task := &models.InvestigationTask{
		ID:          uuid.New().String(),
		SessionID:   sessionID,
		Status:      models.TaskStatusPending,
		Text:        text,
		SubmittedAt: time.Now(),
	}

	// 提交时先跑一遍提取：干净或空白文本直接出最小结论，不进队列。
	// 输入问题不是失败，空文本和无实体文本走同一个廉价出口。
	if entities := s.extractor.Extract(text); len(entities) == 0 {
		task.Status = models.TaskStatusSuccess
		task.Verdict = models.MinimalVerdict()
		task.CompletedAt = time.Now()
		if err := s.store.Create(ctx, task); err != nil {
			s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to create task in store")
			return nil, err
		}
		return task, nil
	}

	if err := s.store.Create(ctx, task); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to create task in store")
		return nil, err
	}

	if err := s.publisher.Publish(ctx, task.ID, task); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to publish task to Kafka")
		task.Status = models.TaskStatusFailed
		task.Error = "failed to enqueue task"
		task.CompletedAt = time.Now()
		_ = s.store.Update(ctx, task)
		return nil, err
	}

	return task, nil
}

// HandleResult 处理 worker 发回的结果消息：状态已由 worker 持久化，
// 这里只负责把结果转发给仍然在线的提交会话。
func (s *InvestigationService) HandleResult(msg kafka.Message) error {
	var task models.InvestigationTask
	if err := json.Unmarshal(msg.Value, &task); err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to unmarshal task result from Kafka")
		return err
	}
	if task.SessionID == "" {
		return nil
	}
	s.connManager.SendMessage(task.SessionID, msg.Value)
	return nil
}

// GetTaskByID retrieves a single task by its ID for a specific session.
func (s *InvestigationService) GetTaskByID(ctx context.Context, taskID, sessionID string) (*models.InvestigationTask, error) {
	task, err := s.store.GetByID(ctx, taskID)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"taskID": taskID}).Error("Failed to get task by ID from store")
		return nil, err
	}
	if task != nil && task.SessionID != sessionID {
		s.logger.WithPayload(map[string]interface{}{"taskID": taskID, "requestingSession": sessionID}).Warn("Session attempted to access another session's task")
		return nil, nil
	}
	return task, nil
}

// GetSessionTasks retrieves all tasks for a session with pagination.
func (s *InvestigationService) GetSessionTasks(ctx context.Context, sessionID string, page, limit int) ([]*models.InvestigationTask, error) {
	tasks, err := s.store.GetBySessionID(ctx, sessionID, page, limit)
	if err != nil {
		s.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{"sessionID": sessionID}).Error("Failed to get session tasks from store")
		return nil, err
	}
	return tasks, nil
}
