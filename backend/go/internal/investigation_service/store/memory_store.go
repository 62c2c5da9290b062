package store

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"sort"
	"sync"
)

// MemoryTaskStore 是 TaskStore 的进程内实现，用于测试和本地开发。
// 它执行与 Mongo 实现相同的终态保护。
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*models.InvestigationTask
}

// NewMemoryTaskStore creates an empty in-memory task store.
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{tasks: make(map[string]*models.InvestigationTask)}
}

// Create stores a copy of the task.
func (s *MemoryTaskStore) Create(ctx context.Context, task *models.InvestigationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

// GetByID returns a copy of the task, or (nil, nil) when absent.
func (s *MemoryTaskStore) GetByID(ctx context.Context, id string) (*models.InvestigationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	task, ok := s.tasks[id]
	if !ok {
		return nil, nil
	}
	copied := *task
	return &copied, nil
}

// GetBySessionID returns the session's tasks ordered by submission time descending.
func (s *MemoryTaskStore) GetBySessionID(ctx context.Context, sessionID string, page, limit int) ([]*models.InvestigationTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var tasks []*models.InvestigationTask
	for _, task := range s.tasks {
		if task.SessionID == sessionID {
			copied := *task
			tasks = append(tasks, &copied)
		}
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].SubmittedAt.After(tasks[j].SubmittedAt) })

	start := (page - 1) * limit
	if start >= len(tasks) {
		return nil, nil
	}
	end := start + limit
	if end > len(tasks) {
		end = len(tasks)
	}
	return tasks[start:end], nil
}

// Update applies the task state unless the stored record is already terminal.
func (s *MemoryTaskStore) Update(ctx context.Context, task *models.InvestigationTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.tasks[task.ID]
	if !ok || current.Status.IsTerminal() {
		return nil
	}
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}
