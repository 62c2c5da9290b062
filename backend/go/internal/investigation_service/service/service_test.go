package service

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/investigation_service/store"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"errors"
	"testing"
)

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, key)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newTestService(pub TaskPublisher) (*InvestigationService, *store.MemoryTaskStore) {
	var inv config.InvestigationConfig
	inv.ApplyDefaults()
	taskStore := store.NewMemoryTaskStore()
	svc := NewInvestigationService(taskStore, extractor.New(inv), NewConnectionManager(), pub, logger.New("test", "", ""))
	return svc, taskStore
}

func TestSubmit_EnqueuesTaskWithEntities(t *testing.T) {
	pub := &fakePublisher{}
	svc, taskStore := newTestService(pub)

	task, err := svc.Submit(context.Background(), "session-1", "Call 1-800-000-0000 to claim your prize")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if task.Status != models.TaskStatusPending {
		t.Fatalf("expected pending task, got %s", task.Status)
	}
	if len(pub.published) != 1 || pub.published[0] != task.ID {
		t.Fatalf("task was not published: %v", pub.published)
	}

	stored, err := taskStore.GetByID(context.Background(), task.ID)
	if err != nil || stored == nil {
		t.Fatalf("task not persisted: %v", err)
	}
}

func TestSubmit_CleanTextSkipsQueue(t *testing.T) {
	pub := &fakePublisher{}
	svc, taskStore := newTestService(pub)

	task, err := svc.Submit(context.Background(), "session-1", "See you at lunch")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if task.Status != models.TaskStatusSuccess {
		t.Fatalf("clean text should complete at submit time, got %s", task.Status)
	}
	if task.Verdict == nil || task.Verdict.RiskLevel != models.RiskLow {
		t.Fatalf("expected minimal low verdict, got %+v", task.Verdict)
	}
	if len(pub.published) != 0 {
		t.Fatal("clean text must not be enqueued")
	}

	stored, _ := taskStore.GetByID(context.Background(), task.ID)
	if stored == nil || !stored.Status.IsTerminal() {
		t.Fatalf("terminal task must still be persisted for the read path, got %+v", stored)
	}
}

func TestSubmit_EmptyTextGetsMinimalVerdict(t *testing.T) {
	pub := &fakePublisher{}
	svc, taskStore := newTestService(pub)

	// 输入问题不是失败：空白文本和干净文本走同一个廉价出口。
	task, err := svc.Submit(context.Background(), "session-1", "   \n")
	if err != nil {
		t.Fatalf("empty text must not surface as an error, got %v", err)
	}
	if task.Status != models.TaskStatusSuccess {
		t.Fatalf("expected terminal success, got %s", task.Status)
	}
	if task.Verdict == nil || task.Verdict.RiskLevel != models.RiskLow {
		t.Fatalf("expected minimal low verdict, got %+v", task.Verdict)
	}
	if len(pub.published) != 0 {
		t.Fatal("empty text must not be enqueued")
	}

	stored, _ := taskStore.GetByID(context.Background(), task.ID)
	if stored == nil || !stored.Status.IsTerminal() {
		t.Fatalf("terminal task must still be persisted, got %+v", stored)
	}
}

func TestSubmit_PublishFailureMarksTaskFailed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker unreachable")}
	svc, taskStore := newTestService(pub)

	_, err := svc.Submit(context.Background(), "session-1", "Call 1-800-000-0000 now")
	if err == nil {
		t.Fatal("expected submit error when the broker is unreachable")
	}

	tasks, _ := taskStore.GetBySessionID(context.Background(), "session-1", 1, 10)
	if len(tasks) != 1 || tasks[0].Status != models.TaskStatusFailed {
		t.Fatalf("task should be marked failed, got %+v", tasks)
	}
}

func TestGetTaskByID_SessionIsolation(t *testing.T) {
	svc, _ := newTestService(&fakePublisher{})

	task, err := svc.Submit(context.Background(), "session-1", "Call 1-800-000-0000 now")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	other, err := svc.GetTaskByID(context.Background(), task.ID, "session-2")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if other != nil {
		t.Fatal("a session must not read another session's task")
	}
}
