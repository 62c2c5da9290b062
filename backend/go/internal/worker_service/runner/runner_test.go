package runner

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/investigation_service/store"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/orchestrator"
	"ScamSentinel/backend/go/internal/progress"
	"ScamSentinel/backend/go/internal/reasoner"
	"ScamSentinel/backend/go/internal/registry"
	"ScamSentinel/backend/go/internal/tools"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type stubTool struct {
	name    string
	block   bool
	payload interface{}
}

func (s *stubTool) Name() string { return s.name }

func (s *stubTool) Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence {
	if s.block {
		<-ctx.Done()
		return models.ToolEvidence{ToolName: s.name, Entity: entity, Succeeded: false, ErrorMessage: "cancelled"}
	}
	raw, _ := json.Marshal(s.payload)
	return models.ToolEvidence{ToolName: s.name, Entity: entity, Payload: raw, Succeeded: true}
}

type capturePublisher struct {
	keys   []string
	values []*models.InvestigationTask
}

func (c *capturePublisher) Publish(ctx context.Context, key string, value interface{}) error {
	c.keys = append(c.keys, key)
	if task, ok := value.(*models.InvestigationTask); ok {
		copied := *task
		c.values = append(c.values, &copied)
	}
	return nil
}

// failingStore 包装内存存储并让 Update 持续失败。
type failingStore struct {
	*store.MemoryTaskStore
}

func (f *failingStore) Update(ctx context.Context, task *models.InvestigationTask) error {
	return errors.New("mongo unreachable")
}

func newRunner(t *testing.T, taskStore store.TaskStore, toolset []tools.Tool, deadlineSecs int) (*Runner, *progress.MemoryPublisher, *capturePublisher, *registry.MemoryStore) {
	t.Helper()
	var inv config.InvestigationConfig
	inv.ApplyDefaults()

	pub := progress.NewMemoryPublisher()
	results := &capturePublisher{}
	reg := registry.NewMemoryStore()
	orch := orchestrator.New(extractor.New(inv), toolset, reasoner.New(nil, inv, nil), pub, inv.ConcurrencyLimit, inv.WebSearchCallBudget, nil)

	r := New(Config{
		Store:           taskStore,
		Orchestrator:    orch,
		Progress:        pub,
		ResultPublisher: results,
		TaskPublisher:   &capturePublisher{},
		Registry:        reg,
		DeadlineSeconds: deadlineSecs,
		HeartbeatSecs:   1,
		MaxAttempts:     3,
	})
	return r, pub, results, reg
}

func pendingTask(t *testing.T, taskStore store.TaskStore, text string) *models.InvestigationTask {
	t.Helper()
	task := &models.InvestigationTask{
		ID:          "task-1",
		SessionID:   "session-1",
		Status:      models.TaskStatusPending,
		Text:        text,
		SubmittedAt: time.Now(),
	}
	if err := taskStore.Create(context.Background(), task); err != nil {
		t.Fatalf("create task: %v", err)
	}
	return task
}

func taskMessage(t *testing.T, task *models.InvestigationTask) kafka.Message {
	t.Helper()
	raw, err := json.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}
	return kafka.Message{Key: []byte(task.ID), Value: raw}
}

func TestHandle_SuccessfulInvestigation(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	toolset := []tools.Tool{
		&stubTool{name: models.ToolRegistryLookup, payload: models.RegistryPayload{Found: true, ReportCount: 3}},
		&stubTool{name: models.ToolPhoneValidator, payload: models.PhonePatternPayload{Valid: true}},
	}
	r, pub, results, _ := newRunner(t, taskStore, toolset, 30)
	task := pendingTask(t, taskStore, "Call 1-800-555-0147 now")

	if err := r.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, _ := taskStore.GetByID(context.Background(), task.ID)
	if stored.Status != models.TaskStatusSuccess {
		t.Fatalf("expected succeeded, got %s (%s)", stored.Status, stored.Error)
	}
	if stored.Verdict == nil || stored.Attempt != 1 {
		t.Fatalf("unexpected stored task: %+v", stored)
	}

	events := pub.Events(task.ID)
	if len(events) == 0 {
		t.Fatal("expected progress events")
	}
	final := events[len(events)-1]
	if final.Step != models.StepCompleted || final.Percent != 100 {
		t.Fatalf("unexpected terminal event: %+v", final)
	}

	if len(results.keys) != 1 || results.keys[0] != task.ID {
		t.Fatalf("result not published: %v", results.keys)
	}
}

func TestHandle_TerminalTaskRedeliveryIsNoop(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	r, pub, results, _ := newRunner(t, taskStore, nil, 30)

	task := pendingTask(t, taskStore, "Call 1-800-555-0147 now")
	task.Status = models.TaskStatusSuccess
	_ = taskStore.Update(context.Background(), task)

	if err := r.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(pub.Events(task.ID)) != 0 || len(results.keys) != 0 {
		t.Fatal("redelivered terminal task must not produce events or results")
	}
}

func TestHandle_DeadlineProducesTimedOutWithVerdict(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	toolset := []tools.Tool{
		&stubTool{name: models.ToolRegistryLookup, block: true},
		&stubTool{name: models.ToolPhoneValidator, payload: models.PhonePatternPayload{Valid: true, Suspicious: true, Reasons: []string{tools.ReasonAllIdentical}}},
	}
	r, pub, _, _ := newRunner(t, taskStore, toolset, 1)
	task := pendingTask(t, taskStore, "Call 1-800-000-0000 now")

	if err := r.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, _ := taskStore.GetByID(context.Background(), task.ID)
	if stored.Status != models.TaskStatusTimedOut {
		t.Fatalf("expected timed_out, got %s", stored.Status)
	}
	if stored.Verdict == nil || stored.Verdict.Method != models.MethodHeuristic {
		t.Fatalf("timed out task needs a best-effort heuristic verdict, got %+v", stored.Verdict)
	}

	events := pub.Events(task.ID)
	final := events[len(events)-1]
	if final.Step != models.StepTimedOut || final.Percent != 100 {
		t.Fatalf("unexpected terminal event: %+v", final)
	}
}

func TestHandle_HighRiskRecordsEntitiesInRegistry(t *testing.T) {
	taskStore := store.NewMemoryTaskStore()
	toolset := []tools.Tool{
		&stubTool{name: models.ToolRegistryLookup, payload: models.RegistryPayload{Found: true, ReportCount: 20}},
		&stubTool{name: models.ToolDomainReputation, payload: models.ReputationPayload{Domain: "secure-refunds.top", WeightedScore: 90}},
		&stubTool{name: models.ToolWebSearch, payload: models.WebSearchPayload{DistinctSource: 6}},
	}
	r, _, _, reg := newRunner(t, taskStore, toolset, 30)
	task := pendingTask(t, taskStore, "Pay at secure-refunds.top immediately")

	if err := r.Handle(context.Background(), taskMessage(t, task)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	stored, _ := taskStore.GetByID(context.Background(), task.ID)
	if stored.Verdict == nil || stored.Verdict.RiskLevel != models.RiskHigh {
		t.Fatalf("expected high risk verdict, got %+v", stored.Verdict)
	}

	report, err := reg.Lookup(context.Background(), models.EntityURL, "secure-refunds.top")
	if err != nil || report == nil {
		t.Fatalf("high-risk entity should be recorded in the registry, got %v, %v", report, err)
	}
	if len(report.Citations) != 1 || report.Citations[0] != task.ID {
		t.Fatalf("registry citation should reference the task, got %v", report.Citations)
	}
}

func TestHandle_PersistFailureExhaustsAttemptsAndFails(t *testing.T) {
	base := store.NewMemoryTaskStore()
	taskStore := &failingStore{MemoryTaskStore: base}
	r, _, results, _ := newRunner(t, taskStore, nil, 30)

	task := pendingTask(t, base, "Call 1-800-555-0147 now")
	task.Attempt = 2 // 下一次尝试就是第 3 次，也是最后一次
	if err := base.Update(context.Background(), task); err != nil {
		t.Fatalf("seed attempt count: %v", err)
	}
	raw, _ := json.Marshal(task)

	err := r.Handle(context.Background(), kafka.Message{Key: []byte(task.ID), Value: raw})
	if err == nil {
		t.Fatal("exhausted attempts should surface the infrastructure error")
	}
	if len(results.values) == 0 || results.values[len(results.values)-1].Status != models.TaskStatusFailed {
		t.Fatalf("failed task should still be announced on the result topic, got %+v", results.values)
	}
}
