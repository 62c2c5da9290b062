package orchestrator

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/progress"
	"ScamSentinel/backend/go/internal/reasoner"
	"ScamSentinel/backend/go/internal/tools"
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeTool 是可编程的工具替身，记录每次被调用的实体。
type fakeTool struct {
	name    string
	fail    bool
	block   bool // 阻塞到 ctx 取消为止
	payload interface{}

	mu      sync.Mutex
	invoked []string
	calls   int32
}

func (f *fakeTool) Name() string { return f.name }

func (f *fakeTool) Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.invoked = append(f.invoked, entity.NormalizedValue)
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return models.ToolEvidence{ToolName: f.name, Entity: entity, Succeeded: false, ErrorMessage: "cancelled"}
	}
	if f.fail {
		return models.ToolEvidence{ToolName: f.name, Entity: entity, Succeeded: false, ErrorMessage: "simulated outage"}
	}
	payload := f.payload
	if payload == nil {
		payload = models.RegistryPayload{Found: false}
	}
	raw, _ := json.Marshal(payload)
	return models.ToolEvidence{ToolName: f.name, Entity: entity, Payload: raw, Succeeded: true}
}

func testSetup(t *testing.T, toolset []tools.Tool) (*Orchestrator, *progress.MemoryPublisher) {
	t.Helper()
	var inv config.InvestigationConfig
	inv.ApplyDefaults()
	pub := progress.NewMemoryPublisher()
	o := New(
		extractor.New(inv),
		toolset,
		reasoner.New(nil, inv, nil),
		pub,
		inv.ConcurrencyLimit,
		inv.WebSearchCallBudget,
		nil,
	)
	return o, pub
}

func task(text string) *models.InvestigationTask {
	return &models.InvestigationTask{ID: "task-1", SessionID: "session-1", Text: text}
}

func TestInvestigate_CleanTextCheapExit(t *testing.T) {
	registry := &fakeTool{name: models.ToolRegistryLookup}
	o, _ := testSetup(t, []tools.Tool{registry})

	outcome := o.Investigate(context.Background(), task("See you at lunch"))
	if outcome.Verdict == nil || outcome.Verdict.RiskLevel != models.RiskLow {
		t.Fatalf("clean text should yield an immediate low verdict, got %+v", outcome.Verdict)
	}
	if atomic.LoadInt32(&registry.calls) != 0 {
		t.Fatal("no tool calls may be dispatched for an empty entity set")
	}
	if len(outcome.Evidence) != 0 {
		t.Fatalf("unexpected evidence: %v", outcome.Evidence)
	}
}

func TestInvestigate_DeduplicatesDispatch(t *testing.T) {
	registry := &fakeTool{name: models.ToolRegistryLookup}
	validator := &fakeTool{name: models.ToolPhoneValidator, payload: models.PhonePatternPayload{Valid: true}}
	o, _ := testSetup(t, []tools.Tool{registry, validator})

	// 同一个号码出现两种写法，归一化后是同一实体。
	outcome := o.Investigate(context.Background(), task("Call 1-800-555-0147 or (800) 555-0147 today"))

	if got := atomic.LoadInt32(&registry.calls); got != 1 {
		t.Fatalf("registry should be called once per normalized value, got %d", got)
	}
	seen := make(map[string]int)
	for _, ev := range outcome.Evidence {
		seen[ev.Key()]++
	}
	for key, n := range seen {
		if n > 1 {
			t.Fatalf("duplicate evidence for %s", key)
		}
	}
}

func TestInvestigate_PartialFailureStillProducesVerdict(t *testing.T) {
	registry := &fakeTool{name: models.ToolRegistryLookup, payload: models.RegistryPayload{Found: true, ReportCount: 12}}
	reputation := &fakeTool{name: models.ToolDomainReputation, fail: true}
	search := &fakeTool{name: models.ToolWebSearch, fail: true}
	o, _ := testSetup(t, []tools.Tool{registry, reputation, search})

	outcome := o.Investigate(context.Background(), task("Verify your account at hxxp://secure-refunds.top/login"))
	if outcome.Verdict == nil {
		t.Fatal("partial adapter failure must still produce a verdict")
	}
	if outcome.TimedOut {
		t.Fatal("adapter failures are not a timeout")
	}
	if outcome.Verdict.RiskLevel == models.RiskLow {
		t.Fatalf("12 registry reports should outweigh failed siblings: %s", outcome.Verdict.Explanation)
	}
	failed := 0
	for _, ev := range outcome.Evidence {
		if !ev.Succeeded {
			failed++
		}
	}
	if failed != 2 {
		t.Fatalf("expected 2 failed evidence records, got %d", failed)
	}
}

func TestInvestigate_WebSearchBudget(t *testing.T) {
	registry := &fakeTool{name: models.ToolRegistryLookup}
	reputation := &fakeTool{name: models.ToolDomainReputation, payload: models.ReputationPayload{}}
	search := &fakeTool{name: models.ToolWebSearch, payload: models.WebSearchPayload{}}
	o, _ := testSetup(t, []tools.Tool{registry, reputation, search})

	text := "Check badsite-one.top then badsite-two.top then badsite-three.top then badsite-four.top and badsite-five.top"
	o.Investigate(context.Background(), task(text))

	// 默认预算是 3 次搜索调用。
	if got := atomic.LoadInt32(&search.calls); got > 3 {
		t.Fatalf("web search exceeded its per-task budget: %d calls", got)
	}
	if got := atomic.LoadInt32(&registry.calls); got != 5 {
		t.Fatalf("budget must not affect other tools, registry got %d calls", got)
	}
}

func TestInvestigate_DeadlineForcesTimeout(t *testing.T) {
	blocked := &fakeTool{name: models.ToolRegistryLookup, block: true}
	validator := &fakeTool{name: models.ToolPhoneValidator, payload: models.PhonePatternPayload{
		Valid: true, Suspicious: true, Reasons: []string{tools.ReasonAllIdentical},
	}}
	o, _ := testSetup(t, []tools.Tool{blocked, validator})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	start := time.Now()
	outcome := o.Investigate(ctx, task("Call 1-800-000-0000 now"))
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("investigation must stop at the deadline, took %v", elapsed)
	}
	if !outcome.TimedOut {
		t.Fatal("expected TimedOut outcome")
	}
	if outcome.Verdict == nil || outcome.Verdict.Method != models.MethodHeuristic {
		t.Fatalf("timed out task needs a best-effort heuristic verdict, got %+v", outcome.Verdict)
	}
}

func TestInvestigate_ProgressIsMonotonic(t *testing.T) {
	registry := &fakeTool{name: models.ToolRegistryLookup}
	search := &fakeTool{name: models.ToolWebSearch, payload: models.WebSearchPayload{}}
	o, pub := testSetup(t, []tools.Tool{registry, search})

	outcome := o.Investigate(context.Background(), task("Urgent: wire $500 to claims@secure-refunds.top now"))
	if outcome.Verdict == nil {
		t.Fatal("expected a verdict")
	}

	events := pub.Events("task-1")
	if len(events) < 3 {
		t.Fatalf("expected extraction, dispatch and settlement events, got %d", len(events))
	}
	last := -1
	for _, ev := range events {
		if ev.Percent < last {
			t.Fatalf("progress regressed: %v", events)
		}
		last = ev.Percent
	}
}

func TestInvestigate_ExpiredContextClassifiedAsTimeout(t *testing.T) {
	registry := &fakeTool{name: models.ToolRegistryLookup}
	o, _ := testSetup(t, []tools.Tool{registry})

	// 截止时间在分发前就已过期：所有结果立即落入缓冲区，收集循环
	// 可能读完结果而从未命中 ctx.Done 分支，仍必须按超时归类。
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Millisecond))
	defer cancel()

	outcome := o.Investigate(ctx, task("Call 1-800-000-0000 now"))
	if !outcome.TimedOut {
		t.Fatal("a run whose deadline elapsed must be reported as timed out")
	}
	if outcome.Verdict == nil || outcome.Verdict.Method != models.MethodHeuristic {
		t.Fatalf("timed-out run needs a best-effort heuristic verdict, got %+v", outcome.Verdict)
	}
}
