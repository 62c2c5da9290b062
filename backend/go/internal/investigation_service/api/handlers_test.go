package api

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/investigation_service/service"
	"ScamSentinel/backend/go/internal/investigation_service/store"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

type noopPublisher struct{}

func (noopPublisher) Publish(ctx context.Context, key string, value interface{}) error { return nil }
func (noopPublisher) Close() error                                                     { return nil }

func newTestAPI() *API {
	var inv config.InvestigationConfig
	inv.ApplyDefaults()
	svc := service.NewInvestigationService(
		store.NewMemoryTaskStore(), extractor.New(inv),
		service.NewConnectionManager(), noopPublisher{}, logger.New("test", "", ""))
	return NewAPI(svc, nil, logger.New("test", "", ""), nil)
}

func TestHealthHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var inv config.InvestigationConfig
	inv.ApplyDefaults()
	svc := service.NewInvestigationService(
		store.NewMemoryTaskStore(), extractor.New(inv),
		service.NewConnectionManager(), noopPublisher{}, logger.New("test", "", ""))

	checks := map[string]func(context.Context) error{
		"mongodb": func(context.Context) error { return nil },
		"kafka":   func(context.Context) error { return context.DeadlineExceeded },
	}
	a := NewAPI(svc, nil, logger.New("test", "", ""), checks)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	a.HealthHandler(c)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("a failing dependency must yield 503, got %d", w.Code)
	}

	checks["kafka"] = func(context.Context) error { return nil }
	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	a.HealthHandler(c)
	if w.Code != http.StatusOK {
		t.Fatalf("healthy dependencies must yield 200, got %d (%s)", w.Code, w.Body.String())
	}
}

func TestTerminalProgressEvent(t *testing.T) {
	completedAt := time.Now()
	cases := []struct {
		status models.TaskStatus
		step   string
	}{
		{models.TaskStatusSuccess, models.StepCompleted},
		{models.TaskStatusFailed, models.StepFailed},
		{models.TaskStatusTimedOut, models.StepTimedOut},
	}
	for _, tc := range cases {
		task := &models.InvestigationTask{ID: "task-1", Status: tc.status, CompletedAt: completedAt}
		event, terminal := terminalProgressEvent(task)
		if !terminal {
			t.Fatalf("%s task must yield a terminal event", tc.status)
		}
		if event.Step != tc.step || event.Percent != 100 || event.TaskID != "task-1" {
			t.Fatalf("unexpected synthesized event for %s: %+v", tc.status, event)
		}
	}

	if _, terminal := terminalProgressEvent(&models.InvestigationTask{Status: models.TaskStatusRunning}); terminal {
		t.Fatal("running task must not yield a terminal event")
	}
	if _, terminal := terminalProgressEvent(nil); terminal {
		t.Fatal("missing task must not yield a terminal event")
	}
}

func TestSubmitHandler_EmptyTextReturnsMinimalVerdict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestAPI()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("sessionID", "session-1")
	body, _ := json.Marshal(map[string]string{"text": "   \n"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/investigations", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	a.SubmitHandler(c)

	if w.Code != http.StatusOK {
		t.Fatalf("empty text must complete at submit time with 200, got %d (%s)", w.Code, w.Body.String())
	}
	var task models.InvestigationTask
	if err := json.Unmarshal(w.Body.Bytes(), &task); err != nil {
		t.Fatalf("response is not a task: %v", err)
	}
	if !task.Status.IsTerminal() || task.Verdict == nil || task.Verdict.RiskLevel != models.RiskLow {
		t.Fatalf("expected terminal task with minimal low verdict, got %+v", task)
	}
}

func TestSubmitHandler_EntityTextAccepted(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a := newTestAPI()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set("sessionID", "session-1")
	body, _ := json.Marshal(map[string]string{"text": "Call 1-800-000-0000 now"})
	c.Request = httptest.NewRequest(http.MethodPost, "/api/v1/investigations", bytes.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	a.SubmitHandler(c)

	if w.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d (%s)", w.Code, w.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response: %v", err)
	}
	if resp["task_id"] == "" || resp["progress_channel"] == "" {
		t.Fatalf("202 response must carry task_id and progress_channel, got %v", resp)
	}
}
