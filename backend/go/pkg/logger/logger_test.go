package logger

import (
	"ScamSentinel/backend/go/internal/models"
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestLoggerEmitsStructuredFields(t *testing.T) {
	Init(logrus.InfoLevel)
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(os.Stdout)

	log := New("worker_service", "task-42", "session-7")
	log.WithError(models.ErrorInfo{Message: "mongo unreachable", Type: "infra_error"}).
		WithPayload(map[string]interface{}{"attempt": 2}).
		Error("investigation failed")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v (%s)", err, buf.String())
	}
	if line["service_name"] != "worker_service" || line["task_id"] != "task-42" {
		t.Fatalf("missing identity fields: %v", line)
	}
	if line["message"] != "investigation failed" || line["level"] != "error" {
		t.Fatalf("unexpected message/level: %v", line)
	}
	errField, ok := line["error"].(map[string]interface{})
	if !ok || errField["message"] != "mongo unreachable" || errField["type"] != "infra_error" {
		t.Fatalf("error field not structured: %v", line["error"])
	}
}

func TestLoggerRequestInfoField(t *testing.T) {
	Init(logrus.InfoLevel)
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	defer logrus.SetOutput(os.Stdout)

	New("investigation_service", "", "").
		WithRequest(models.RequestInfo{Method: "POST", Path: "/api/v1/investigations"}).
		Info("request received")

	var line map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	req, ok := line["request_info"].(map[string]interface{})
	if !ok || req["method"] != "POST" || req["path"] != "/api/v1/investigations" {
		t.Fatalf("request_info field not structured: %v", line["request_info"])
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := ParseLevel("verbose"); got != logrus.InfoLevel {
		t.Fatalf("unknown level should fall back to info, got %v", got)
	}
	if got := ParseLevel("debug"); got != logrus.DebugLevel {
		t.Fatalf("parse debug: got %v", got)
	}
}
