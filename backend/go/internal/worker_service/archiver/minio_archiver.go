package archiver

import (
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/minio/minio-go/v7"
)

// ReportArchiver 把完成任务的完整调查报告归档到对象存储。
// 归档是尽力而为的旁路：失败只记日志，不影响任务状态。
type ReportArchiver struct {
	client *minio.Client
	bucket string
	logger *logger.Logger
}

// NewReportArchiver creates a report archiver writing into the given bucket.
func NewReportArchiver(client *minio.Client, bucket string, logger *logger.Logger) *ReportArchiver {
	return &ReportArchiver{client: client, bucket: bucket, logger: logger}
}

// objectName 返回任务报告的对象键。
func objectName(taskID string) string {
	return "reports/" + taskID + ".json"
}

// Archive 将任务的终态记录序列化为 JSON 并写入对象存储。
func (a *ReportArchiver) Archive(ctx context.Context, task *models.InvestigationTask) error {
	payload, err := json.MarshalIndent(task, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = a.client.PutObject(ctx, a.bucket, objectName(task.ID),
		bytes.NewReader(payload), int64(len(payload)),
		minio.PutObjectOptions{ContentType: "application/json"})
	if err != nil {
		if a.logger != nil {
			a.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "archive_error"}).
				WithPayload(map[string]interface{}{"taskID": task.ID}).
				Warn("failed to archive investigation report")
		}
		return err
	}
	return nil
}
