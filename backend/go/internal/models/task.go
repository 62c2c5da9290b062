package models

import (
	"time"
)

// TaskStatus 定义了调查任务的几种可能状态。
// succeeded / failed / timed_out 为终态，一经写入不可再变。
type TaskStatus string

const (
	TaskStatusPending  TaskStatus = "pending"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusSuccess  TaskStatus = "succeeded"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusTimedOut TaskStatus = "timed_out"
)

// IsTerminal 判断一个状态是否为终态。
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusSuccess, TaskStatusFailed, TaskStatusTimedOut:
		return true
	}
	return false
}

// InvestigationTask 代表一次端到端的调查运行的持久化记录。
//
// 状态所有权：只有任务运行器（worker_service）可以做状态迁移；
// 编排器只追加 Entities/Evidence 并填写 Verdict，然后交回运行器收尾。
type InvestigationTask struct {
	ID          string            `json:"id" bson:"_id"`               // 任务唯一ID (UUID string)
	SessionID   string            `json:"session_id" bson:"session_id"` // 提交调查的客户端会话
	Status      TaskStatus        `json:"status" bson:"status"`
	Text        string            `json:"text" bson:"text"` // 待调查的 OCR 文本
	Entities    []ExtractedEntity `json:"entities,omitempty" bson:"entities,omitempty"`
	Evidence    []ToolEvidence    `json:"evidence,omitempty" bson:"evidence,omitempty"`
	Verdict     *Verdict          `json:"verdict,omitempty" bson:"verdict,omitempty"`
	Error       string            `json:"error,omitempty" bson:"error,omitempty"` // 仅基础设施失败时填写
	Attempt     int               `json:"attempt" bson:"attempt"`                 // 当前尝试次数（含重试）
	SubmittedAt time.Time         `json:"submitted_at" bson:"submitted_at"`
	CompletedAt time.Time         `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
}
