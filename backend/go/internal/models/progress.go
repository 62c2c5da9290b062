package models

import "time"

// 进度事件的步骤名。终态步骤发出后，该任务的进度流即告关闭。
const (
	StepExtracting    = "extracting"
	StepInvestigating = "investigating"
	StepReasoning     = "reasoning"
	StepHeartbeat     = "heartbeat"
	StepCompleted     = "completed"
	StepFailed        = "failed"
	StepTimedOut      = "timed_out"
)

// ProgressEvent 是调查过程中发往进度通道的一条 JSON 消息。
//
// 单个任务的事件流内 Percent 单调不减；终态事件恒为 100，
// 且终态事件之后不会再有该任务的任何事件。
type ProgressEvent struct {
	TaskID    string    `json:"task_id"`
	Step      string    `json:"step"`
	Message   string    `json:"message"`
	Percent   int       `json:"percent"` // 0-100
	Timestamp time.Time `json:"timestamp"`
}

// IsTerminalStep 判断一个步骤名是否为终态步骤。
func IsTerminalStep(step string) bool {
	switch step {
	case StepCompleted, StepFailed, StepTimedOut:
		return true
	}
	return false
}
