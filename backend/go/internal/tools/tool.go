package tools

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"encoding/json"
	"time"
)

// Tool 是所有验证工具适配器必须实现的统一契约。
//
// Invoke 从不返回 error：网络失败、超时、响应畸形都折叠成
// Succeeded=false 的证据，这样编排器无须针对单个适配器做异常处理，
// 一个适配器的故障也不会波及并发运行的其他适配器（舱壁隔离）。
type Tool interface {
	// Name 返回工具的稳定名称（models.Tool* 常量之一）。
	Name() string
	// Invoke 针对单个实体执行验证并返回证据。实现各自管理超时。
	Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence
}

// evidence 用工具载荷组装一条成功证据。载荷序列化失败视为适配器失败。
func evidence(tool string, entity models.ExtractedEntity, payload interface{}, started time.Time) models.ToolEvidence {
	raw, err := json.Marshal(payload)
	if err != nil {
		return failure(tool, entity, "failed to encode tool payload: "+err.Error(), started)
	}
	return models.ToolEvidence{
		ToolName:  tool,
		Entity:    entity,
		Payload:   raw,
		Succeeded: true,
		LatencyMs: time.Since(started).Milliseconds(),
	}
}

// failure 组装一条失败证据。
func failure(tool string, entity models.ExtractedEntity, message string, started time.Time) models.ToolEvidence {
	return models.ToolEvidence{
		ToolName:     tool,
		Entity:       entity,
		Succeeded:    false,
		ErrorMessage: message,
		LatencyMs:    time.Since(started).Milliseconds(),
	}
}
