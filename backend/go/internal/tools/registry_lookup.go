package tools

import (
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/registry"
	"context"
	"time"
)

// RegistryLookup 按 (entityKind, normalizedValue) 精确查询骗局登记库。
// 它适用于所有实体类型，是可靠性排序中权重最高的证据来源。
type RegistryLookup struct {
	store   registry.Store
	timeout time.Duration
}

// NewRegistryLookup creates the registry lookup adapter.
func NewRegistryLookup(store registry.Store, timeout time.Duration) *RegistryLookup {
	return &RegistryLookup{store: store, timeout: timeout}
}

// Name returns the stable tool name.
func (t *RegistryLookup) Name() string { return models.ToolRegistryLookup }

// Invoke 查询登记库并把举报量与新近程度折算成 0-100 的风险分。
func (t *RegistryLookup) Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence {
	started := time.Now()
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	report, err := t.store.Lookup(ctx, entity.Kind, entity.NormalizedValue)
	if err != nil {
		return failure(t.Name(), entity, "registry lookup failed: "+err.Error(), started)
	}

	payload := models.RegistryPayload{}
	if report != nil {
		payload.Found = true
		payload.ReportCount = report.ReportCount
		payload.Citations = report.Citations
		payload.LastReport = report.LastReportedAt
		payload.RiskScore = registryRiskScore(report.ReportCount, report.LastReportedAt)
	}
	return evidence(t.Name(), entity, payload, started)
}

// registryRiskScore 由举报量和新近程度推导风险分。
// 体量贡献最多 70 分（10 条及以上打满），最近 30 天内有新举报再加 30 分，
// 90 天内加 15 分。
func registryRiskScore(count int64, lastReport time.Time) float64 {
	if count <= 0 {
		return 0
	}
	volume := float64(count) * 7
	if volume > 70 {
		volume = 70
	}
	recency := 0.0
	age := time.Since(lastReport)
	switch {
	case age <= 30*24*time.Hour:
		recency = 30
	case age <= 90*24*time.Hour:
		recency = 15
	}
	return volume + recency
}
