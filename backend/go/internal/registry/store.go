package registry

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"time"
)

// Report 是骗局登记库中针对一个实体的累计举报记录。
type Report struct {
	EntityKind      models.EntityKind `bson:"entity_kind"`
	NormalizedValue string            `bson:"normalized_value"`
	ReportCount     int64             `bson:"report_count"`
	Citations       []string          `bson:"citations,omitempty"`
	FirstReportedAt time.Time         `bson:"first_reported_at"`
	LastReportedAt  time.Time         `bson:"last_reported_at"`
}

// Store 定义了骗局登记库的存储契约。
//
// Record 必须是单次往返的原子 increment-or-insert：同一实体被多个任务
// 并发举报时计数不允许丢失。绝不允许实现为应用层的读-改-写。
type Store interface {
	// Lookup 按 (kind, normalizedValue) 做精确匹配查询，未命中时返回 (nil, nil)。
	Lookup(ctx context.Context, kind models.EntityKind, normalizedValue string) (*Report, error)
	// Record 原子地追加一条举报：已有记录则计数 +1 并附加引文，否则插入新记录。
	Record(ctx context.Context, kind models.EntityKind, normalizedValue, citation string) error
}
