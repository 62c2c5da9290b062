package registry

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"sync"
	"time"
)

// MemoryStore 是 Store 的进程内实现，用于测试和本地开发。
type MemoryStore struct {
	mu      sync.Mutex
	reports map[string]*Report
}

// NewMemoryStore creates an empty in-memory registry store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*Report)}
}

func storeKey(kind models.EntityKind, value string) string {
	return string(kind) + ":" + value
}

// Lookup retrieves the accumulated report for an entity by exact match.
func (s *MemoryStore) Lookup(ctx context.Context, kind models.EntityKind, normalizedValue string) (*Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[storeKey(kind, normalizedValue)]
	if !ok {
		return nil, nil
	}
	copied := *report
	copied.Citations = append([]string(nil), report.Citations...)
	return &copied, nil
}

// Record appends one report under the store lock, mirroring the atomic
// upsert semantics of the Mongo implementation.
func (s *MemoryStore) Record(ctx context.Context, kind models.EntityKind, normalizedValue, citation string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	key := storeKey(kind, normalizedValue)
	report, ok := s.reports[key]
	if !ok {
		report = &Report{
			EntityKind:      kind,
			NormalizedValue: normalizedValue,
			FirstReportedAt: now,
		}
		s.reports[key] = report
	}
	report.ReportCount++
	report.LastReportedAt = now
	if citation != "" {
		report.Citations = append(report.Citations, citation)
	}
	return nil
}
