package registry

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"sync"
	"testing"
)

func TestMemoryStore_RecordAndLookup(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if report, err := store.Lookup(ctx, models.EntityURL, "evil-site.com"); err != nil || report != nil {
		t.Fatalf("Expected miss on empty store, got %v, %v", report, err)
	}

	for i := 0; i < 3; i++ {
		if err := store.Record(ctx, models.EntityURL, "evil-site.com", "report-source"); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	report, err := store.Lookup(ctx, models.EntityURL, "evil-site.com")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if report == nil || report.ReportCount != 3 {
		t.Fatalf("Expected 3 reports, got %+v", report)
	}
	if len(report.Citations) != 3 {
		t.Errorf("Expected 3 citations, got %d", len(report.Citations))
	}
}

func TestMemoryStore_ConcurrentIncrements(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Record(ctx, models.EntityPhone, "+18000000000", "")
		}()
	}
	wg.Wait()

	report, err := store.Lookup(ctx, models.EntityPhone, "+18000000000")
	if err != nil {
		t.Fatalf("Lookup() error = %v", err)
	}
	if report.ReportCount != goroutines {
		t.Errorf("Lost increments: expected %d, got %d", goroutines, report.ReportCount)
	}
}
