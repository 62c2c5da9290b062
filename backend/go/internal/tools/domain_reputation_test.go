package tools

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"
)

type fakeReputationSource struct {
	scores map[string]float64 // check name -> score; missing entries error
}

func (f *fakeReputationSource) Check(ctx context.Context, check, domain string) (float64, string, error) {
	score, ok := f.scores[check]
	if !ok {
		return 0, "", errors.New("sub-check unavailable")
	}
	return score, "stub detail", nil
}

func urlEntity(domain string) models.ExtractedEntity {
	return models.ExtractedEntity{Kind: models.EntityURL, RawText: domain, NormalizedValue: domain}
}

func TestDomainReputation_WeightedScore(t *testing.T) {
	source := &fakeReputationSource{scores: map[string]float64{
		"registration_age": 100,
		"certificate":      100,
		"malware_flags":    100,
		"blocklist":        100,
	}}
	tool := NewDomainReputation(source, nil, time.Hour, 2*time.Second)

	ev := tool.Invoke(context.Background(), urlEntity("secure-refunds.top"))
	if !ev.Succeeded {
		t.Fatalf("unexpected failure: %s", ev.ErrorMessage)
	}
	var payload models.ReputationPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.WeightedScore != 100 {
		t.Fatalf("expected weighted score 100, got %v", payload.WeightedScore)
	}
	if len(payload.Signals) != 4 {
		t.Fatalf("expected 4 signals, got %d", len(payload.Signals))
	}
}

func TestDomainReputation_PartialSignalFailure(t *testing.T) {
	// malware_flags 失败：其余三项照常参与加权，该信号按零分计入。
	source := &fakeReputationSource{scores: map[string]float64{
		"registration_age": 80,
		"certificate":      40,
		"blocklist":        60,
	}}
	tool := NewDomainReputation(source, nil, time.Hour, 2*time.Second)

	ev := tool.Invoke(context.Background(), urlEntity("secure-refunds.top"))
	if !ev.Succeeded {
		t.Fatalf("partial failure must not fail the adapter: %s", ev.ErrorMessage)
	}
	var payload models.ReputationPayload
	if err := json.Unmarshal(ev.Payload, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	want := 80*0.2 + 40*0.15 + 60*0.25
	if payload.WeightedScore != want {
		t.Fatalf("expected weighted score %v, got %v", want, payload.WeightedScore)
	}
	for _, sig := range payload.Signals {
		if sig.Name == "malware_flags" && sig.Available {
			t.Fatal("failed sub-check reported as available")
		}
	}
}

func TestDomainReputation_AllSignalsFailed(t *testing.T) {
	tool := NewDomainReputation(&fakeReputationSource{}, nil, time.Hour, 2*time.Second)
	ev := tool.Invoke(context.Background(), urlEntity("secure-refunds.top"))
	if ev.Succeeded {
		t.Fatal("adapter should fail when every sub-check fails")
	}
}

func TestDomainReputation_CacheHit(t *testing.T) {
	source := &fakeReputationSource{scores: map[string]float64{
		"registration_age": 50, "certificate": 50, "malware_flags": 50, "blocklist": 50,
	}}
	cache := NewResultCache(nil, nil)
	tool := NewDomainReputation(source, cache, time.Hour, 2*time.Second)

	first := tool.Invoke(context.Background(), urlEntity("secure-refunds.top"))
	source.scores = nil // 后端失效，第二次调用必须命中缓存
	second := tool.Invoke(context.Background(), urlEntity("secure-refunds.top"))
	if !second.Succeeded {
		t.Fatalf("expected cache hit, got failure: %s", second.ErrorMessage)
	}
	if string(first.Payload) != string(second.Payload) {
		t.Fatal("cached payload differs from original")
	}
}
