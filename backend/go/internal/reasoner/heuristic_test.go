package reasoner

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/tools"
	"encoding/json"
	"testing"
)

func defaultHeuristic() *Heuristic {
	var inv config.InvestigationConfig
	inv.ApplyDefaults()
	return NewHeuristic(inv.Heuristic)
}

func mustPayload(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func successEvidence(t *testing.T, tool string, entity models.ExtractedEntity, payload interface{}) models.ToolEvidence {
	t.Helper()
	return models.ToolEvidence{
		ToolName:  tool,
		Entity:    entity,
		Payload:   mustPayload(t, payload),
		Succeeded: true,
	}
}

func failedEvidence(tool string, entity models.ExtractedEntity) models.ToolEvidence {
	return models.ToolEvidence{ToolName: tool, Entity: entity, Succeeded: false, ErrorMessage: "upstream down"}
}

func TestHeuristic_AllZeroPhoneScoresAtLeastMedium(t *testing.T) {
	phone := models.ExtractedEntity{Kind: models.EntityPhone, NormalizedValue: "+18000000000"}
	evidence := []models.ToolEvidence{
		successEvidence(t, models.ToolPhoneValidator, phone, models.PhonePatternPayload{
			Valid:      true,
			Suspicious: true,
			Reasons:    []string{tools.ReasonAllIdentical},
		}),
		successEvidence(t, models.ToolRegistryLookup, phone, models.RegistryPayload{Found: false}),
	}

	verdict := defaultHeuristic().Verdict(evidence)
	if verdict.RiskLevel == models.RiskLow {
		t.Fatalf("all-zero phone should score at least medium, got %s: %s", verdict.RiskLevel, verdict.Explanation)
	}
	if verdict.Method != models.MethodHeuristic {
		t.Fatalf("expected heuristic method, got %s", verdict.Method)
	}
}

func TestHeuristic_RegistryHitOutweighsSiblingFailures(t *testing.T) {
	domain := models.ExtractedEntity{Kind: models.EntityURL, NormalizedValue: "secure-refunds.top"}
	evidence := []models.ToolEvidence{
		successEvidence(t, models.ToolRegistryLookup, domain, models.RegistryPayload{
			Found: true, ReportCount: 47, RiskScore: 100,
		}),
		failedEvidence(models.ToolDomainReputation, domain),
		failedEvidence(models.ToolWebSearch, domain),
	}

	verdict := defaultHeuristic().Verdict(evidence)
	if verdict.RiskLevel == models.RiskLow {
		t.Fatalf("47 registry reports must not yield low risk, got: %s", verdict.Explanation)
	}
	if len(verdict.EvidenceKeys) != 1 {
		t.Fatalf("only the registry evidence should contribute, got keys %v", verdict.EvidenceKeys)
	}
}

func TestHeuristic_CombinedSignalsReachHigh(t *testing.T) {
	domain := models.ExtractedEntity{Kind: models.EntityURL, NormalizedValue: "secure-refunds.top"}
	evidence := []models.ToolEvidence{
		successEvidence(t, models.ToolRegistryLookup, domain, models.RegistryPayload{Found: true, ReportCount: 10}),
		successEvidence(t, models.ToolDomainReputation, domain, models.ReputationPayload{Domain: "secure-refunds.top", WeightedScore: 85}),
		successEvidence(t, models.ToolWebSearch, domain, models.WebSearchPayload{Query: "q", DistinctSource: 6}),
	}

	verdict := defaultHeuristic().Verdict(evidence)
	// 40 (registry cap) + 25 (severe reputation) + 20 (web cap) = 85 >= 70
	if verdict.RiskLevel != models.RiskHigh {
		t.Fatalf("expected high risk, got %s: %s", verdict.RiskLevel, verdict.Explanation)
	}
}

func TestHeuristic_NoSignalsIsLow(t *testing.T) {
	phone := models.ExtractedEntity{Kind: models.EntityPhone, NormalizedValue: "+18045559183"}
	evidence := []models.ToolEvidence{
		successEvidence(t, models.ToolRegistryLookup, phone, models.RegistryPayload{Found: false}),
		successEvidence(t, models.ToolPhoneValidator, phone, models.PhonePatternPayload{Valid: true, Suspicious: false}),
	}

	verdict := defaultHeuristic().Verdict(evidence)
	if verdict.RiskLevel != models.RiskLow {
		t.Fatalf("clean evidence should be low risk, got %s", verdict.RiskLevel)
	}
	if len(verdict.EvidenceKeys) != 0 {
		t.Fatalf("no evidence should contribute, got %v", verdict.EvidenceKeys)
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	domain := models.ExtractedEntity{Kind: models.EntityURL, NormalizedValue: "secure-refunds.top"}
	phone := models.ExtractedEntity{Kind: models.EntityPhone, NormalizedValue: "+19005551234"}
	evidence := []models.ToolEvidence{
		successEvidence(t, models.ToolWebSearch, domain, models.WebSearchPayload{DistinctSource: 3}),
		successEvidence(t, models.ToolPhoneValidator, phone, models.PhonePatternPayload{
			Valid: true, Suspicious: true, Reasons: []string{tools.ReasonPremiumRate},
		}),
	}
	reversed := []models.ToolEvidence{evidence[1], evidence[0]}

	h := defaultHeuristic()
	a := h.Verdict(evidence)
	b := h.Verdict(reversed)
	if a.RiskLevel != b.RiskLevel || a.Confidence != b.Confidence || a.Explanation != b.Explanation {
		t.Fatalf("heuristic is order dependent:\n%+v\n%+v", a, b)
	}
}

func TestHeuristic_MalformedPayloadIgnored(t *testing.T) {
	domain := models.ExtractedEntity{Kind: models.EntityURL, NormalizedValue: "secure-refunds.top"}
	evidence := []models.ToolEvidence{
		{ToolName: models.ToolRegistryLookup, Entity: domain, Payload: json.RawMessage(`{not json`), Succeeded: true},
	}
	verdict := defaultHeuristic().Verdict(evidence)
	if verdict.RiskLevel != models.RiskLow {
		t.Fatalf("malformed payload must degrade to zero contribution, got %s", verdict.RiskLevel)
	}
}
