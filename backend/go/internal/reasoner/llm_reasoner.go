package reasoner

import (
	"ScamSentinel/backend/go/internal/llm"
	"ScamSentinel/backend/go/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// systemPrompt 固定了输出契约。模型输出会经过严格结构校验，
// 任何偏离都会触发确定性兜底，绝不部分信任。
const systemPrompt = `You are a fraud analyst. You receive structured evidence gathered about entities ` +
	`extracted from a suspected scam message. Weigh the evidence and answer with a single JSON object:
{"risk_level": "low"|"medium"|"high", "confidence": <number 0-100>, "explanation": "<cite the evidence that drove your call>"}
Evidence reliability ordering, most reliable first: scam registry hits, domain reputation and malware signals, ` +
	`web complaint evidence, pattern-only signals. Respond with the JSON object only.`

// reliabilityOrder 决定提示词中各工具证据段的先后次序。
var reliabilityOrder = []string{
	models.ToolRegistryLookup,
	models.ToolDomainReputation,
	models.ToolCompanyVerifier,
	models.ToolWebSearch,
	models.ToolPhoneValidator,
}

// LLMReasoner 是模型推理路径：构造按可靠性排序的证据提示词，
// 请求结构化结论并做 schema 校验。
type LLMReasoner struct {
	client  llm.LLM
	timeout time.Duration
}

// NewLLMReasoner creates the model-backed reasoning path.
func NewLLMReasoner(client llm.LLM, timeout time.Duration) *LLMReasoner {
	return &LLMReasoner{client: client, timeout: timeout}
}

// llmVerdict 是模型回复必须满足的结构。
type llmVerdict struct {
	RiskLevel   models.RiskLevel `json:"risk_level"`
	Confidence  float64          `json:"confidence"`
	Explanation string           `json:"explanation"`
}

// Verdict 执行一次模型推理。校验失败返回错误，由上层决定重试或兜底。
func (r *LLMReasoner) Verdict(ctx context.Context, evidence []models.ToolEvidence) (*models.Verdict, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	raw, err := r.client.GenerateJSON(ctx, systemPrompt, buildPrompt(evidence))
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}

	parsed, err := parseVerdict(raw)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(evidence))
	for _, ev := range evidence {
		if ev.Succeeded {
			keys = append(keys, ev.Key())
		}
	}
	sort.Strings(keys)

	return &models.Verdict{
		RiskLevel:    parsed.RiskLevel,
		Confidence:   parsed.Confidence,
		Explanation:  parsed.Explanation,
		EvidenceKeys: keys,
		Method:       models.MethodReasoned,
	}, nil
}

// buildPrompt 把证据按工具可靠性分组渲染成提示词。
// 失败的工具调用也会列出，模型应把缺失的信号当作未知而非清白。
func buildPrompt(evidence []models.ToolEvidence) string {
	byTool := make(map[string][]models.ToolEvidence)
	for _, ev := range evidence {
		byTool[ev.ToolName] = append(byTool[ev.ToolName], ev)
	}

	var b strings.Builder
	b.WriteString("Evidence collected, grouped by tool in decreasing reliability:\n")
	for _, tool := range reliabilityOrder {
		group := byTool[tool]
		if len(group) == 0 {
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].Key() < group[j].Key() })
		fmt.Fprintf(&b, "\n## %s\n", tool)
		for _, ev := range group {
			if !ev.Succeeded {
				fmt.Fprintf(&b, "- entity %s: check failed (%s), treat as unknown\n", ev.Entity.NormalizedValue, ev.ErrorMessage)
				continue
			}
			fmt.Fprintf(&b, "- entity %s (%s): %s\n", ev.Entity.NormalizedValue, ev.Entity.Kind, string(ev.Payload))
		}
	}
	// 不在固定次序表里的工具追加在最后，而不是被悄悄丢掉。
	for tool, group := range byTool {
		if inReliabilityOrder(tool) {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (unranked)\n", tool)
		for _, ev := range group {
			fmt.Fprintf(&b, "- entity %s: %s\n", ev.Entity.NormalizedValue, string(ev.Payload))
		}
	}
	return b.String()
}

func inReliabilityOrder(tool string) bool {
	for _, t := range reliabilityOrder {
		if t == tool {
			return true
		}
	}
	return false
}

// parseVerdict 解析并校验模型回复。校验是全有或全无的：
// 风险等级必须在枚举内，置信度必须落在 [0,100]，解释不能为空。
func parseVerdict(raw string) (*llmVerdict, error) {
	// 容忍模型把 JSON 包在 markdown 代码块里。
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var v llmVerdict
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, fmt.Errorf("model output is not valid JSON: %w", err)
	}
	if !models.ValidRiskLevel(v.RiskLevel) {
		return nil, fmt.Errorf("model output has invalid risk level %q", v.RiskLevel)
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return nil, fmt.Errorf("model output confidence %v out of range", v.Confidence)
	}
	if strings.TrimSpace(v.Explanation) == "" {
		return nil, fmt.Errorf("model output has empty explanation")
	}
	return &v, nil
}
