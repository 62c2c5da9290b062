package reasoner

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/tools"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Heuristic 是确定性的兜底评分器：纯函数，无随机性，永不失败。
// 同一份证据列表在任何时刻都产出完全相同的结论。
type Heuristic struct {
	cfg config.HeuristicConfig
}

// NewHeuristic creates the deterministic fallback scorer.
func NewHeuristic(cfg config.HeuristicConfig) *Heuristic {
	return &Heuristic{cfg: cfg}
}

// severePatternReasons 列出统计上几乎不可能被真实用户持有的号码模式。
// 这类命中单独就足以把结论推到中风险档。
var severePatternReasons = map[string]struct{}{
	tools.ReasonAllIdentical: {},
	tools.ReasonSequential:   {},
}

// contribution 是一项证据对总分的贡献，进入最终解释文本。
type contribution struct {
	key    string
	points int
	detail string
}

// Verdict 对聚合证据做确定性点数评分并换算成三档结论。
func (h *Heuristic) Verdict(evidence []models.ToolEvidence) *models.Verdict {
	// 证据按键排序，保证评分与解释文本与传入顺序无关。
	sorted := append([]models.ToolEvidence(nil), evidence...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Key() < sorted[j].Key() })

	var contributions []contribution
	for _, ev := range sorted {
		if !ev.Succeeded {
			continue
		}
		if c, ok := h.score(ev); ok {
			contributions = append(contributions, c)
		}
	}

	total := 0
	keys := make([]string, 0, len(contributions))
	for _, c := range contributions {
		total += c.points
		keys = append(keys, c.key)
	}

	level := models.RiskLow
	switch {
	case total >= h.cfg.HighThreshold:
		level = models.RiskHigh
	case total >= h.cfg.MediumThreshold:
		level = models.RiskMedium
	}

	return &models.Verdict{
		RiskLevel:    level,
		Confidence:   heuristicConfidence(total),
		Explanation:  explain(total, contributions),
		EvidenceKeys: keys,
		Method:       models.MethodHeuristic,
	}
}

// score 计算单条证据的贡献；无贡献的证据返回 ok=false。
func (h *Heuristic) score(ev models.ToolEvidence) (contribution, bool) {
	switch ev.ToolName {
	case models.ToolRegistryLookup:
		var p models.RegistryPayload
		if json.Unmarshal(ev.Payload, &p) != nil || !p.Found {
			return contribution{}, false
		}
		points := int(p.ReportCount) * h.cfg.RegistryPointsPerReport
		if points > h.cfg.RegistryPointsCap {
			points = h.cfg.RegistryPointsCap
		}
		return contribution{
			key:    ev.Key(),
			points: points,
			detail: fmt.Sprintf("%d prior scam reports for %s", p.ReportCount, ev.Entity.NormalizedValue),
		}, true

	case models.ToolDomainReputation:
		var p models.ReputationPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return contribution{}, false
		}
		points := 0
		band := ""
		switch {
		case p.WeightedScore >= 70:
			points, band = h.cfg.ReputationSeverePoints, "severe"
		case p.WeightedScore >= 40:
			points, band = h.cfg.ReputationMediumPoints, "moderate"
		case p.WeightedScore >= 15:
			points, band = h.cfg.ReputationMinorPoints, "minor"
		default:
			return contribution{}, false
		}
		return contribution{
			key:    ev.Key(),
			points: points,
			detail: fmt.Sprintf("%s reputation flags on domain %s", band, p.Domain),
		}, true

	case models.ToolWebSearch:
		var p models.WebSearchPayload
		if json.Unmarshal(ev.Payload, &p) != nil || p.DistinctSource == 0 {
			return contribution{}, false
		}
		points := p.DistinctSource * h.cfg.WebPointsPerSource
		if points > h.cfg.WebPointsCap {
			points = h.cfg.WebPointsCap
		}
		return contribution{
			key:    ev.Key(),
			points: points,
			detail: fmt.Sprintf("%d independent web sources mention %s in a scam context", p.DistinctSource, ev.Entity.NormalizedValue),
		}, true

	case models.ToolPhoneValidator:
		var p models.PhonePatternPayload
		if json.Unmarshal(ev.Payload, &p) != nil || !p.Suspicious {
			return contribution{}, false
		}
		points := 0
		for _, reason := range p.Reasons {
			if _, severe := severePatternReasons[reason]; severe {
				points += 4 * h.cfg.PatternFlagPoints
			} else {
				points += h.cfg.PatternFlagPoints
			}
		}
		return contribution{
			key:    ev.Key(),
			points: points,
			detail: fmt.Sprintf("phone %s matches suspicious patterns (%s)", ev.Entity.NormalizedValue, strings.Join(p.Reasons, "; ")),
		}, true

	case models.ToolCompanyVerifier:
		var p models.CompanyPayload
		if json.Unmarshal(ev.Payload, &p) != nil {
			return contribution{}, false
		}
		if p.ImpersonationOf == "" && p.LegitimacyScore >= 40 {
			return contribution{}, false
		}
		detail := fmt.Sprintf("company %q shows legitimacy concerns", p.NormalizedName)
		if p.ImpersonationOf != "" {
			detail = fmt.Sprintf("company %q appears to impersonate %q", p.NormalizedName, p.ImpersonationOf)
		}
		return contribution{key: ev.Key(), points: h.cfg.CompanySuspectPoints, detail: detail}, true
	}
	// 未识别的工具载荷安全降级为零贡献。
	return contribution{}, false
}

// heuristicConfidence 把总分映射为 0-100 的置信度：分数越极端越自信。
func heuristicConfidence(total int) float64 {
	conf := 50 + float64(total)/2
	if conf > 95 {
		conf = 95
	}
	return conf
}

// explain 生成确定性的解释文本，逐条列出贡献项。
func explain(total int, contributions []contribution) string {
	if len(contributions) == 0 {
		return "No scam indicators were found across registry, reputation, pattern and web evidence checks."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Heuristic score %d from %d signal(s): ", total, len(contributions))
	for i, c := range contributions {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s (+%d)", c.detail, c.points)
	}
	b.WriteString(".")
	return b.String()
}
