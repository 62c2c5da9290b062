package models

// RiskLevel 定义了最终风险评估的三档结论。
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// VerdictMethod 标识结论由哪条路径产出。
type VerdictMethod string

const (
	MethodReasoned  VerdictMethod = "reasoned"  // 模型推理路径
	MethodHeuristic VerdictMethod = "heuristic" // 确定性兜底评分
)

// Verdict 是推理器对一次调查的最终风险结论。
type Verdict struct {
	RiskLevel    RiskLevel     `json:"risk_level" bson:"risk_level"`
	Confidence   float64       `json:"confidence" bson:"confidence"` // 0-100
	Explanation  string        `json:"explanation" bson:"explanation"`
	EvidenceKeys []string      `json:"evidence_keys,omitempty" bson:"evidence_keys,omitempty"` // 支撑结论的证据键
	Method       VerdictMethod `json:"method" bson:"method"`
}

// ValidRiskLevel 判断一个风险等级是否在枚举集合内。
// 模型输出经过它做结构校验，不在集合内的值会触发兜底路径。
func ValidRiskLevel(level RiskLevel) bool {
	switch level {
	case RiskLow, RiskMedium, RiskHigh:
		return true
	}
	return false
}

// MinimalVerdict 返回空实体集时的廉价出口结论：无可调查对象即低风险。
func MinimalVerdict() *Verdict {
	return &Verdict{
		RiskLevel:   RiskLow,
		Confidence:  90,
		Explanation: "No actionable entities (phone numbers, links, emails, payment details or company names) were found in the text.",
		Method:      MethodHeuristic,
	}
}
