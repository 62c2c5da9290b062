package models

import (
	"encoding/json"
	"time"
)

// 工具名称常量。路由表、证据聚合和兜底评分都以它们为键。
const (
	ToolRegistryLookup   = "scam_registry_lookup"
	ToolDomainReputation = "domain_reputation"
	ToolPhoneValidator   = "phone_pattern_validator"
	ToolWebSearch        = "web_evidence_search"
	ToolCompanyVerifier  = "company_registry_verifier"
)

// ToolEvidence 是一次工具调用针对一个实体产生的结构化证据。
// 适配器从不返回 error：任何失败都表现为 Succeeded=false 加 ErrorMessage，
// 以便编排器无须针对单个适配器做异常处理。
type ToolEvidence struct {
	ToolName     string          `json:"tool_name" bson:"tool_name"`
	Entity       ExtractedEntity `json:"entity" bson:"entity"`
	Payload      json.RawMessage `json:"payload,omitempty" bson:"payload,omitempty"` // 按工具区分的结构化载荷
	Succeeded    bool            `json:"succeeded" bson:"succeeded"`
	ErrorMessage string          `json:"error_message,omitempty" bson:"error_message,omitempty"`
	LatencyMs    int64           `json:"latency_ms" bson:"latency_ms"`
}

// Key 返回证据的唯一键。单个任务内同一 (tool, normalizedValue) 至多出现一次。
func (ev ToolEvidence) Key() string {
	return ev.ToolName + ":" + ev.Entity.NormalizedValue
}

// --- 各工具的载荷结构（小型 tagged union，按 ToolName 解码） ---

// RegistryPayload 是骗局登记库查询的结果载荷。
type RegistryPayload struct {
	Found       bool      `json:"found"`
	ReportCount int64     `json:"report_count"`
	RiskScore   float64   `json:"risk_score"` // 由举报量与新近程度推导出的 0-100 分值
	Citations   []string  `json:"citations,omitempty"`
	LastReport  time.Time `json:"last_report,omitempty"`
}

// ReputationSignal 是域名信誉检查中单个子信号的结果。
// 子检查失败时 Available=false，信号按零分参与加权，不影响整个适配器。
type ReputationSignal struct {
	Name      string  `json:"name"` // registration_age / certificate / malware_flags / blocklist
	Available bool    `json:"available"`
	Score     float64 `json:"score"`  // 0 (良好) 到 100 (恶劣)
	Detail    string  `json:"detail"` // 人类可读的说明
}

// ReputationPayload 是域名信誉检查的合成载荷。
type ReputationPayload struct {
	Domain        string             `json:"domain"`
	WeightedScore float64            `json:"weighted_score"` // 0-100
	Signals       []ReputationSignal `json:"signals"`
}

// PhonePatternPayload 是离线电话号码模式校验的载荷。
type PhonePatternPayload struct {
	Valid      bool     `json:"valid"`      // 号码格式本身是否有效
	Suspicious bool     `json:"suspicious"` // 是否命中可疑模式
	Reasons    []string `json:"reasons,omitempty"` // 命中的具名原因，如 "all identical digits"
}

// WebSearchHit 是一条去重后的搜索结果。
type WebSearchHit struct {
	SourceDomain string  `json:"source_domain"`
	Title        string  `json:"title"`
	Snippet      string  `json:"snippet"`
	Trusted      bool    `json:"trusted"` // 是否来自高可信投诉/消费者保护站点
	Score        float64 `json:"score"`
}

// WebSearchPayload 是网络证据搜索的载荷。
type WebSearchPayload struct {
	Query          string         `json:"query"`
	DistinctSource int            `json:"distinct_sources"`
	Hits           []WebSearchHit `json:"hits,omitempty"`
}

// CompanyPayload 是公司登记核验的载荷。
type CompanyPayload struct {
	NormalizedName   string   `json:"normalized_name"`
	RegistryFound    bool     `json:"registry_found"`    // 是否在官方注册库中查到
	RegistryChecked  bool     `json:"registry_checked"`  // 注册库查询本身是否成功完成
	LegitimacyScore  float64  `json:"legitimacy_score"`  // 0 (几乎确定仿冒) 到 100 (合法)
	ImpersonationOf  string   `json:"impersonation_of,omitempty"` // 疑似仿冒的已知公司
	SuspicionReasons []string `json:"suspicion_reasons,omitempty"`
}
