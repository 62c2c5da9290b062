package tools

import (
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/models"
	httpclient "ScamSentinel/backend/go/pkg/http"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// CompanyRegistryClient 抽象了官方公司注册库的查询接口。
type CompanyRegistryClient interface {
	// Exists 查询规范化公司名是否出现在官方注册库中。
	Exists(ctx context.Context, normalizedName string) (bool, error)
}

// HTTPCompanyRegistryClient queries the configured registry service over HTTP.
type HTTPCompanyRegistryClient struct {
	client   *httpclient.Client
	endpoint string
}

// NewHTTPCompanyRegistryClient creates a registry client backed by an HTTP service.
func NewHTTPCompanyRegistryClient(client *httpclient.Client, endpoint string) *HTTPCompanyRegistryClient {
	return &HTTPCompanyRegistryClient{client: client, endpoint: endpoint}
}

// Exists calls GET <endpoint>?name=<name> and expects {"found": bool}.
func (c *HTTPCompanyRegistryClient) Exists(ctx context.Context, normalizedName string) (bool, error) {
	u := fmt.Sprintf("%s?name=%s", c.endpoint, url.QueryEscape(normalizedName))
	var out struct {
		Found bool `json:"found"`
	}
	if err := c.client.GetJSON(ctx, u, &out); err != nil {
		return false, err
	}
	return out.Found, nil
}

// 公司可疑信号的具名原因。
const (
	ReasonNotRegistered   = "not found in official registry"
	ReasonImpersonation   = "name closely resembles a known company"
	ReasonScamKeyword     = "name contains scam-associated keyword"
	ReasonNoLegalSuffix   = "claims to be a company but lacks a legal suffix"
	ReasonRegistryFailure = "official registry unavailable"
)

// scamNameKeywords 经常出现在仿冒/话术公司名里的词。
var scamNameKeywords = []string{"refund", "recovery", "customs", "clearance", "prize", "lottery", "tax relief"}

// CompanyVerifier 核验公司名的合法性：官方注册库查询、与已知公司的
// 近似仿冒检测、名称中的话术关键词。注册库不可用时降级为纯启发式，
// 不把基础设施故障误判为"未注册"。
type CompanyVerifier struct {
	registry       CompanyRegistryClient
	cache          *ResultCache
	knownCompanies []string
	cacheTTL       time.Duration
	timeout        time.Duration
}

// NewCompanyVerifier creates the company registry verifier. knownCompanies is
// the impersonation watch list from configuration.
func NewCompanyVerifier(registry CompanyRegistryClient, cache *ResultCache, knownCompanies []string, cacheTTL, timeout time.Duration) *CompanyVerifier {
	return &CompanyVerifier{
		registry:       registry,
		cache:          cache,
		knownCompanies: knownCompanies,
		cacheTTL:       cacheTTL,
		timeout:        timeout,
	}
}

// Name returns the stable tool name.
func (t *CompanyVerifier) Name() string { return models.ToolCompanyVerifier }

// Invoke 核验单个公司实体。公司名变更极少，结果缓存数周。
func (t *CompanyVerifier) Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence {
	started := time.Now()
	name := extractor.NormalizeCompanyName(entity.NormalizedValue)

	if t.cache != nil {
		if cached, ok := t.cache.Get(ctx, t.Name(), name); ok {
			return models.ToolEvidence{
				ToolName:  t.Name(),
				Entity:    entity,
				Payload:   cached,
				Succeeded: true,
				LatencyMs: time.Since(started).Milliseconds(),
			}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	payload := models.CompanyPayload{NormalizedName: name}

	if t.registry != nil {
		found, err := t.registry.Exists(ctx, name)
		if err != nil {
			payload.SuspicionReasons = append(payload.SuspicionReasons, ReasonRegistryFailure)
		} else {
			payload.RegistryChecked = true
			payload.RegistryFound = found
			if !found {
				payload.SuspicionReasons = append(payload.SuspicionReasons, ReasonNotRegistered)
			}
		}
	}

	if impersonated := t.impersonationTarget(name); impersonated != "" {
		payload.ImpersonationOf = impersonated
		payload.SuspicionReasons = append(payload.SuspicionReasons, ReasonImpersonation)
	}
	for _, kw := range scamNameKeywords {
		if strings.Contains(name, kw) {
			payload.SuspicionReasons = append(payload.SuspicionReasons, ReasonScamKeyword)
			break
		}
	}
	if entity.Attr("had_suffix") == "false" && payload.ImpersonationOf == "" {
		payload.SuspicionReasons = append(payload.SuspicionReasons, ReasonNoLegalSuffix)
	}

	payload.LegitimacyScore = legitimacyScore(payload)

	ev := evidence(t.Name(), entity, payload, started)
	// 注册库没查成功的结果不写缓存，避免把临时故障固化数周。
	if t.cache != nil && ev.Succeeded && payload.RegistryChecked {
		raw, _ := json.Marshal(payload)
		t.cache.Put(ctx, t.Name(), name, raw, t.cacheTTL)
	}
	return ev
}

// impersonationTarget 返回与给定名称高度相似（但不相同）的已知公司，
// 无命中时返回空串。编辑距离 1-2 视为疑似仿冒（如 "arnazon" 对 "amazon"）。
func (t *CompanyVerifier) impersonationTarget(name string) string {
	for _, known := range t.knownCompanies {
		canonical := extractor.NormalizeCompanyName(known)
		if canonical == "" || canonical == name {
			continue
		}
		d := levenshtein(name, canonical)
		if d <= 2 && d > 0 {
			return canonical
		}
		// "amazon refund services" 这类前缀包含也算仿冒。
		if strings.Contains(name, canonical) {
			return canonical
		}
	}
	return ""
}

// legitimacyScore 从注册状态和可疑信号推导 0-100 的合法性分。
func legitimacyScore(p models.CompanyPayload) float64 {
	score := 50.0
	if p.RegistryChecked {
		if p.RegistryFound {
			score = 90
		} else {
			score = 30
		}
	}
	if p.ImpersonationOf != "" {
		score -= 30
	}
	for _, reason := range p.SuspicionReasons {
		if reason == ReasonScamKeyword || reason == ReasonNoLegalSuffix {
			score -= 10
		}
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// levenshtein 计算两个字符串的编辑距离，使用滚动一维数组。
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}
	prev := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(ra); i++ {
		cur := make([]int, len(rb)+1)
		cur[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			cur[j] = min3(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev = cur
	}
	return prev[len(rb)]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
