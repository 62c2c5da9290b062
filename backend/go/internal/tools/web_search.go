package tools

import (
	"ScamSentinel/backend/go/internal/models"
	httpclient "ScamSentinel/backend/go/pkg/http"
	"ScamSentinel/backend/go/pkg/ratelimiter"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

// SearchResult 是搜索后端返回的单条原始结果。
type SearchResult struct {
	URL     string `json:"url"`
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
}

// SearchClient 抽象了外部搜索后端。测试注入假实现。
type SearchClient interface {
	Search(ctx context.Context, query string) ([]SearchResult, error)
}

// HTTPSearchClient queries the configured search service over HTTP.
type HTTPSearchClient struct {
	client   *httpclient.Client
	endpoint string
}

// NewHTTPSearchClient creates a search client backed by an HTTP service.
func NewHTTPSearchClient(client *httpclient.Client, endpoint string) *HTTPSearchClient {
	return &HTTPSearchClient{client: client, endpoint: endpoint}
}

// Search calls GET <endpoint>?q=<query> and expects {"results": [...]}.
func (s *HTTPSearchClient) Search(ctx context.Context, query string) ([]SearchResult, error) {
	u := fmt.Sprintf("%s?q=%s", s.endpoint, url.QueryEscape(query))
	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := s.client.GetJSON(ctx, u, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

// WebSearch 以实体为关键词检索公网投诉与曝光记录。
// 它是最贵的适配器：结果在 Redis 缓存数小时，调用速率由令牌桶限制，
// 单任务内的调用次数另由编排器的预算约束。
type WebSearch struct {
	client   SearchClient
	cache    *ResultCache
	limiter  ratelimiter.RateLimiter
	trusted  map[string]struct{}
	cacheTTL time.Duration
	timeout  time.Duration
}

// NewWebSearch creates the web evidence search adapter. trustedDomains lists
// consumer-protection and complaint sites whose hits carry extra weight.
func NewWebSearch(client SearchClient, cache *ResultCache, limiter ratelimiter.RateLimiter, trustedDomains []string, cacheTTL, timeout time.Duration) *WebSearch {
	trusted := make(map[string]struct{}, len(trustedDomains))
	for _, d := range trustedDomains {
		trusted[strings.ToLower(d)] = struct{}{}
	}
	return &WebSearch{client: client, cache: cache, limiter: limiter, trusted: trusted, cacheTTL: cacheTTL, timeout: timeout}
}

// Name returns the stable tool name.
func (t *WebSearch) Name() string { return models.ToolWebSearch }

// scamTerms 按实体类型拼接检索词。
func scamTerms(entity models.ExtractedEntity) string {
	switch entity.Kind {
	case models.EntityPhone:
		return fmt.Sprintf("%q scam complaints", entity.NormalizedValue)
	case models.EntityURL:
		return fmt.Sprintf("%q scam OR phishing", entity.NormalizedValue)
	case models.EntityEmail:
		return fmt.Sprintf("%q scam email", entity.NormalizedValue)
	case models.EntityCompany:
		return fmt.Sprintf("%q scam reviews complaints", entity.NormalizedValue)
	default:
		return fmt.Sprintf("%q scam", entity.NormalizedValue)
	}
}

// Invoke 执行检索并聚合命中：同一来源域只保留得分最高的一条。
func (t *WebSearch) Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence {
	started := time.Now()
	query := scamTerms(entity)

	if t.cache != nil {
		if cached, ok := t.cache.Get(ctx, t.Name(), entity.NormalizedValue); ok {
			return models.ToolEvidence{
				ToolName:  t.Name(),
				Entity:    entity,
				Payload:   cached,
				Succeeded: true,
				LatencyMs: time.Since(started).Milliseconds(),
			}
		}
	}

	if t.limiter != nil && !t.limiter.Allow() {
		return failure(t.Name(), entity, "search rate limit exceeded", started)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	results, err := t.client.Search(ctx, query)
	if err != nil {
		return failure(t.Name(), entity, "web search failed: "+err.Error(), started)
	}

	payload := t.aggregate(query, results)
	ev := evidence(t.Name(), entity, payload, started)
	if t.cache != nil && ev.Succeeded {
		raw, _ := json.Marshal(payload)
		t.cache.Put(ctx, t.Name(), entity.NormalizedValue, raw, t.cacheTTL)
	}
	return ev
}

// aggregate 按来源域去重，每个域只保留得分最高的命中，可信站点加权。
func (t *WebSearch) aggregate(query string, results []SearchResult) models.WebSearchPayload {
	best := make(map[string]models.WebSearchHit)
	for _, r := range results {
		domain := sourceDomain(r.URL)
		if domain == "" {
			continue
		}
		hit := models.WebSearchHit{
			SourceDomain: domain,
			Title:        r.Title,
			Snippet:      r.Snippet,
			Score:        hitScore(r),
		}
		if _, ok := t.trusted[domain]; ok {
			hit.Trusted = true
			hit.Score *= 2
		}
		if prev, ok := best[domain]; !ok || hit.Score > prev.Score {
			best[domain] = hit
		}
	}

	payload := models.WebSearchPayload{Query: query, DistinctSource: len(best)}
	for _, hit := range best {
		payload.Hits = append(payload.Hits, hit)
	}
	sort.Slice(payload.Hits, func(i, j int) bool {
		if payload.Hits[i].Score != payload.Hits[j].Score {
			return payload.Hits[i].Score > payload.Hits[j].Score
		}
		return payload.Hits[i].SourceDomain < payload.Hits[j].SourceDomain
	})
	return payload
}

// scamKeywords 命中标题或摘要时为该结果加分。
var scamKeywords = []string{"scam", "fraud", "phishing", "complaint", "warning", "报警", "诈骗"}

// hitScore 给单条结果打基础分：标题/摘要里的欺诈相关词各计一次。
func hitScore(r SearchResult) float64 {
	text := strings.ToLower(r.Title + " " + r.Snippet)
	score := 1.0
	for _, kw := range scamKeywords {
		if strings.Contains(text, kw) {
			score += 2
		}
	}
	return score
}

// sourceDomain 从结果 URL 提取规范化的来源域。
func sourceDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}
