package tools

import (
	"ScamSentinel/backend/go/internal/models"
	httpclient "ScamSentinel/backend/go/pkg/http"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"
)

// ReputationSource 抽象了域名信誉的单项子检查。
// HTTP 实现之外，测试用假实现注入。
type ReputationSource interface {
	// Check 执行一项具名子检查（registration_age / certificate / malware_flags / blocklist）。
	Check(ctx context.Context, check, domain string) (score float64, detail string, err error)
}

// HTTPReputationSource queries the configured reputation service over HTTP.
type HTTPReputationSource struct {
	client   *httpclient.Client
	endpoint string
}

// NewHTTPReputationSource creates a reputation source backed by an HTTP service.
func NewHTTPReputationSource(client *httpclient.Client, endpoint string) *HTTPReputationSource {
	return &HTTPReputationSource{client: client, endpoint: endpoint}
}

// Check calls GET <endpoint>?check=<check>&domain=<domain> and expects
// a JSON body {"score": float, "detail": string}.
func (s *HTTPReputationSource) Check(ctx context.Context, check, domain string) (float64, string, error) {
	u := fmt.Sprintf("%s?check=%s&domain=%s", s.endpoint, url.QueryEscape(check), url.QueryEscape(domain))
	var out struct {
		Score  float64 `json:"score"`
		Detail string  `json:"detail"`
	}
	if err := s.client.GetJSON(ctx, u, &out); err != nil {
		return 0, "", err
	}
	return out.Score, out.Detail, nil
}

// reputationChecks 列出全部子检查及其在合成分中的权重。
var reputationChecks = []struct {
	name   string
	weight float64
}{
	{"registration_age", 0.2},
	{"certificate", 0.15},
	{"malware_flags", 0.4},
	{"blocklist", 0.25},
}

// DomainReputation 对一个域名并行运行全部信誉子检查并加权合成。
// 任何一项子检查失败都只按零分计入，不会让整个适配器失败。
type DomainReputation struct {
	source   ReputationSource
	cache    *ResultCache
	cacheTTL time.Duration
	timeout  time.Duration
}

// NewDomainReputation creates the domain reputation adapter.
func NewDomainReputation(source ReputationSource, cache *ResultCache, cacheTTL, timeout time.Duration) *DomainReputation {
	return &DomainReputation{source: source, cache: cache, cacheTTL: cacheTTL, timeout: timeout}
}

// Name returns the stable tool name.
func (t *DomainReputation) Name() string { return models.ToolDomainReputation }

// Invoke 并行执行全部子检查，缺失的信号按零分参与加权。
func (t *DomainReputation) Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence {
	started := time.Now()
	domain := entity.NormalizedValue

	if t.cache != nil {
		if cached, ok := t.cache.Get(ctx, t.Name(), domain); ok {
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

	signals := make([]models.ReputationSignal, len(reputationChecks))
	var wg sync.WaitGroup
	for i, check := range reputationChecks {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			score, detail, err := t.source.Check(ctx, name, domain)
			if err != nil {
				// 缺失的信号贡献零分，而不是让整个适配器报错。
				signals[i] = models.ReputationSignal{Name: name, Available: false, Detail: err.Error()}
				return
			}
			signals[i] = models.ReputationSignal{Name: name, Available: true, Score: score, Detail: detail}
		}(i, check.name)
	}
	wg.Wait()

	payload := models.ReputationPayload{Domain: domain, Signals: signals}
	available := false
	for i, check := range reputationChecks {
		if signals[i].Available {
			available = true
			payload.WeightedScore += signals[i].Score * check.weight
		}
	}
	if !available {
		// 四项全失败时没有任何可用信号，按适配器失败处理。
		return failure(t.Name(), entity, "all reputation sub-checks failed", started)
	}

	ev := evidence(t.Name(), entity, payload, started)
	if t.cache != nil && ev.Succeeded {
		raw, _ := json.Marshal(payload)
		t.cache.Put(ctx, t.Name(), domain, raw, t.cacheTTL)
	}
	return ev
}
