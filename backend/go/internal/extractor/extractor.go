package extractor

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/models"
	"strings"
)

// Extractor 将非结构化文本转换为带类型、已归一化的实体集合。
// 它是纯函数式的：不做任何 I/O，对畸形输入返回空集合而不是错误。
type Extractor struct {
	allowDomains   map[string]struct{}
	allowProviders map[string]struct{}
	shorteners     map[string]struct{}
	knownCompanies []string
}

// New creates an Extractor with the allow-lists taken from configuration.
// The lists are policy, not logic: deployments override them without code changes.
func New(cfg config.InvestigationConfig) *Extractor {
	x := &Extractor{
		allowDomains:   make(map[string]struct{}),
		allowProviders: make(map[string]struct{}),
		shorteners:     make(map[string]struct{}),
		knownCompanies: cfg.KnownCompanies,
	}
	for _, d := range cfg.AllowedDomains {
		x.allowDomains[strings.ToLower(d)] = struct{}{}
	}
	for _, p := range cfg.AllowedProviders {
		x.allowProviders[strings.ToLower(p)] = struct{}{}
	}
	shorteners := cfg.ShortenerDomains
	if len(shorteners) == 0 {
		shorteners = defaultShorteners
	}
	for _, s := range shorteners {
		x.shorteners[strings.ToLower(s)] = struct{}{}
	}
	return x
}

// defaultShorteners 是配置未覆盖时使用的常见短链服务域名。
var defaultShorteners = []string{
	"bit.ly", "tinyurl.com", "t.co", "goo.gl", "is.gd", "ow.ly", "rb.gy", "cutt.ly",
}

// Extract runs every kind-specific detector over the text and returns the
// de-duplicated entity set. It never fails: empty or garbage input yields an
// empty slice.
func (x *Extractor) Extract(text string) []models.ExtractedEntity {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var all []models.ExtractedEntity
	all = append(all, x.extractURLs(text)...)
	all = append(all, x.extractEmails(text)...)
	all = append(all, x.extractPhones(text)...)
	all = append(all, x.extractPayments(text)...)
	all = append(all, x.extractAmounts(text)...)
	all = append(all, x.extractCompanies(text)...)

	// 同一 (kind, normalizedValue) 只保留首个匹配。
	seen := make(map[string]struct{}, len(all))
	result := make([]models.ExtractedEntity, 0, len(all))
	for _, e := range all {
		if e.NormalizedValue == "" {
			continue
		}
		key := e.Key()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, e)
	}
	return result
}

// domainAllowed 判断一个域名是否在非可疑白名单内（含上级域匹配）。
func (x *Extractor) domainAllowed(domain string) bool {
	domain = strings.ToLower(domain)
	if _, ok := x.allowDomains[domain]; ok {
		return true
	}
	// "mail.example.com" 匹配白名单中的 "example.com"。
	for {
		idx := strings.Index(domain, ".")
		if idx < 0 {
			return false
		}
		domain = domain[idx+1:]
		if _, ok := x.allowDomains[domain]; ok {
			return true
		}
	}
}

// providerAllowed 判断邮箱/支付服务商域名是否在白名单内。
func (x *Extractor) providerAllowed(domain string) bool {
	_, ok := x.allowProviders[strings.ToLower(domain)]
	return ok
}

// contextAround 返回匹配位置前后各 n 个字符的上下文，用于证据审计。
func contextAround(text string, start, end, n int) string {
	from := start - n
	if from < 0 {
		from = 0
	}
	to := end + n
	if to > len(text) {
		to = len(text)
	}
	return strings.TrimSpace(text[from:to])
}
