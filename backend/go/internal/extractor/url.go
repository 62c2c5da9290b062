package extractor

import (
	"ScamSentinel/backend/go/internal/models"
	"regexp"
	"strings"
)

var (
	// 协议限定或裸域名形式的 URL 候选。
	urlPattern = regexp.MustCompile(`(?i)\b(?:https?://)?(?:www\.)?[a-z0-9][a-z0-9-]{0,62}(?:\.[a-z0-9-]{1,63})+(?:/[^\s<>"']*)?`)

	// 常见的规避写法："hxxp"、"[.]"、"(.)"、"(dot)"、" dot "。
	hxxpPattern    = regexp.MustCompile(`(?i)hxxps?`)
	dotEvasion     = regexp.MustCompile(`(?i)\s*(?:\[\.\]|\(\.\)|\[dot\]|\(dot\)|\{dot\})\s*`)
	spacedDotWords = regexp.MustCompile(`(?i)(\w)\s+dot\s+(\w)`)
)

// tldAllow 过滤掉 "file.pdf" 一类的误匹配：最后一段必须像真实 TLD。
var tldAllow = regexp.MustCompile(`(?i)\.(?:com|net|org|io|co|info|biz|xyz|top|site|online|shop|app|dev|me|us|uk|ca|au|de|fr|cn|ru|in|br|link|click|live|vip|icu|cc|tv|ly|gl|gd)(?:/|$)`)

// deobfuscateURLText 还原文本中针对链接检测的常见伪装写法。
func deobfuscateURLText(text string) string {
	out := hxxpPattern.ReplaceAllStringFunc(text, func(m string) string {
		if strings.HasSuffix(strings.ToLower(m), "s") {
			return "https"
		}
		return "http"
	})
	out = dotEvasion.ReplaceAllString(out, ".")
	out = spacedDotWords.ReplaceAllString(out, "$1.$2")
	return out
}

// extractURLs 检测协议限定与裸域名两种形式的链接，抽取归一化域名，
// 并标记已知的短链服务。白名单域名直接被抑制。
func (x *Extractor) extractURLs(text string) []models.ExtractedEntity {
	deobfuscated := deobfuscateURLText(text)

	var entities []models.ExtractedEntity
	for _, raw := range urlPattern.FindAllString(deobfuscated, -1) {
		domain := normalizeDomain(raw)
		if domain == "" {
			continue
		}
		// 裸词 + 点结尾的句子会产生 "word.Sentence" 类噪声，用 TLD 白名单过滤。
		if !tldAllow.MatchString(domain + "/") {
			continue
		}
		if x.domainAllowed(domain) {
			continue
		}

		attrs := map[string]string{"domain": domain}
		if _, short := x.shorteners[domain]; short {
			attrs["shortener"] = "true"
		}
		if !strings.EqualFold(raw, strings.TrimSpace(raw)) {
			raw = strings.TrimSpace(raw)
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityURL,
			RawText:         raw,
			NormalizedValue: domain,
			Attributes:      attrs,
		})
	}
	return entities
}

// normalizeDomain 从一个 URL 候选中提取小写、去 www 的域名。
// 归一化是幂等的：对已归一化的域名再次调用返回同一结果。
func normalizeDomain(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	if idx := strings.IndexAny(s, "/?#"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimPrefix(s, "www.")
	s = strings.Trim(s, ".")
	if !strings.Contains(s, ".") {
		return ""
	}
	return s
}
