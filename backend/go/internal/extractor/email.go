package extractor

import (
	"ScamSentinel/backend/go/internal/models"
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`(?i)\b[a-z0-9._%+-]+@[a-z0-9.-]+\.[a-z]{2,}\b`)

	// "john at example dot com" 一类的规避拼写。
	atEvasion = regexp.MustCompile(`(?i)\s*(?:\[at\]|\(at\)|\{at\}|\sat\s)\s*`)
)

// extractEmails 检测标准与去伪装两种写法的邮箱地址，并做结构校验：
// 恰好一个 '@'，且域名部分包含点。白名单服务商的地址被抑制。
func (x *Extractor) extractEmails(text string) []models.ExtractedEntity {
	// 先在原文上匹配标准写法，再在还原后的文本上补充匹配伪装写法。
	candidates := emailPattern.FindAllString(text, -1)
	deobfuscated := deobfuscateEmailText(text)
	if deobfuscated != text {
		candidates = append(candidates, emailPattern.FindAllString(deobfuscated, -1)...)
	}

	var entities []models.ExtractedEntity
	for _, raw := range candidates {
		normalized, ok := normalizeEmail(raw)
		if !ok {
			continue
		}
		domain := normalized[strings.Index(normalized, "@")+1:]
		if x.providerAllowed(domain) || x.domainAllowed(domain) {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityEmail,
			RawText:         raw,
			NormalizedValue: normalized,
			Attributes:      map[string]string{"domain": domain},
		})
	}
	return entities
}

// deobfuscateEmailText 将 "at/dot" 拼写还原为标准地址形式。
func deobfuscateEmailText(text string) string {
	out := atEvasion.ReplaceAllString(text, "@")
	out = dotEvasion.ReplaceAllString(out, ".")
	out = spacedDotWords.ReplaceAllString(out, "$1.$2")
	return out
}

// normalizeEmail 做小写归一化与结构校验。
func normalizeEmail(raw string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.Trim(s, ".,;:")
	if strings.Count(s, "@") != 1 {
		return "", false
	}
	parts := strings.SplitN(s, "@", 2)
	local, domain := parts[0], parts[1]
	if local == "" || domain == "" || !strings.Contains(domain, ".") {
		return "", false
	}
	if strings.HasPrefix(domain, ".") || strings.HasSuffix(domain, ".") {
		return "", false
	}
	return s, true
}
