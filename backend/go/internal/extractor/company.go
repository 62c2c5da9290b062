package extractor

import (
	"ScamSentinel/backend/go/internal/models"
	"regexp"
	"strings"
)

var (
	// 以法律后缀收尾的大写词序列，如 "Acme Refund Services LLC"。
	companyPattern = regexp.MustCompile(`\b([A-Z][A-Za-z&'.-]*(?:\s+[A-Z][A-Za-z&'.-]*){0,4})[\s,]+(LLC|L\.L\.C\.|Inc\.?|Incorporated|Corp\.?|Corporation|Ltd\.?|Limited|GmbH|S\.A\.|Pty\.?\s?Ltd\.?|Co\.|PLC)(?:\b|$)`)

	// 常见法律后缀，归一化时剥离。
	legalSuffixes = []string{
		"l.l.c.", "llc", "incorporated", "inc.", "inc", "corporation", "corp.", "corp",
		"limited", "ltd.", "ltd", "gmbh", "s.a.", "pty ltd", "pty. ltd.", "co.", "plc",
	}
)

// extractCompanies 检测带法律后缀的公司名，并提取已知公司名在文本中的直接出现。
// 归一化形式为剥离后缀、压缩空白的小写名称。
func (x *Extractor) extractCompanies(text string) []models.ExtractedEntity {
	var entities []models.ExtractedEntity

	for _, m := range companyPattern.FindAllStringSubmatch(text, -1) {
		name := NormalizeCompanyName(m[1])
		if name == "" {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityCompany,
			RawText:         strings.TrimSpace(m[0]),
			NormalizedValue: name,
			Attributes: map[string]string{
				"suffix":     strings.ToLower(strings.TrimRight(m[2], ".")),
				"had_suffix": "true",
			},
		})
	}

	// 已知公司名单里的名称即便不带后缀出现也值得核验（仿冒风险）。
	lower := strings.ToLower(text)
	for _, known := range x.knownCompanies {
		canonical := NormalizeCompanyName(known)
		if canonical == "" {
			continue
		}
		if idx := strings.Index(lower, canonical); idx >= 0 {
			entities = append(entities, models.ExtractedEntity{
				Kind:            models.EntityCompany,
				RawText:         text[idx : idx+len(canonical)],
				NormalizedValue: canonical,
				Attributes:      map[string]string{"had_suffix": "false"},
			})
		}
	}

	return entities
}

// NormalizeCompanyName 将公司名归一化为剥离法律后缀的小写规范形式。
// 该函数也被公司核验工具用于国别后缀处理，必须保持幂等。
func NormalizeCompanyName(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = strings.Join(strings.Fields(s), " ")
	s = strings.Trim(s, ".,")
	for changed := true; changed; {
		changed = false
		for _, suffix := range legalSuffixes {
			if strings.HasSuffix(s, " "+suffix) {
				s = strings.TrimSpace(strings.TrimSuffix(s, " "+suffix))
				changed = true
			}
		}
	}
	return s
}
