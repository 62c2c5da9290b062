package extractor

import (
	"ScamSentinel/backend/go/internal/models"
	"regexp"
	"strings"
)

var (
	// 普通号码候选：可带国家码、括号、分隔符的 8-20 位序列。
	phonePattern = regexp.MustCompile(`(?:\+?\d{1,3}[-.\s]?)?(?:\(\d{2,4}\)[-.\s]?)?\d{2,4}(?:[-.\s]?\d{2,4}){1,4}`)

	// vanity 号码：1-800 类前缀后跟含字母的拨号串，例如 1-800-FLOWERS。
	vanityPattern = regexp.MustCompile(`(?i)\b1[-.\s]?8(?:00|33|44|55|66|77|88)[-.\s]?[A-Z0-9][-A-Z0-9.]{2,12}[A-Z0-9]\b`)

	nonDigit = regexp.MustCompile(`\D`)
)

// vanityDigits 按电话键盘将字母映射为数字。
var vanityDigits = map[rune]rune{
	'A': '2', 'B': '2', 'C': '2',
	'D': '3', 'E': '3', 'F': '3',
	'G': '4', 'H': '4', 'I': '4',
	'J': '5', 'K': '5', 'L': '5',
	'M': '6', 'N': '6', 'O': '6',
	'P': '7', 'Q': '7', 'R': '7', 'S': '7',
	'T': '8', 'U': '8', 'V': '8',
	'W': '9', 'X': '9', 'Y': '9', 'Z': '9',
}

// extractPhones 检测文本中的电话号码并归一化为国际格式。
// 无法通过合法性检查（位数、前缀）的候选会被丢弃；vanity 号码
// 作为未验证的子类保留，带 vanity=true 属性。
func (x *Extractor) extractPhones(text string) []models.ExtractedEntity {
	var entities []models.ExtractedEntity

	vanitySpans := make([][]int, 0)
	for _, loc := range vanityPattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		if !containsVanityLetters(raw) {
			continue
		}
		vanitySpans = append(vanitySpans, loc)
		normalized := normalizeVanity(raw)
		if normalized == "" {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityPhone,
			RawText:         raw,
			NormalizedValue: normalized,
			Attributes:      map[string]string{"vanity": "true"},
		})
	}

	for _, loc := range phonePattern.FindAllStringIndex(text, -1) {
		if overlapsAny(loc, vanitySpans) {
			continue
		}
		raw := text[loc[0]:loc[1]]
		normalized, country, ok := normalizePhone(raw)
		if !ok {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityPhone,
			RawText:         strings.TrimSpace(raw),
			NormalizedValue: normalized,
			Attributes:      map[string]string{"country": country},
		})
	}
	return entities
}

// normalizePhone 将一个号码候选归一化为 E.164 风格的国际格式。
// 返回 ok=false 表示该候选未通过合法性检查。
func normalizePhone(raw string) (normalized, country string, ok bool) {
	trimmed := strings.TrimSpace(raw)
	hasPlus := strings.HasPrefix(trimmed, "+")
	digits := nonDigit.ReplaceAllString(trimmed, "")

	switch {
	case hasPlus:
		// 明确的国际格式：总长 8-15 位。
		if len(digits) < 8 || len(digits) > 15 {
			return "", "", false
		}
		if digits[0] == '0' {
			return "", "", false // 国家码不能以 0 开头
		}
		country = "intl"
		if strings.HasPrefix(digits, "1") && len(digits) == 11 {
			country = "US"
		}
		return "+" + digits, country, true
	case len(digits) == 11 && digits[0] == '1':
		// 带长途前缀的北美号码。
		return "+" + digits, "US", true
	case len(digits) == 10:
		// 裸北美号码：区号不允许以 0/1 开头。
		if digits[0] == '0' || digits[0] == '1' {
			return "", "", false
		}
		return "+1" + digits, "US", true
	default:
		return "", "", false
	}
}

// normalizeVanity 将 vanity 号码按键盘映射转为纯数字形式。
// vanity 子类不做位数合法性检查。
func normalizeVanity(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			b.WriteRune(vanityDigits[r])
		}
	}
	if b.Len() < 8 {
		return ""
	}
	return "+" + b.String()
}

func containsVanityLetters(s string) bool {
	letters := 0
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			letters++
			if letters >= 3 {
				return true
			}
		} else if r >= '0' && r <= '9' {
			letters = 0
		}
	}
	return false
}

func overlapsAny(loc []int, spans [][]int) bool {
	for _, s := range spans {
		if loc[0] < s[1] && s[0] < loc[1] {
			return true
		}
	}
	return false
}
