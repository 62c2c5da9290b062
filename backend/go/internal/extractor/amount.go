package extractor

import (
	"ScamSentinel/backend/go/internal/models"
	"regexp"
	"strings"
)

var (
	symbolAmount  = regexp.MustCompile(`([$€£¥])\s?(\d[\d,]*(?:\.\d{1,2})?)`)
	writtenAmount = regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d{1,2})?)\s?(dollars?|usd|euros?|eur|pounds?|gbp|yen|jpy|yuan|rmb|cny)\b`)
)

var symbolCurrency = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
}

var wordCurrency = map[string]string{
	"dollar": "USD", "dollars": "USD", "usd": "USD",
	"euro": "EUR", "euros": "EUR", "eur": "EUR",
	"pound": "GBP", "pounds": "GBP", "gbp": "GBP",
	"yen": "JPY", "jpy": "JPY",
	"yuan": "CNY", "rmb": "CNY", "cny": "CNY",
}

// extractAmounts 检测货币符号与货币单词两种写法的金额，
// 归一化为 "<ISO>:<数值>" 形式并带 amount/currency 属性。
func (x *Extractor) extractAmounts(text string) []models.ExtractedEntity {
	var entities []models.ExtractedEntity

	for _, m := range symbolAmount.FindAllStringSubmatch(text, -1) {
		currency := symbolCurrency[m[1]]
		amount := normalizeAmountValue(m[2])
		if amount == "" {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityAmount,
			RawText:         m[0],
			NormalizedValue: currency + ":" + amount,
			Attributes:      map[string]string{"amount": amount, "currency": currency},
		})
	}

	for _, m := range writtenAmount.FindAllStringSubmatch(text, -1) {
		currency := wordCurrency[strings.ToLower(m[2])]
		if currency == "" {
			continue
		}
		amount := normalizeAmountValue(m[1])
		if amount == "" {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityAmount,
			RawText:         m[0],
			NormalizedValue: currency + ":" + amount,
			Attributes:      map[string]string{"amount": amount, "currency": currency},
		})
	}

	return entities
}

// normalizeAmountValue 去掉千位分隔符并补全小数形式，结果可直接按十进制解析。
func normalizeAmountValue(s string) string {
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || s == "." {
		return ""
	}
	if !strings.Contains(s, ".") {
		s += ".00"
	}
	return s
}
