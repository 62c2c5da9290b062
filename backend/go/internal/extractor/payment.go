package extractor

import (
	"ScamSentinel/backend/go/internal/models"
	"regexp"
	"strings"
)

var (
	btcPattern = regexp.MustCompile(`\b(?:bc1[a-z0-9]{25,59}|[13][a-km-zA-HJ-NP-Z1-9]{25,34})\b`)
	ethPattern = regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)

	// CashApp cashtag 和 Venmo 风格的转账句柄。
	cashtagPattern = regexp.MustCompile(`\$[A-Za-z][A-Za-z0-9_]{2,19}\b`)
	handleKeyword  = regexp.MustCompile(`(?i)\b(venmo|zelle|cash\s?app|paypal)\b[\s:]{0,3}@?([A-Za-z][A-Za-z0-9_.-]{2,29})`)

	// 关键词锚定的银行账号/路由号：关键词附近的 6-17 位数字串。
	bankKeyword = regexp.MustCompile(`(?i)\b(account|acct|routing|aba|iban|wire)\b[^\d]{0,20}(\d[\d\s-]{4,20}\d)`)
)

// extractPayments 做关键词锚定的支付标识提取：银行账号/路由号、
// 加密货币地址、支付应用句柄。每个实体都带匹配上下文属性以便审计。
func (x *Extractor) extractPayments(text string) []models.ExtractedEntity {
	var entities []models.ExtractedEntity

	for _, loc := range btcPattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		// 纯数字串会撞上电话号码，要求 base58 地址至少带一个字母。
		if !strings.ContainsAny(raw, "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ") {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityPayment,
			RawText:         raw,
			NormalizedValue: raw, // base58 区分大小写，原样保留
			Attributes: map[string]string{
				"scheme":  "crypto_btc",
				"context": contextAround(text, loc[0], loc[1], 40),
			},
		})
	}

	for _, loc := range ethPattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityPayment,
			RawText:         raw,
			NormalizedValue: strings.ToLower(raw),
			Attributes: map[string]string{
				"scheme":  "crypto_eth",
				"context": contextAround(text, loc[0], loc[1], 40),
			},
		})
	}

	for _, m := range bankKeyword.FindAllStringSubmatchIndex(text, -1) {
		keyword := strings.ToLower(text[m[2]:m[3]])
		number := nonDigit.ReplaceAllString(text[m[4]:m[5]], "")
		if len(number) < 6 || len(number) > 17 {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityPayment,
			RawText:         text[m[0]:m[1]],
			NormalizedValue: number,
			Attributes: map[string]string{
				"scheme":  "bank_" + keyword,
				"context": contextAround(text, m[0], m[1], 40),
			},
		})
	}

	for _, m := range handleKeyword.FindAllStringSubmatchIndex(text, -1) {
		app := strings.ToLower(strings.Join(strings.Fields(text[m[2]:m[3]]), ""))
		handle := strings.ToLower(text[m[4]:m[5]])
		if x.providerAllowed(handle) {
			continue
		}
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityPayment,
			RawText:         text[m[0]:m[1]],
			NormalizedValue: app + ":" + handle,
			Attributes: map[string]string{
				"scheme":  "app_handle",
				"context": contextAround(text, m[0], m[1], 40),
			},
		})
	}

	for _, loc := range cashtagPattern.FindAllStringIndex(text, -1) {
		raw := text[loc[0]:loc[1]]
		// "$500" 是金额不是 cashtag；模式已要求首字符为字母。
		entities = append(entities, models.ExtractedEntity{
			Kind:            models.EntityPayment,
			RawText:         raw,
			NormalizedValue: strings.ToLower(raw),
			Attributes: map[string]string{
				"scheme":  "cashtag",
				"context": contextAround(text, loc[0], loc[1], 40),
			},
		})
	}

	return entities
}
