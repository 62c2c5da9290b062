package tools

import (
	"ScamSentinel/backend/go/internal/models"
	"context"
	"strings"
	"time"
)

// PhoneValidator 是完全离线的电话号码模式校验器。
// 除格式合法性外，它标记统计上几乎不会被真实用户持有的号码模式，
// 每个命中都带一个具名原因字符串。
type PhoneValidator struct{}

// NewPhoneValidator creates the offline phone pattern validator.
func NewPhoneValidator() *PhoneValidator { return &PhoneValidator{} }

// Name returns the stable tool name.
func (t *PhoneValidator) Name() string { return models.ToolPhoneValidator }

// 可疑模式的具名原因。兜底评分器按字符串匹配这些原因，保持稳定。
const (
	ReasonAllIdentical = "all identical digits"
	ReasonSequential   = "strictly sequential digits"
	ReasonRepeating    = "short repeating subsequence"
	ReasonPremiumRate  = "premium-rate number class"
	ReasonVanity       = "unvalidated vanity number"
)

// 北美高资费前缀。
var premiumPrefixes = []string{"+1900", "+1976"}

// Invoke 对号码做纯本地检查，永不失败。
func (t *PhoneValidator) Invoke(ctx context.Context, entity models.ExtractedEntity) models.ToolEvidence {
	started := time.Now()

	payload := models.PhonePatternPayload{Valid: true}

	digits := strings.TrimPrefix(entity.NormalizedValue, "+")
	national := nationalPart(digits)

	if entity.Attr("vanity") == "true" {
		payload.Reasons = append(payload.Reasons, ReasonVanity)
	}
	if allIdentical(national) {
		payload.Reasons = append(payload.Reasons, ReasonAllIdentical)
	}
	if sequentialDigits(national) {
		payload.Reasons = append(payload.Reasons, ReasonSequential)
	} else if repeatingSubsequence(national) && !allIdentical(national) {
		payload.Reasons = append(payload.Reasons, ReasonRepeating)
	}
	for _, prefix := range premiumPrefixes {
		if strings.HasPrefix(entity.NormalizedValue, prefix) {
			payload.Reasons = append(payload.Reasons, ReasonPremiumRate)
			break
		}
	}

	payload.Suspicious = len(payload.Reasons) > 0
	return evidence(t.Name(), entity, payload, started)
}

// nationalPart 去掉北美国家码，其余号码原样返回。
// 模式检查针对用户实际拨出的主体号码。
func nationalPart(digits string) string {
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		return digits[1:]
	}
	return digits
}

// allIdentical 判断主体号码去掉区号后是否全为同一数字，
// 例如 800-000-0000 的 "0000000"。
func allIdentical(digits string) bool {
	if len(digits) < 7 {
		return false
	}
	body := digits[len(digits)-7:]
	for i := 1; i < len(body); i++ {
		if body[i] != body[0] {
			return false
		}
	}
	return true
}

// sequentialDigits 判断主体号码是否为严格递增/递减序列（如 1234567、7654321）。
func sequentialDigits(digits string) bool {
	if len(digits) < 7 {
		return false
	}
	body := digits[len(digits)-7:]
	asc, desc := true, true
	for i := 1; i < len(body); i++ {
		diff := int(body[i]) - int(body[i-1])
		if diff != 1 {
			asc = false
		}
		if diff != -1 {
			desc = false
		}
	}
	return asc || desc
}

// repeatingSubsequence 检查主体号码是否由 2-3 位的短片段重复构成，
// 例如 5252525 或 123123123。
func repeatingSubsequence(digits string) bool {
	if len(digits) < 7 {
		return false
	}
	body := digits[len(digits)-7:]
	for period := 2; period <= 3; period++ {
		repeats := true
		for i := period; i < len(body); i++ {
			if body[i] != body[i-period] {
				repeats = false
				break
			}
		}
		if repeats {
			return true
		}
	}
	return false
}
