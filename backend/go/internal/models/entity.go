package models

// EntityKind 定义了可以从文本中提取出的实体类型。
type EntityKind string

const (
	EntityPhone   EntityKind = "phone"
	EntityURL     EntityKind = "url"
	EntityEmail   EntityKind = "email"
	EntityPayment EntityKind = "payment"
	EntityAmount  EntityKind = "amount"
	EntityCompany EntityKind = "company"
)

// ExtractedEntity 代表从一段自由文本中提取出的、已归一化的可调查对象。
//
// NormalizedValue 的形式由 Kind 决定：电话号码为国际标准格式（如 "+18005551234"），
// URL 为小写域名形式，公司名为去掉法律后缀的规范形式。归一化是确定且幂等的，
// 对同一输入重复归一化必须得到相同结果。
type ExtractedEntity struct {
	Kind            EntityKind        `json:"kind" bson:"kind"`
	RawText         string            `json:"raw_text" bson:"raw_text"`                 // 文本中匹配到的原始片段
	NormalizedValue string            `json:"normalized_value" bson:"normalized_value"` // 规范化后的值，用于路由与去重
	Attributes      map[string]string `json:"attributes,omitempty" bson:"attributes,omitempty"`
}

// Key 返回用于去重的 (kind, normalizedValue) 复合键。
func (e ExtractedEntity) Key() string {
	return string(e.Kind) + ":" + e.NormalizedValue
}

// Attr 读取一个属性值，属性不存在时返回空字符串。
func (e ExtractedEntity) Attr(name string) string {
	if e.Attributes == nil {
		return ""
	}
	return e.Attributes[name]
}
