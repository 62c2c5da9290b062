package llm

import (
	"ScamSentinel/backend/go/internal/config"
	"context"
	"fmt"
)

// LLM 定义了所有大型语言模型客户端必须实现的通用接口。
// 调查引擎只依赖结构化 JSON 生成这一种能力。
type LLM interface {
	// GenerateJSON 发送系统提示词与用户提示词，要求模型以 JSON 对象回复，
	// 返回原始回复文本。回复是否满足约定的结构由调用方校验。
	GenerateJSON(ctx context.Context, system, prompt string) (string, error)
	// Close 释放底层客户端资源。
	Close() error
}

// NewClient 是一个工厂函数，根据提供的配置创建并返回一个实现了 LLM 接口的客户端。
// Provider 留空表示禁用模型推理路径，调用方应只使用确定性兜底。
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLM, error) {
	switch cfg.Provider {
	case "gemini":
		return NewGemini(ctx, cfg.Gemini.Model, cfg.Gemini.APIKey)
	case "openai":
		return NewOpenAI(cfg.OpenAI.Model, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL)
	case "":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.Provider)
	}
}
