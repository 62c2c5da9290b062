package reasoner

import (
	"ScamSentinel/backend/go/internal/config"
	"ScamSentinel/backend/go/internal/llm"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"time"
)

// Reasoner 把聚合证据转换为最终结论。
//
// 主路径是模型推理，失败（超时、调用出错、输出不过校验）时最多重试一次，
// 之后落到确定性兜底评分。Verdict 本身永不失败：无论外部条件如何，
// 调用方总能拿到一个结论。
type Reasoner struct {
	primary   *LLMReasoner
	heuristic *Heuristic
	logger    *logger.Logger
}

// New 组装推理器。llmClient 为 nil 时模型路径被禁用，只用兜底评分。
func New(llmClient llm.LLM, cfg config.InvestigationConfig, log *logger.Logger) *Reasoner {
	r := &Reasoner{
		heuristic: NewHeuristic(cfg.Heuristic),
		logger:    log,
	}
	if llmClient != nil {
		r.primary = NewLLMReasoner(llmClient, time.Duration(cfg.ReasonerTimeoutSecs)*time.Second)
	}
	return r
}

// Verdict 产出结论。模型路径最多尝试两次，之后无条件走兜底。
func (r *Reasoner) Verdict(ctx context.Context, evidence []models.ToolEvidence) *models.Verdict {
	if r.primary != nil {
		for attempt := 0; attempt < 2; attempt++ {
			if ctx.Err() != nil {
				break
			}
			verdict, err := r.primary.Verdict(ctx, evidence)
			if err == nil {
				return verdict
			}
			if r.logger != nil {
				r.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "reasoner_error"}).
					Warn("model reasoning attempt failed, may retry")
			}
		}
	}
	return r.heuristic.Verdict(evidence)
}

// HeuristicVerdict 绕过模型路径直接评分。
// 任务超时的收尾流程用它对已有证据做尽力而为的结论。
func (r *Reasoner) HeuristicVerdict(evidence []models.ToolEvidence) *models.Verdict {
	return r.heuristic.Verdict(evidence)
}
