package orchestrator

import (
	"ScamSentinel/backend/go/internal/extractor"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/progress"
	"ScamSentinel/backend/go/internal/reasoner"
	"ScamSentinel/backend/go/internal/tools"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"fmt"
	"sort"
	"sync"
)

// routingTable 定义每种实体类型要调用的工具。
// 金额实体只作为上下文参与推理，不触发任何工具调用。
var routingTable = map[models.EntityKind][]string{
	models.EntityPhone:   {models.ToolRegistryLookup, models.ToolPhoneValidator, models.ToolWebSearch},
	models.EntityURL:     {models.ToolRegistryLookup, models.ToolDomainReputation, models.ToolWebSearch},
	models.EntityEmail:   {models.ToolRegistryLookup, models.ToolWebSearch},
	models.EntityCompany: {models.ToolCompanyVerifier, models.ToolRegistryLookup},
	models.EntityPayment: {models.ToolRegistryLookup},
}

// Outcome 是一次调查执行的完整产出。
// TimedOut 表示执行因任务级截止时间被截断，Verdict 为基于已收集证据的
// 尽力而为结论。
type Outcome struct {
	Entities []models.ExtractedEntity
	Evidence []models.ToolEvidence
	Verdict  *models.Verdict
	TimedOut bool
}

// Orchestrator 串起一次调查的全部阶段：实体提取、工具并发分发、
// 证据聚合、推理和进度发布。
//
// 工具故障被舱壁隔离在各自的证据记录里，永远不会让整个调查失败；
// 只有任务级截止时间可以截断执行。
type Orchestrator struct {
	extractor       *extractor.Extractor
	toolset         map[string]tools.Tool
	reasoner        *reasoner.Reasoner
	publisher       progress.Publisher
	concurrency     int
	webSearchBudget int
	logger          *logger.Logger
}

// New 组装编排器。toolset 按工具名索引，路由表里引用了但未注册的工具
// 会被静默跳过，方便在测试和降级部署中裁剪工具面。
func New(x *extractor.Extractor, toolset []tools.Tool, r *reasoner.Reasoner, pub progress.Publisher, concurrency, webSearchBudget int, log *logger.Logger) *Orchestrator {
	byName := make(map[string]tools.Tool, len(toolset))
	for _, t := range toolset {
		byName[t.Name()] = t
	}
	if concurrency <= 0 {
		concurrency = 8
	}
	return &Orchestrator{
		extractor:       x,
		toolset:         byName,
		reasoner:        r,
		publisher:       pub,
		concurrency:     concurrency,
		webSearchBudget: webSearchBudget,
		logger:          log,
	}
}

// toolCall 是一次待执行的 (tool, entity) 调用。
type toolCall struct {
	tool   tools.Tool
	entity models.ExtractedEntity
}

// Investigate 执行一次完整调查。ctx 携带任务级截止时间；截止后不再等待
// 未返回的工具调用（它们可能仍会完成并填充缓存，但结果不计入本任务）。
func (o *Orchestrator) Investigate(ctx context.Context, task *models.InvestigationTask) Outcome {
	log := o.taskLogger(task)

	o.publish(ctx, task.ID, models.StepExtracting, "extracting entities from text", 5)
	entities := o.extractor.Extract(task.Text)

	outcome := Outcome{Entities: entities}
	if len(entities) == 0 {
		// 无可调查对象：廉价出口，不做任何工具调用。
		outcome.Verdict = models.MinimalVerdict()
		return outcome
	}
	if log != nil {
		log.WithPayload(map[string]interface{}{"entity_count": len(entities)}).Info("entity extraction complete")
	}

	calls := o.plan(entities)
	o.publish(ctx, task.ID, models.StepInvestigating,
		fmt.Sprintf("dispatching %d verification calls for %d entities", len(calls), len(entities)), 10)

	evidence, timedOut := o.fanOut(ctx, task.ID, calls)
	outcome.Evidence = evidence
	outcome.TimedOut = timedOut

	if timedOut {
		// 截止时间已过：对已有证据出尽力而为的结论，不再走模型路径。
		outcome.Verdict = o.reasoner.HeuristicVerdict(evidence)
		return outcome
	}

	o.publish(ctx, task.ID, models.StepReasoning, "weighing evidence", 85)
	outcome.Verdict = o.reasoner.Verdict(ctx, evidence)
	return outcome
}

// plan 把实体集展开成去重后的调用列表。
// 同一 (tool, normalizedValue) 在单个任务内至多调用一次，去重发生在
// 分发之前而不是之后；搜索调用另受单任务预算约束。
func (o *Orchestrator) plan(entities []models.ExtractedEntity) []toolCall {
	var calls []toolCall
	seen := make(map[string]struct{})
	webCalls := 0

	for _, entity := range entities {
		for _, toolName := range routingTable[entity.Kind] {
			tool, registered := o.toolset[toolName]
			if !registered {
				continue
			}
			key := toolName + "|" + entity.NormalizedValue
			if _, dup := seen[key]; dup {
				continue
			}
			if toolName == models.ToolWebSearch {
				if o.webSearchBudget > 0 && webCalls >= o.webSearchBudget {
					continue
				}
				webCalls++
			}
			seen[key] = struct{}{}
			calls = append(calls, toolCall{tool: tool, entity: entity})
		}
	}
	return calls
}

// fanOut 以有界并发执行全部调用并在截止时间内收齐结果。
// 返回的 timedOut 为 true 时，evidence 只包含截止前已落定的调用。
func (o *Orchestrator) fanOut(ctx context.Context, taskID string, calls []toolCall) ([]models.ToolEvidence, bool) {
	if len(calls) == 0 {
		return nil, false
	}

	// 结果通道按调用数满额缓冲：截止后迟到的结果不会卡住发送方 goroutine。
	results := make(chan models.ToolEvidence, len(calls))
	sem := make(chan struct{}, o.concurrency)

	var wg sync.WaitGroup
	for _, call := range calls {
		wg.Add(1)
		go func(call toolCall) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results <- models.ToolEvidence{
					ToolName:     call.tool.Name(),
					Entity:       call.entity,
					Succeeded:    false,
					ErrorMessage: "task deadline exceeded before dispatch",
				}
				return
			}
			results <- call.tool.Invoke(ctx, call.entity)
		}(call)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	var evidence []models.ToolEvidence
	settled := 0
	timedOut := false

collect:
	for settled < len(calls) {
		select {
		case ev, ok := <-results:
			if !ok {
				break collect
			}
			settled++
			evidence = append(evidence, ev)
			// 进度在 10% 到 80% 之间随落定的调用数线性推进。
			percent := 10 + (70*settled)/len(calls)
			o.publish(ctx, taskID, models.StepInvestigating,
				fmt.Sprintf("%d/%d verification calls settled", settled, len(calls)), percent)
		case <-ctx.Done():
			timedOut = true
			break collect
		}
	}

	// select 在两个就绪分支间随机选择：截止时间已过但结果都已在缓冲区时，
	// 收集循环可能把结果全部读完而从未命中 ctx.Done 分支。这里补一次检查，
	// 截止后落定的运行一律按超时归类。
	if ctx.Err() != nil {
		timedOut = true
	}

	// 证据顺序与调度交错无关，按键排序保证下游行为可复现。
	sort.Slice(evidence, func(i, j int) bool { return evidence[i].Key() < evidence[j].Key() })
	return evidence, timedOut
}

func (o *Orchestrator) publish(ctx context.Context, taskID, step, message string, percent int) {
	if o.publisher == nil {
		return
	}
	o.publisher.Publish(ctx, models.ProgressEvent{
		TaskID:  taskID,
		Step:    step,
		Message: message,
		Percent: percent,
	})
}

func (o *Orchestrator) taskLogger(task *models.InvestigationTask) *logger.Logger {
	if o.logger == nil {
		return nil
	}
	return logger.New("orchestrator", task.ID, task.SessionID)
}
