package runner

import (
	"ScamSentinel/backend/go/internal/investigation_service/store"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/orchestrator"
	"ScamSentinel/backend/go/internal/progress"
	"ScamSentinel/backend/go/internal/registry"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// Publisher 抽象了运行器需要的两个 Kafka 出口：任务重入队和结果发布。
type Publisher interface {
	Publish(ctx context.Context, key string, value interface{}) error
}

// Archiver 把终态任务归档到对象存储。
type Archiver interface {
	Archive(ctx context.Context, task *models.InvestigationTask) error
}

// Runner 拥有任务生命周期：状态迁移、任务级截止时间、心跳和
// 基础设施失败时的退避重试。适配器级失败不在这里处理，它们被
// 编排器的舱壁吸收。
type Runner struct {
	store       store.TaskStore
	orch        *orchestrator.Orchestrator
	progress    progress.Publisher
	results     Publisher // 结果主题
	tasks       Publisher // 任务主题（重试重入队）
	registry    registry.Store
	archiver    Archiver
	deadline    time.Duration
	heartbeat   time.Duration
	maxAttempts int
	backoffBase time.Duration
	logger      *logger.Logger
}

// Config bundles the runner's collaborators and tuning knobs.
type Config struct {
	Store           store.TaskStore
	Orchestrator    *orchestrator.Orchestrator
	Progress        progress.Publisher
	ResultPublisher Publisher
	TaskPublisher   Publisher
	Registry        registry.Store
	Archiver        Archiver
	DeadlineSeconds int
	HeartbeatSecs   int
	MaxAttempts     int
	Logger          *logger.Logger
}

// New creates a task runner.
func New(cfg Config) *Runner {
	r := &Runner{
		store:       cfg.Store,
		orch:        cfg.Orchestrator,
		progress:    cfg.Progress,
		results:     cfg.ResultPublisher,
		tasks:       cfg.TaskPublisher,
		registry:    cfg.Registry,
		archiver:    cfg.Archiver,
		deadline:    time.Duration(cfg.DeadlineSeconds) * time.Second,
		heartbeat:   time.Duration(cfg.HeartbeatSecs) * time.Second,
		maxAttempts: cfg.MaxAttempts,
		backoffBase: time.Second,
		logger:      cfg.Logger,
	}
	if r.deadline <= 0 {
		r.deadline = 60 * time.Second
	}
	if r.heartbeat <= 0 {
		r.heartbeat = 15 * time.Second
	}
	if r.maxAttempts <= 0 {
		r.maxAttempts = 3
	}
	return r
}

// Handle 处理一条任务消息，是消费循环的回调。
func (r *Runner) Handle(ctx context.Context, msg kafka.Message) error {
	var envelope models.InvestigationTask
	if err := json.Unmarshal(msg.Value, &envelope); err != nil {
		return fmt.Errorf("malformed task message: %w", err)
	}

	// 以存储为准重新加载：消息只是入队信封，状态可能已经变化。
	task, err := r.store.GetByID(ctx, envelope.ID)
	if err != nil {
		return r.retryOrFail(ctx, &envelope, fmt.Errorf("failed to load task: %w", err))
	}
	if task == nil {
		if r.logger != nil {
			r.logger.WithPayload(map[string]interface{}{"taskID": envelope.ID}).Warn("Received unknown task ID")
		}
		return nil
	}
	if task.Status.IsTerminal() {
		// 消息重投：任务已经完成，终态不可变。
		return nil
	}

	return r.run(ctx, task)
}

// run 执行一次调查尝试并负责全部终态收尾。
func (r *Runner) run(ctx context.Context, task *models.InvestigationTask) error {
	log := logger.New("worker_service", task.ID, task.SessionID)

	task.Status = models.TaskStatusRunning
	task.Attempt++
	if err := r.store.Update(ctx, task); err != nil {
		return r.retryOrFail(ctx, task, fmt.Errorf("failed to mark task running: %w", err))
	}

	// 任务级硬截止时间独立于所有单项超时。
	taskCtx, cancel := context.WithTimeout(ctx, r.deadline)
	defer cancel()

	stopHeartbeat := r.startHeartbeat(taskCtx, task.ID)
	outcome := r.orch.Investigate(taskCtx, task)
	stopHeartbeat()

	task.Entities = outcome.Entities
	task.Evidence = outcome.Evidence
	task.Verdict = outcome.Verdict
	task.CompletedAt = time.Now()

	step := models.StepCompleted
	if outcome.TimedOut {
		task.Status = models.TaskStatusTimedOut
		step = models.StepTimedOut
	} else {
		task.Status = models.TaskStatusSuccess
	}

	if err := r.store.Update(ctx, task); err != nil {
		// 结果算出来了但持久化失败：按基础设施失败走重试。
		task.Status = models.TaskStatusRunning
		return r.retryOrFail(ctx, task, fmt.Errorf("failed to persist result: %w", err))
	}

	r.publishTerminal(ctx, task.ID, step)
	r.finalize(ctx, task, log)
	return nil
}

// startHeartbeat 周期性发布心跳事件，长时间运行的扇出阶段也能让
// 订阅者确认任务还活着。返回的函数停止心跳。
func (r *Runner) startHeartbeat(ctx context.Context, taskID string) func() {
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(r.heartbeat)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				// 百分比 0 会被发布守卫抬到当前水位。
				r.progress.Publish(ctx, models.ProgressEvent{
					TaskID:  taskID,
					Step:    models.StepHeartbeat,
					Message: "investigation in progress",
				})
			}
		}
	}()
	var once bool
	return func() {
		if !once {
			once = true
			close(done)
		}
	}
}

// publishTerminal 发布任务的终态进度事件并释放发布状态。
func (r *Runner) publishTerminal(ctx context.Context, taskID, step string) {
	r.progress.Publish(ctx, models.ProgressEvent{
		TaskID:  taskID,
		Step:    step,
		Message: "investigation " + step,
		Percent: 100,
	})
	if forgetter, ok := r.progress.(interface{ Forget(string) }); ok {
		forgetter.Forget(taskID)
	}
}

// finalize 执行终态后的旁路动作：高风险实体回写登记库、报告归档、
// 结果发布。全部尽力而为，失败只记日志。
func (r *Runner) finalize(ctx context.Context, task *models.InvestigationTask, log *logger.Logger) {
	if r.registry != nil && task.Verdict != nil && task.Verdict.RiskLevel == models.RiskHigh {
		for _, entity := range task.Entities {
			if entity.Kind == models.EntityAmount {
				continue
			}
			if err := r.registry.Record(ctx, entity.Kind, entity.NormalizedValue, task.ID); err != nil && log != nil {
				log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("failed to record entity in scam registry")
			}
		}
	}

	if r.archiver != nil {
		// Archive 自己记日志。
		_ = r.archiver.Archive(ctx, task)
	}

	if r.results != nil {
		if err := r.results.Publish(ctx, task.ID, task); err != nil && log != nil {
			log.WithError(models.ErrorInfo{Message: err.Error()}).Warn("failed to publish investigation result")
		}
	}
}

// retryOrFail 处理基础设施失败：还有尝试次数就退避后重新入队，
// 否则把任务标记为 Failed。
func (r *Runner) retryOrFail(ctx context.Context, task *models.InvestigationTask, cause error) error {
	if r.logger != nil {
		r.logger.WithError(models.ErrorInfo{Message: cause.Error(), Type: "infra_error"}).
			WithPayload(map[string]interface{}{"taskID": task.ID, "attempt": task.Attempt}).
			Error("infrastructure failure during task execution")
	}

	if task.Attempt < r.maxAttempts && r.tasks != nil {
		// 指数退避：1s、2s、4s……
		backoff := r.backoffBase << (task.Attempt - 1)
		if task.Attempt <= 0 {
			backoff = r.backoffBase
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := r.tasks.Publish(ctx, task.ID, task); err == nil {
			return nil
		}
		// 重新入队也失败了，落到终态 Failed。
	}

	task.Status = models.TaskStatusFailed
	task.Error = cause.Error()
	task.CompletedAt = time.Now()
	if err := r.store.Update(ctx, task); err != nil && r.logger != nil {
		r.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("failed to mark task failed")
	}
	r.publishTerminal(ctx, task.ID, models.StepFailed)
	if r.results != nil {
		_ = r.results.Publish(ctx, task.ID, task)
	}
	return cause
}
