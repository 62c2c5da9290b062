package progress

import (
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Publisher 把进度事件发布到按任务 ID 区分的频道上。
//
// 发布是 publish-and-forget：没有订阅者、订阅者掉线都不构成错误，
// 编排器的正确性不依赖任何监听方的存在。
type Publisher interface {
	// Publish 发布一条进度事件。违反单任务事件流约束的事件会被修正或丢弃。
	Publish(ctx context.Context, event models.ProgressEvent)
}

// Channel 返回任务进度的 pub/sub 频道名。
func Channel(taskID string) string {
	return "task:progress:" + taskID
}

// streamGuard 在发布侧强制单任务事件流的两条约束：
// 百分比单调不减；终态事件只发一次，之后同任务的一切事件都被丢弃。
type streamGuard struct {
	mu    sync.Mutex
	tasks map[string]*taskProgress
}

type taskProgress struct {
	lastPercent int
	terminal    bool
}

func newStreamGuard() *streamGuard {
	return &streamGuard{tasks: make(map[string]*taskProgress)}
}

// admit 判断事件是否可以发布，必要时就地修正：
// 百分比回退的事件被抬到此前的最高水位，终态事件固定为 100。
func (g *streamGuard) admit(event *models.ProgressEvent) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	state, ok := g.tasks[event.TaskID]
	if !ok {
		state = &taskProgress{}
		g.tasks[event.TaskID] = state
	}
	if state.terminal {
		return false
	}

	if event.Percent < state.lastPercent {
		event.Percent = state.lastPercent
	}
	if models.IsTerminalStep(event.Step) {
		event.Percent = 100
		state.terminal = true
	}
	state.lastPercent = event.Percent
	return true
}

func (g *streamGuard) forget(taskID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.tasks, taskID)
}

// RedisPublisher 是基于 Redis pub/sub 的 Publisher 实现。
type RedisPublisher struct {
	rdb    *redis.Client
	logger *logger.Logger
	guard  *streamGuard
}

// NewRedisPublisher creates a progress publisher backed by Redis pub/sub.
func NewRedisPublisher(rdb *redis.Client, log *logger.Logger) *RedisPublisher {
	return &RedisPublisher{rdb: rdb, logger: log, guard: newStreamGuard()}
}

// Publish 发布一条事件。Redis 不可达只记日志，绝不影响任务执行。
func (p *RedisPublisher) Publish(ctx context.Context, event models.ProgressEvent) {
	if !p.guard.admit(&event) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := p.rdb.Publish(ctx, Channel(event.TaskID), payload).Err(); err != nil && p.logger != nil {
		p.logger.WithError(models.ErrorInfo{Message: err.Error(), Type: "progress_error"}).
			Warn("progress publish failed")
	}
}

// Forget 释放任务的发布状态。任务终态持久化后由运行器调用。
func (p *RedisPublisher) Forget(taskID string) {
	p.guard.forget(taskID)
}

// MemoryPublisher 把事件记录在内存里，用于测试和本地开发。
// 它执行与 RedisPublisher 相同的事件流约束。
type MemoryPublisher struct {
	guard *streamGuard

	mu     sync.Mutex
	events map[string][]models.ProgressEvent
}

// NewMemoryPublisher creates an in-process progress publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{
		guard:  newStreamGuard(),
		events: make(map[string][]models.ProgressEvent),
	}
}

// Publish 记录一条通过约束检查的事件。
func (p *MemoryPublisher) Publish(ctx context.Context, event models.ProgressEvent) {
	if !p.guard.admit(&event) {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events[event.TaskID] = append(p.events[event.TaskID], event)
}

// Events 返回任务已发布事件的副本。
func (p *MemoryPublisher) Events(taskID string) []models.ProgressEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.ProgressEvent(nil), p.events[taskID]...)
}
