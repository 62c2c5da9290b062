package api

import (
	"ScamSentinel/backend/go/internal/investigation_service/service"
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/internal/progress"
	"ScamSentinel/backend/go/pkg/logger"
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

// API provides handlers for the investigation service.
type API struct {
	service  *service.InvestigationService
	rdb      *redis.Client
	logger   *logger.Logger
	upgrader websocket.Upgrader
	health   map[string]func(context.Context) error
}

// NewAPI creates a new API handler. rdb is used for progress subscriptions;
// health maps dependency names to their health-check functions.
func NewAPI(svc *service.InvestigationService, rdb *redis.Client, logger *logger.Logger, health map[string]func(context.Context) error) *API {
	return &API{
		service: svc,
		rdb:     rdb,
		logger:  logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // In production, implement a proper origin check.
			},
		},
		health: health,
	}
}

// HealthHandler 逐个探测依赖的健康状况，任一失败即返回 503。
func (a *API) HealthHandler(c *gin.Context) {
	status := gin.H{}
	healthy := true
	for name, check := range a.health {
		if err := check(c.Request.Context()); err != nil {
			status[name] = err.Error()
			healthy = false
		} else {
			status[name] = "ok"
		}
	}
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, status)
		return
	}
	c.JSON(http.StatusOK, status)
}

// SubmitHandler handles the submission of a new investigation.
func (a *API) SubmitHandler(c *gin.Context) {
	sessionID := c.GetString("sessionID")

	var payload struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Warn("Invalid request payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload"})
		return
	}

	task, err := a.service.Submit(c.Request.Context(), sessionID, payload.Text)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to submit investigation"})
		return
	}

	// 廉价出口的任务提交即完成，连同结论一起返回。
	if task.Status.IsTerminal() {
		c.JSON(http.StatusOK, task)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{
		"task_id":          task.ID,
		"status":           task.Status,
		"progress_channel": "/ws/progress/" + task.ID,
		"estimated_time":   "5s-60s", // 上界即任务级硬截止时间
	})
}

// GetTaskHandler handles requests to get a single task by its ID.
func (a *API) GetTaskHandler(c *gin.Context) {
	sessionID := c.GetString("sessionID")
	taskID := c.Param("id")

	task, err := a.service.GetTaskByID(c.Request.Context(), taskID, sessionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}
	if task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found or not authorized"})
		return
	}

	c.JSON(http.StatusOK, task)
}

// GetTasksHandler handles requests to list the session's tasks.
func (a *API) GetTasksHandler(c *gin.Context) {
	sessionID := c.GetString("sessionID")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	tasks, err := a.service.GetSessionTasks(c.Request.Context(), sessionID, page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	c.JSON(http.StatusOK, tasks)
}

// ResultSocketHandler 升级 WebSocket 连接并把 worker 的结果推送给会话。
func (a *API) ResultSocketHandler(c *gin.Context) {
	sessionID := c.GetString("sessionID")

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to upgrade WebSocket connection")
		return
	}

	a.service.AddConnection(sessionID, conn)

	go func() {
		defer a.service.RemoveConnection(sessionID)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				break
			}
		}
	}()
}

// ProgressSocketHandler 订阅单个任务的进度频道并逐条转发给客户端。
// 转发终态事件后主动关闭连接；订阅者掉线对任务执行没有任何影响。
func (a *API) ProgressSocketHandler(c *gin.Context) {
	sessionID := c.GetString("sessionID")
	taskID := c.Param("id")

	task, err := a.service.GetTaskByID(c.Request.Context(), taskID, sessionID)
	if err != nil || task == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found or not authorized"})
		return
	}

	conn, err := a.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to upgrade WebSocket connection")
		return
	}

	go a.forwardProgress(conn, taskID, sessionID)
}

// forwardProgress 把 Redis 进度频道的消息透传到 WebSocket 连接。
func (a *API) forwardProgress(conn *websocket.Conn, taskID, sessionID string) {
	defer conn.Close()

	ctx, cancel := contextWithConnClose(conn)
	defer cancel()

	sub := a.rdb.Subscribe(ctx, progress.Channel(taskID))
	defer sub.Close()

	// 订阅建立后重读任务：终态事件可能在握手和订阅之间已经发过，
	// 此时频道不会再有任何消息，补发一条合成的终态事件后关闭。
	if task, err := a.service.GetTaskByID(ctx, taskID, sessionID); err == nil {
		if event, terminal := terminalProgressEvent(task); terminal {
			if raw, err := json.Marshal(event); err == nil {
				_ = conn.WriteMessage(websocket.TextMessage, raw)
			}
			return
		}
	}

	for msg := range sub.Channel() {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
			return
		}
		var event models.ProgressEvent
		if json.Unmarshal([]byte(msg.Payload), &event) == nil && models.IsTerminalStep(event.Step) {
			return
		}
	}
}

// terminalProgressEvent 为已终态的任务合成对应的终态进度事件。
// 非终态任务返回 false，调用方继续等待频道消息。
func terminalProgressEvent(task *models.InvestigationTask) (models.ProgressEvent, bool) {
	if task == nil || !task.Status.IsTerminal() {
		return models.ProgressEvent{}, false
	}
	step := models.StepCompleted
	switch task.Status {
	case models.TaskStatusFailed:
		step = models.StepFailed
	case models.TaskStatusTimedOut:
		step = models.StepTimedOut
	}
	return models.ProgressEvent{
		TaskID:    task.ID,
		Step:      step,
		Message:   "investigation " + step,
		Percent:   100,
		Timestamp: task.CompletedAt,
	}, true
}

// contextWithConnClose 返回一个在客户端断开连接时被取消的上下文。
func contextWithConnClose(conn *websocket.Conn) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()
	return ctx, cancel
}
