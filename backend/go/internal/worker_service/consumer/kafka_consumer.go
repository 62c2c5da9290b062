package consumer

import (
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"context"

	"github.com/segmentio/kafka-go"
)

// TaskConsumer consumes pending investigation tasks from the task topic.
type TaskConsumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewTaskConsumer creates a new TaskConsumer.
func NewTaskConsumer(reader *kafka.Reader, logger *logger.Logger) *TaskConsumer {
	return &TaskConsumer{
		reader: reader,
		logger: logger,
	}
}

// Start 以阻塞方式消费任务消息。消息处理失败不阻塞位点提交：
// 任务的重试由运行器按自己的尝试计数控制，而不是靠消息重投。
func (c *TaskConsumer) Start(ctx context.Context, handler func(context.Context, kafka.Message) error) {
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stopping Kafka task consumer...")
			return
		default:
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() == nil {
					c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
				}
				continue
			}

			if err := handler(ctx, msg); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
					"topic":     msg.Topic,
					"partition": msg.Partition,
					"offset":    msg.Offset,
				}).Error("Error handling task message")
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
			}
		}
	}
}

// Close closes the underlying Kafka reader.
func (c *TaskConsumer) Close() error {
	return c.reader.Close()
}
