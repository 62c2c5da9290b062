package consumer

import (
	"ScamSentinel/backend/go/internal/models"
	"ScamSentinel/backend/go/pkg/logger"
	"context"

	"github.com/segmentio/kafka-go"
)

// ResultConsumer consumes finished investigation results from Kafka and
// hands them to the service layer for WebSocket delivery.
type ResultConsumer struct {
	reader *kafka.Reader
	logger *logger.Logger
}

// NewResultConsumer creates a new ResultConsumer on the result topic.
func NewResultConsumer(reader *kafka.Reader, logger *logger.Logger) *ResultConsumer {
	return &ResultConsumer{
		reader: reader,
		logger: logger,
	}
}

// Start begins consuming messages from the Kafka topic.
func (c *ResultConsumer) Start(ctx context.Context, handler func(kafka.Message) error) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Stopping Kafka result consumer...")
				return
			default:
				msg, err := c.reader.FetchMessage(ctx)
				if err != nil {
					if ctx.Err() == nil {
						c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error fetching message from Kafka")
					}
					continue
				}

				if err := handler(msg); err != nil {
					c.logger.WithError(models.ErrorInfo{Message: err.Error()}).WithPayload(map[string]interface{}{
						"topic":     msg.Topic,
						"partition": msg.Partition,
						"offset":    msg.Offset,
					}).Error("Error handling Kafka message")
				}

				if err := c.reader.CommitMessages(ctx, msg); err != nil {
					c.logger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Failed to commit Kafka message")
				}
			}
		}
	}()
}

// Close closes the underlying Kafka reader.
func (c *ResultConsumer) Close() error {
	return c.reader.Close()
}
