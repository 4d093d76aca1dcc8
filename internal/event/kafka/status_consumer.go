// Package kafka содержит транспорт внеполосных уведомлений о статусе:
// события провайдеров читаются из Kafka и диспетчеризуются в процессор.
package kafka

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// NotificationHandler — точка диспетчеризации уведомления в ядро
// Реализуется процессором (HandleNotification)
type NotificationHandler interface {
	HandleNotification(ctx context.Context, transactionID, status string)
}

// statusEvent — формат события смены статуса транзакции
type statusEvent struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// StatusConsumer читает события смены статуса из Kafka и передаёт их процессору
// Семантика at-least-once: FetchMessage + CommitMessages после обработки.
// Повторная доставка безопасна: обработчик уведомлений идемпотентно
// перезаписывает статус тем же значением
type StatusConsumer struct {
	logger  *zap.Logger
	reader  *kafka.Reader
	handler NotificationHandler
}

// NewStatusConsumer создаёт consumer уведомлений о статусе
func NewStatusConsumer(logger *zap.Logger, brokers []string, groupID, topic string, handler NotificationHandler) *StatusConsumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		GroupID:  groupID,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	return &StatusConsumer{
		logger:  logger,
		reader:  reader,
		handler: handler,
	}
}

// Start запускает цикл обработки; блокируется до отмены контекста
func (c *StatusConsumer) Start(ctx context.Context) error {
	c.logger.Info("starting status notification consumer",
		zap.String("topic", c.reader.Config().Topic),
		zap.String("group_id", c.reader.Config().GroupID),
	)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("consumer context cancelled, stopping")
				return nil
			}
			c.logger.Error("failed to fetch message from kafka",
				zap.Error(err),
			)
			continue
		}

		c.processMessage(ctx, m)

		// Некорректные payload тоже коммитим: процессор молча игнорирует
		// неизвестные транзакции и нераспознанные статусы, повторная
		// доставка ничего не исправит
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.logger.Error("failed to commit message offset",
				zap.Error(err),
				zap.String("topic", m.Topic),
				zap.Int("partition", m.Partition),
				zap.Int64("offset", m.Offset),
			)
		}
	}
}

// processMessage разбирает событие и диспетчеризует его в процессор
func (c *StatusConsumer) processMessage(ctx context.Context, m kafka.Message) {
	var event statusEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.logger.Error("failed to unmarshal status event",
			zap.Error(err),
			zap.String("topic", m.Topic),
			zap.Int64("offset", m.Offset),
		)
		return
	}

	if event.TransactionID == "" {
		c.logger.Warn("status event without transaction_id ignored",
			zap.Int64("offset", m.Offset),
		)
		return
	}

	c.handler.HandleNotification(ctx, event.TransactionID, event.Status)
}

// Close закрывает kafka reader
func (c *StatusConsumer) Close() error {
	return c.reader.Close()
}
