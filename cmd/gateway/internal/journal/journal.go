package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/priya3054/ZerodhaClone/cmd/gateway/internal/metrics"
	"github.com/priya3054/ZerodhaClone/pkg/models"
)

// Journal receives every order that was persisted successfully.
type Journal interface {
	Append(ctx context.Context, order models.Order) error
	Close() error
}

// KafkaJournal writes orders to a topic keyed by instrument name, so all
// orders for one instrument land on one partition.
type KafkaJournal struct {
	writer KafkaWriter
	logger *zap.Logger
}

func NewKafkaJournal(writer KafkaWriter, logger *zap.Logger) *KafkaJournal {
	return &KafkaJournal{writer: writer, logger: logger}
}

// NewKafkaWriter returns a batching async writer for the order topic.
// WriteMessages never sees broker errors in async mode, so failed batches
// are reported from the completion callback.
func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		Completion:   ReportFailedBatch(logger),
	}
}

// ReportFailedBatch logs and counts every batch the broker rejected.
func ReportFailedBatch(logger *zap.Logger) func([]kafka.Message, error) {
	return func(messages []kafka.Message, err error) {
		if err == nil {
			return
		}
		metrics.JournalFailures.Add(float64(len(messages)))
		keys := make([]string, 0, len(messages))
		for _, m := range messages {
			keys = append(keys, string(m.Key))
		}
		logger.Error("Failed to journal order batch",
			zap.Int("messages", len(messages)),
			zap.Strings("names", keys),
			zap.Error(err))
	}
}

func (j *KafkaJournal) Append(ctx context.Context, order models.Order) error {
	payload, err := json.Marshal(order)
	if err != nil {
		return fmt.Errorf("marshal order %s: %w", order.ID, err)
	}

	err = j.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(order.Name),
		Value: payload,
		Time:  order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("write order %s: %w", order.ID, err)
	}
	j.logger.Debug("Journaled order", zap.String("order_id", order.ID), zap.String("name", order.Name))
	return nil
}

// Close flushes buffered messages.
func (j *KafkaJournal) Close() error {
	return j.writer.Close()
}

// NopJournal is used when Kafka is disabled.
type NopJournal struct{}

func (NopJournal) Append(context.Context, models.Order) error { return nil }
func (NopJournal) Close() error                               { return nil }
