package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"course-chat-service/internal/models"

	"github.com/segmentio/kafka-go"
)

const messageCreatedEvent = "message.created"

// Producer publishes chat domain events for downstream consumers
// (notification fan-out, analytics, audit). It is not part of the socket
// broadcast path; the hub delivers realtime events in-process.
type Producer struct {
	writer *kafka.Writer
	logger *slog.Logger
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) *Producer {
	if logger == nil {
		logger = slog.Default()
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  5,
		WriteTimeout: 10 * time.Second,
		Compression:  kafka.Snappy,
	}
	return &Producer{writer: writer, logger: logger}
}

type envelope struct {
	Event     string      `json:"event"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// PublishMessageCreated emits a message.created event keyed by channel id
// so events for one channel stay ordered within a partition.
func (p *Producer) PublishMessageCreated(ctx context.Context, msg *models.MessageResponse) error {
	value, err := json.Marshal(envelope{
		Event:     messageCreatedEvent,
		Timestamp: time.Now().UTC(),
		Payload:   msg,
	})
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.ChannelID),
		Value: value,
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
