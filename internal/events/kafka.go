// Package events publishes delivery log entries to Kafka for downstream
// consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

// KafkaPublisher writes each log entry to a topic, keyed by target id so
// one target's entries stay ordered within a partition.
type KafkaPublisher struct {
	topic    string
	producer sarama.SyncProducer
}

// NewKafkaPublisher connects a sync producer to brokers.
func NewKafkaPublisher(brokers []string, topic string) (*KafkaPublisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 500 * time.Millisecond

	prod, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return NewKafkaPublisherWithProducer(prod, topic), nil
}

func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	return &KafkaPublisher{topic: topic, producer: producer}
}

func (p *KafkaPublisher) Name() string { return "kafka" }

// LogMessage is the record written to the topic.
type LogMessage struct {
	LogID          string          `json:"log_id"`
	TargetID       string          `json:"target_id"`
	TargetName     string          `json:"target_name"`
	PayloadID      string          `json:"payload_id"`
	DeliveryStatus string          `json:"delivery_status"`
	Recipient      string          `json:"recipient,omitempty"`
	MessageID      string          `json:"message_id,omitempty"`
	Error          string          `json:"error,omitempty"`
	Payload        json.RawMessage `json:"payload"`
	Timestamp      time.Time       `json:"timestamp"`
}

func NewLogMessage(e domain.LogEntry) LogMessage {
	return LogMessage{
		LogID:          e.ID,
		TargetID:       e.TargetID,
		TargetName:     e.TargetName,
		PayloadID:      e.PayloadID,
		DeliveryStatus: string(e.DeliveryStatus),
		Recipient:      e.Recipient,
		MessageID:      e.MessageID,
		Error:          e.Error,
		Payload:        e.Payload,
		Timestamp:      e.Timestamp,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, entry domain.LogEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b, err := json.Marshal(NewLogMessage(entry))
	if err != nil {
		return fmt.Errorf("marshal log message: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(entry.TargetID),
		Value:     sarama.ByteEncoder(b),
		Timestamp: entry.Timestamp,
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("send kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
