package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"

	"github.com/Priya8975/webhook-notifier/internal/domain"
)

func sampleEntry() domain.LogEntry {
	return domain.LogEntry{
		ID:             "log_01",
		TargetID:       "t-1",
		TargetName:     "orders",
		PayloadID:      "pl_01",
		Timestamp:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:        json.RawMessage(`{"a":1}`),
		DeliveryStatus: domain.DeliverySent,
		Recipient:      "ann@example.com",
		MessageID:      "<m@example.com>",
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var msg LogMessage
		if err := json.Unmarshal(val, &msg); err != nil {
			return err
		}
		if msg.LogID != "log_01" || msg.DeliveryStatus != "Sent" || string(msg.Payload) != `{"a":1}` {
			return errors.New("unexpected message contents")
		}
		return nil
	})

	pub := NewKafkaPublisherWithProducer(producer, "notifier.logs")
	if err := pub.Publish(context.Background(), sampleEntry()); err != nil {
		t.Fatalf("Publish() error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
}

func TestKafkaPublisher_PublishFailure(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrNotLeaderForPartition)

	pub := NewKafkaPublisherWithProducer(producer, "notifier.logs")
	err := pub.Publish(context.Background(), sampleEntry())
	if !errors.Is(err, sarama.ErrNotLeaderForPartition) {
		t.Errorf("expected wrapped broker error, got %v", err)
	}
	pub.Close()
}

func TestKafkaPublisher_CancelledContext(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	pub := NewKafkaPublisherWithProducer(producer, "notifier.logs")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := pub.Publish(ctx, sampleEntry()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	pub.Close()
}

func TestKafkaPublisher_Name(t *testing.T) {
	if name := NewKafkaPublisherWithProducer(mocks.NewSyncProducer(t, nil), "x").Name(); name != "kafka" {
		t.Errorf("expected kafka, got %q", name)
	}
}
