package kafka

import (
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	log "github.com/sirupsen/logrus"
)

func TestProducer_PublishEvent(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(payload []byte) error {
		var event OrderEvent
		return json.Unmarshal(payload, &event)
	})

	event := NewOrderEvent(EventTypeOrderCreated, 42, 7, "pending", 6750)

	if err := producer.PublishEvent(TopicOrderEvents, OrderAggregateID(42), event); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestProducer_PublishEvent_Error(t *testing.T) {
	mockProducer := mocks.NewSyncProducer(t, nil)

	producer := &Producer{
		producer: mockProducer,
		logger:   log.WithField("component", "kafka-producer-test"),
	}

	mockProducer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	event := NewOrderEvent(EventTypeOrderStatusChanged, 42, 7, "paid", 6750)

	if err := producer.PublishEvent(TopicOrderEvents, OrderAggregateID(42), event); err == nil {
		t.Fatal("expected error, got nil")
	}

	if err := mockProducer.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestNewOrderEvent(t *testing.T) {
	event := NewOrderEvent(EventTypeOrderCreated, 101, 55, "pending", 12500)

	if event.EventType != EventTypeOrderCreated {
		t.Errorf("expected event type %s, got %s", EventTypeOrderCreated, event.EventType)
	}
	if event.OrderID != 101 {
		t.Errorf("expected order id 101, got %d", event.OrderID)
	}
	if event.UserID != 55 {
		t.Errorf("expected user id 55, got %d", event.UserID)
	}
	if event.Status != "pending" {
		t.Errorf("expected status pending, got %s", event.Status)
	}
	if event.TotalMinor != 12500 {
		t.Errorf("expected total 12500, got %d", event.TotalMinor)
	}
	if event.Timestamp.IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestOrderAggregateID(t *testing.T) {
	if got := OrderAggregateID(42); got != "42" {
		t.Errorf("expected aggregate id 42, got %s", got)
	}
}
