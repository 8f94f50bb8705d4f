package kafka

import (
	"fmt"
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/heladeria/internal/domain"
)

// EventType определяет тип события заказа.
type EventType string

const (
	// EventTypeOrderCreated — заказ создан из корзины.
	EventTypeOrderCreated EventType = "order.created"
	// EventTypeOrderStatusChanged — заказу применён новый статус.
	EventTypeOrderStatusChanged EventType = "order.status_changed"
)

// TopicOrderEvents — topic для событий заказов.
const TopicOrderEvents = "heladeria.order.events"

// AggregateTypeOrder — aggregate_type записей outbox для заказов.
const AggregateTypeOrder = "order"

// OrderEvent представляет событие жизненного цикла заказа.
type OrderEvent struct {
	EventType  EventType `json:"event_type"`
	OrderID    int64     `json:"order_id"`
	UserID     int64     `json:"user_id"`
	Status     string    `json:"status"`
	TotalMinor int64     `json:"total_minor"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewOrderEvent создаёт событие заказа с текущим временем.
func NewOrderEvent(eventType EventType, orderID, userID int64, status domain.OrderStatus, totalMinor int64) *OrderEvent {
	return &OrderEvent{
		EventType:  eventType,
		OrderID:    orderID,
		UserID:     userID,
		Status:     string(status),
		TotalMinor: totalMinor,
		Timestamp:  time.Now().UTC(),
	}
}

// OutboxPublisher адаптирует Producer к домену: публикует outbox-сообщения
// в topic событий заказов с ключом по идентификатору агрегата.
type OutboxPublisher struct {
	producer *Producer
	topic    string
}

// NewOutboxPublisher создаёт публикатор outbox поверх Kafka producer.
func NewOutboxPublisher(producer *Producer, topic string) *OutboxPublisher {
	if topic == "" {
		topic = TopicOrderEvents
	}
	return &OutboxPublisher{producer: producer, topic: topic}
}

// Publish отправляет сообщение outbox в Kafka. Ключ — aggregate_id, так что
// события одного заказа попадают в одну партицию и сохраняют порядок.
func (p *OutboxPublisher) Publish(event domain.OutboxMessage) error {
	if p.producer == nil {
		return fmt.Errorf("kafka producer is not configured")
	}
	return p.producer.PublishRaw(p.topic, event.AggregateID, event.Payload)
}

// OrderAggregateID приводит числовой идентификатор заказа к ключу outbox.
func OrderAggregateID(orderID int64) string {
	return strconv.FormatInt(orderID, 10)
}

var _ domain.OutboxPublisher = (*OutboxPublisher)(nil)
