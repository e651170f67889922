package kafka

import (
	"encoding/json"
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// Topics для Kafka
const (
	TopicDomainEvents    = "ecomstore.events"
	TopicDeadLetterQueue = "ecomstore.events.dlq"
)

// Kafka headers, по которым потребители фильтруют события без разбора тела.
const (
	HeaderEventType     = "x-event-type"
	HeaderAggregateType = "x-aggregate-type"
	HeaderOutboxID      = "x-outbox-id"
	HeaderOriginalTopic = "x-original-topic"
	HeaderFailedAt      = "x-failed-at"
	HeaderReplayedAt    = "x-replayed-at"
)

// Envelope - формат сообщения в топике доменных событий каталога.
type Envelope struct {
	ID            string          `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	PublishedAt   time.Time       `json:"published_at"`
}

// NewEnvelope оборачивает outbox-сообщение. Payload уже содержит JSON.
func NewEnvelope(msg domain.OutboxMessage) Envelope {
	var payload json.RawMessage
	if len(msg.Payload) > 0 {
		payload = json.RawMessage(msg.Payload)
	}
	return Envelope{
		ID:            msg.ID,
		AggregateType: msg.AggregateType,
		AggregateID:   msg.AggregateID,
		EventType:     msg.EventType,
		Payload:       payload,
		PublishedAt:   time.Now().UTC(),
	}
}

// partitionKey держит события одного агрегата в одной партиции.
func partitionKey(msg domain.OutboxMessage) string {
	return PartitionKey(msg.AggregateType, msg.AggregateID, msg.ID)
}

// PartitionKey возвращает ключ сообщения: "тип:id" агрегата,
// а без id агрегата - id самого события.
func PartitionKey(aggregateType, aggregateID, eventID string) string {
	if aggregateID == "" {
		return eventID
	}
	return aggregateType + ":" + aggregateID
}
