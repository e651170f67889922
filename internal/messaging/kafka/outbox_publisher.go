package kafka

import (
	"time"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
)

// TopicPublisher отправляет outbox-сообщения в один topic в виде Envelope.
type TopicPublisher struct {
	producer *Producer
	topic    string
	// extra добавляет заголовки поверх стандартных; nil для основного topic.
	extra func() map[string]string
}

// NewOutboxPublisher публикует доменные события в topic (по умолчанию TopicDomainEvents).
func NewOutboxPublisher(producer *Producer, topic string) *TopicPublisher {
	return &TopicPublisher{producer: producer, topic: orDefault(topic, TopicDomainEvents)}
}

// NewDLQPublisher публикует dead letter от outbox worker как есть, помечая
// исходный topic и время отказа, чтобы dlq-reprocess мог вернуть событие обратно.
func NewDLQPublisher(producer *Producer, topic string) *TopicPublisher {
	return &TopicPublisher{
		producer: producer,
		topic:    orDefault(topic, TopicDeadLetterQueue),
		extra: func() map[string]string {
			return map[string]string{
				HeaderOriginalTopic: TopicDomainEvents,
				HeaderFailedAt:      time.Now().UTC().Format(time.RFC3339Nano),
			}
		},
	}
}

// Topic возвращает topic, в который пишет паблишер.
func (p *TopicPublisher) Topic() string {
	return p.topic
}

func (p *TopicPublisher) Publish(event domain.OutboxMessage) error {
	if p == nil {
		return errProducerClosed
	}

	headers := map[string]string{
		HeaderEventType:     event.EventType,
		HeaderAggregateType: event.AggregateType,
		HeaderOutboxID:      event.ID,
	}
	if p.extra != nil {
		for name, value := range p.extra() {
			headers[name] = value
		}
	}
	return p.producer.PublishEvent(p.topic, partitionKey(event), NewEnvelope(event), headers)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

var _ domain.OutboxPublisher = (*TopicPublisher)(nil)
