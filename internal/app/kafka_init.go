package app

import (
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/ecomstore/internal/domain"
	"github.com/vladislavdragonenkov/ecomstore/internal/messaging/kafka"
)

const kafkaClientID = "ecomstore-catalog"

// eventBus - Kafka-сторона доставки доменных событий: основной topic и DLQ.
// Нулевое значение означает, что брокеры не настроены и события не пишутся.
type eventBus struct {
	producer *kafka.Producer
	events   domain.OutboxPublisher
	dlq      domain.OutboxPublisher
	logger   *log.Entry
}

// openEventBus подключается к брокерам из cfg. Пустой список брокеров
// и недоступный брокер оба дают выключенную шину; ошибка возвращается
// только для логов и тестов, сервис без Kafka продолжает работать.
func openEventBus(cfg Config, logger *log.Entry) (*eventBus, error) {
	bus := &eventBus{logger: logger.WithField("layer", "events")}

	brokers := normalizeList(cfg.KafkaBrokers)
	if len(brokers) == 0 {
		bus.logger.Info("kafka brokers are not configured, domain events are disabled")
		return bus, nil
	}

	producer, err := kafka.NewProducer(brokers, kafka.WithClientID(kafkaClientID))
	if err != nil {
		bus.logger.WithError(err).Warn("kafka is unavailable, continuing without domain events")
		return bus, err
	}

	bus.producer = producer
	bus.events = kafka.NewOutboxPublisher(producer, cfg.KafkaTopic)
	bus.dlq = kafka.NewDLQPublisher(producer, cfg.KafkaDLQTopic)
	bus.logger.WithFields(log.Fields{
		"brokers":   brokers,
		"topic":     cfg.KafkaTopic,
		"dlq_topic": cfg.KafkaDLQTopic,
	}).Info("kafka producer initialized")
	return bus, nil
}

// enabled сообщает, есть ли куда доставлять события из outbox.
func (b *eventBus) enabled() bool {
	return b != nil && b.producer != nil
}

func (b *eventBus) close() {
	if !b.enabled() {
		return
	}
	if err := b.producer.Close(); err != nil {
		b.logger.WithError(err).Warn("failed to close kafka producer")
		return
	}
	b.producer = nil
	b.logger.Info("kafka producer closed")
}
